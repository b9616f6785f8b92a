package emit

import "sync"

// BufferedEmitter stores every event in memory, keyed by execution id,
// and offers query access for tests and dashboards. All events of all
// executions stay resident until cleared; long-lived processes should
// Clear finished executions.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter selects events from one execution's history. Set
// fields combine with AND; zero values do not filter.
type HistoryFilter struct {
	NodeID   string
	Msg      string
	MinLevel *int
	MaxLevel *int
}

// NewBufferedEmitter returns an empty buffer.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to its execution's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ExecutionID] = append(b.events[event.ExecutionID], event)
}

// History returns a copy of all events for one execution, in emission
// order.
func (b *BufferedEmitter) History(executionID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[executionID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the events of one execution matching the
// filter, in emission order.
func (b *BufferedEmitter) HistoryWithFilter(executionID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, event := range b.events[executionID] {
		if filter.NodeID != "" && event.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		if filter.MinLevel != nil && event.Level < *filter.MinLevel {
			continue
		}
		if filter.MaxLevel != nil && event.Level > *filter.MaxLevel {
			continue
		}
		out = append(out, event)
	}
	if out == nil {
		out = []Event{}
	}
	return out
}

// Clear drops the history of one execution, or every history when
// executionID is empty.
func (b *BufferedEmitter) Clear(executionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if executionID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, executionID)
}
