package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogEmitter writes events to an io.Writer, one line per event, in
// either a human-readable text format or JSONL. Safe for concurrent
// use; lines are written atomically under a mutex.
type LogEmitter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewLogEmitter returns a text-format emitter writing to w. A nil w
// defaults to os.Stdout.
func NewLogEmitter(w io.Writer) *LogEmitter {
	if w == nil {
		w = os.Stdout
	}
	return &LogEmitter{w: w}
}

// NewJSONLogEmitter returns a JSONL emitter writing to w. A nil w
// defaults to os.Stdout.
func NewJSONLogEmitter(w io.Writer) *LogEmitter {
	if w == nil {
		w = os.Stdout
	}
	return &LogEmitter{w: w, json: true}
}

// Emit writes one line for the event. Marshal or write failures are
// dropped; logging must never fail a run.
func (l *LogEmitter) Emit(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.json {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(l.w, "%s\n", data)
		return
	}

	if event.NodeID != "" {
		fmt.Fprintf(l.w, "%s [%s] L%d %s node=%s\n",
			event.Time.Format(time.RFC3339), event.ExecutionID, event.Level, event.Msg, event.NodeID)
		return
	}
	fmt.Fprintf(l.w, "%s [%s] L%d %s\n",
		event.Time.Format(time.RFC3339), event.ExecutionID, event.Level, event.Msg)
}
