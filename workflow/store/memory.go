package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// MemoryStore is an in-process workflow.ExecutionStore. Records are
// stored as deep copies so callers cannot mutate persisted state.
// Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	executions map[string]*workflow.WorkflowExecution
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{executions: make(map[string]*workflow.WorkflowExecution)}
}

// Save persists the record, replacing any prior version.
func (s *MemoryStore) Save(ctx context.Context, exec *workflow.WorkflowExecution) (*workflow.WorkflowExecution, error) {
	cp, err := copyExecution(exec)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.executions[cp.ID] = cp
	s.mu.Unlock()
	return copyExecution(cp)
}

// Get returns one execution scoped to an organization.
func (s *MemoryStore) Get(ctx context.Context, id, orgID string) (*workflow.WorkflowExecution, error) {
	s.mu.RLock()
	exec, ok := s.executions[id]
	s.mu.RUnlock()
	if !ok || exec.OrganizationID != orgID {
		return nil, fmt.Errorf("execution %q: %w", id, ErrNotFound)
	}
	return copyExecution(exec)
}

// List returns an organization's executions, newest first.
func (s *MemoryStore) List(ctx context.Context, orgID string, opts workflow.ListOptions) ([]*workflow.WorkflowExecution, error) {
	s.mu.RLock()
	var all []*workflow.WorkflowExecution
	for _, exec := range s.executions {
		if exec.OrganizationID == orgID {
			all = append(all, exec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	if opts.Offset >= len(all) {
		return nil, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}

	out := make([]*workflow.WorkflowExecution, 0, len(all))
	for _, exec := range all {
		cp, err := copyExecution(exec)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// copyExecution deep-copies through JSON, the same encoding the SQL
// backends persist, so all backends round-trip values identically.
func copyExecution(exec *workflow.WorkflowExecution) (*workflow.WorkflowExecution, error) {
	data, err := json.Marshal(exec)
	if err != nil {
		return nil, fmt.Errorf("encoding execution: %w", err)
	}
	var cp workflow.WorkflowExecution
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding execution: %w", err)
	}
	return &cp, nil
}
