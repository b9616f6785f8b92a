// Package object provides object store implementations for the
// workflow runtime. Stored objects back the ObjectReference wire form
// of blob values.
package object

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// ErrNotFound is returned when a reference does not resolve.
var ErrNotFound = errors.New("object not found")

type entry struct {
	data  []byte
	meta  workflow.ObjectMetadata
	orgID string
}

// MemoryStore is an in-process workflow.ObjectStore. Presigned URLs
// are deterministic and unsigned; they exist so code paths exercising
// presigning work without a real storage backend. Safe for concurrent
// use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]entry
	baseURL string
	now     func() time.Time
}

// NewMemoryStore returns an empty store issuing URLs under baseURL.
// An empty baseURL defaults to "memory://objects".
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryStore{
		objects: make(map[string]entry),
		baseURL: baseURL,
		now:     time.Now,
	}
}

// WriteObject stores one object scoped to (orgID, executionID) and
// returns its reference.
func (s *MemoryStore) WriteObject(ctx context.Context, data []byte, mimeType, orgID, executionID, filename string) (workflow.ObjectReference, error) {
	if orgID == "" {
		return workflow.ObjectReference{}, errors.New("organization id required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	id := uuid.NewString()
	s.mu.Lock()
	s.objects[id] = entry{
		data: buf,
		meta: workflow.ObjectMetadata{
			ID:        id,
			MimeType:  mimeType,
			Filename:  filename,
			Size:      int64(len(buf)),
			CreatedAt: s.now(),
		},
		orgID: orgID,
	}
	s.mu.Unlock()

	return workflow.ObjectReference{ID: id, MimeType: mimeType, Filename: filename}, nil
}

// ReadObject resolves a reference to its bytes and metadata.
func (s *MemoryStore) ReadObject(ctx context.Context, ref workflow.ObjectReference) ([]byte, *workflow.ObjectMetadata, error) {
	s.mu.RLock()
	e, ok := s.objects[ref.ID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("reading object %q: %w", ref.ID, ErrNotFound)
	}
	data := make([]byte, len(e.data))
	copy(data, e.data)
	meta := e.meta
	return data, &meta, nil
}

// DeleteObject removes an object. Deleting an unknown id is an error.
func (s *MemoryStore) DeleteObject(ctx context.Context, ref workflow.ObjectReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[ref.ID]; !ok {
		return fmt.Errorf("deleting object %q: %w", ref.ID, ErrNotFound)
	}
	delete(s.objects, ref.ID)
	return nil
}

// Presign returns a URL for an existing object.
func (s *MemoryStore) Presign(ctx context.Context, ref workflow.ObjectReference, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[ref.ID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("presigning object %q: %w", ref.ID, ErrNotFound)
	}
	expires := s.now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d", s.baseURL, ref.ID, expires), nil
}

// WriteAndPresign stores one object and returns a URL for it.
func (s *MemoryStore) WriteAndPresign(ctx context.Context, data []byte, mimeType, orgID string, ttl time.Duration) (string, error) {
	ref, err := s.WriteObject(ctx, data, mimeType, orgID, "", "")
	if err != nil {
		return "", err
	}
	return s.Presign(ctx, ref, ttl)
}

// List returns the metadata of all objects of one organization, oldest
// first.
func (s *MemoryStore) List(ctx context.Context, orgID string) ([]workflow.ObjectMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workflow.ObjectMetadata
	for _, e := range s.objects {
		if e.orgID == orgID {
			out = append(out, e.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
