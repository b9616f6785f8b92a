// Package services provides reference implementations of the workflow
// runtime's service contracts: credentials, credits, queues, datasets,
// SQL-backed databases, and monitoring. The memory implementations
// serve tests and single-process hosts; production deployments
// substitute their own backends behind the same interfaces.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// MemoryCredentials is an in-process workflow.CredentialService backed
// by per-organization maps. Lookups before Initialize fail.
type MemoryCredentials struct {
	mu           sync.RWMutex
	orgID        string
	secrets      map[string]map[string]string
	integrations map[string]map[string]workflow.IntegrationInfo
}

// NewMemoryCredentials returns an empty credential service.
func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{
		secrets:      make(map[string]map[string]string),
		integrations: make(map[string]map[string]workflow.IntegrationInfo),
	}
}

// SetSecret stores one secret for an organization.
func (c *MemoryCredentials) SetSecret(orgID, name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.secrets[orgID] == nil {
		c.secrets[orgID] = make(map[string]string)
	}
	c.secrets[orgID][name] = value
}

// SetIntegration stores one integration for an organization.
func (c *MemoryCredentials) SetIntegration(orgID, id string, info workflow.IntegrationInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.integrations[orgID] == nil {
		c.integrations[orgID] = make(map[string]workflow.IntegrationInfo)
	}
	c.integrations[orgID][id] = info
}

// Initialize scopes subsequent lookups to one organization.
func (c *MemoryCredentials) Initialize(ctx context.Context, orgID string) error {
	c.mu.Lock()
	c.orgID = orgID
	c.mu.Unlock()
	return nil
}

// GetSecret returns one secret of the initialized organization.
func (c *MemoryCredentials) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.orgID == "" {
		return "", fmt.Errorf("credential service not initialized")
	}
	v, ok := c.secrets[c.orgID][name]
	if !ok {
		return "", fmt.Errorf("secret %q not found", name)
	}
	return v, nil
}

// GetIntegration returns one integration of the initialized
// organization.
func (c *MemoryCredentials) GetIntegration(ctx context.Context, id string) (workflow.IntegrationInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.orgID == "" {
		return workflow.IntegrationInfo{}, fmt.Errorf("credential service not initialized")
	}
	info, ok := c.integrations[c.orgID][id]
	if !ok {
		return workflow.IntegrationInfo{}, fmt.Errorf("integration %q not found", id)
	}
	return info, nil
}

// MemoryCredits is an in-process workflow.CreditService tracking a
// balance per organization.
type MemoryCredits struct {
	mu       sync.Mutex
	balances map[string]int
	used     map[string]int
}

// NewMemoryCredits returns a credit service with no balances; grant
// them with SetBalance.
func NewMemoryCredits() *MemoryCredits {
	return &MemoryCredits{
		balances: make(map[string]int),
		used:     make(map[string]int),
	}
}

// SetBalance grants an organization a credit balance.
func (c *MemoryCredits) SetBalance(orgID string, credits int) {
	c.mu.Lock()
	c.balances[orgID] = credits
	c.mu.Unlock()
}

// Used returns the usage recorded for an organization.
func (c *MemoryCredits) Used(orgID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used[orgID]
}

// HasEnoughCredits reports whether the organization's remaining
// balance plus overage covers the estimate.
func (c *MemoryCredits) HasEnoughCredits(ctx context.Context, check workflow.CreditCheck) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.balances[check.OrganizationID] - c.used[check.OrganizationID]
	return remaining+check.OverageLimit >= check.Estimated, nil
}

// RecordUsage adds to the organization's recorded usage.
func (c *MemoryCredits) RecordUsage(ctx context.Context, orgID string, usage int) error {
	if usage < 0 {
		return fmt.Errorf("usage must not be negative, got %d", usage)
	}
	c.mu.Lock()
	c.used[orgID] += usage
	c.mu.Unlock()
	return nil
}

// MemoryQueue collects sent messages in order.
type MemoryQueue struct {
	mu       sync.Mutex
	messages [][]byte
}

// Send appends one message.
func (q *MemoryQueue) Send(ctx context.Context, payload []byte, mode workflow.SendMode) error {
	q.mu.Lock()
	q.messages = append(q.messages, payload)
	q.mu.Unlock()
	return nil
}

// SendBatch appends messages in order.
func (q *MemoryQueue) SendBatch(ctx context.Context, payloads [][]byte, mode workflow.SendMode) error {
	q.mu.Lock()
	q.messages = append(q.messages, payloads...)
	q.mu.Unlock()
	return nil
}

// Messages returns a copy of everything sent so far.
func (q *MemoryQueue) Messages() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.messages))
	copy(out, q.messages)
	return out
}

// MemoryQueues is an in-process workflow.QueueService.
type MemoryQueues struct {
	mu     sync.RWMutex
	queues map[string]*MemoryQueue // key: orgID "/" idOrHandle
}

// NewMemoryQueues returns an empty queue service.
func NewMemoryQueues() *MemoryQueues {
	return &MemoryQueues{queues: make(map[string]*MemoryQueue)}
}

// Add registers a queue under an id or handle.
func (s *MemoryQueues) Add(orgID, idOrHandle string) *MemoryQueue {
	q := &MemoryQueue{}
	s.mu.Lock()
	s.queues[orgID+"/"+idOrHandle] = q
	s.mu.Unlock()
	return q
}

// Resolve returns the queue, or nil when it does not exist.
func (s *MemoryQueues) Resolve(ctx context.Context, idOrHandle, orgID string) (workflow.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[orgID+"/"+idOrHandle]
	if !ok {
		return nil, nil
	}
	return q, nil
}

// MemoryDataset is an in-process dataset of named files. Search is a
// substring match over names; AISearch is a canned summary over the
// matching names, enough to exercise the contract end to end.
type MemoryDataset struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// ListFiles returns the dataset's files sorted by name.
func (d *MemoryDataset) ListFiles(ctx context.Context) ([]workflow.DatasetFile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]workflow.DatasetFile, 0, len(d.files))
	for name, data := range d.files {
		out = append(out, workflow.DatasetFile{Name: name, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetFile returns one file's contents.
func (d *MemoryDataset) GetFile(ctx context.Context, name string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	data, ok := d.files[name]
	if !ok {
		return nil, fmt.Errorf("file %q not found", name)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// UploadFile stores one file, replacing any prior contents.
func (d *MemoryDataset) UploadFile(ctx context.Context, name string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	d.mu.Lock()
	if d.files == nil {
		d.files = make(map[string][]byte)
	}
	d.files[name] = buf
	d.mu.Unlock()
	return nil
}

// DeleteFile removes one file.
func (d *MemoryDataset) DeleteFile(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.files[name]; !ok {
		return fmt.Errorf("file %q not found", name)
	}
	delete(d.files, name)
	return nil
}

// Search returns files whose name contains the query.
func (d *MemoryDataset) Search(ctx context.Context, query string) ([]workflow.DatasetFile, error) {
	all, err := d.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	var out []workflow.DatasetFile
	for _, f := range all {
		if strings.Contains(f.Name, query) {
			out = append(out, f)
		}
	}
	return out, nil
}

// AISearch summarizes the matching file names.
func (d *MemoryDataset) AISearch(ctx context.Context, query string) (string, error) {
	matches, err := d.Search(ctx, query)
	if err != nil {
		return "", err
	}
	names := make([]string, len(matches))
	for i, f := range matches {
		names[i] = f.Name
	}
	return fmt.Sprintf("%d files match %q: %s", len(matches), query, strings.Join(names, ", ")), nil
}

// MemoryDatasets is an in-process workflow.DatasetService.
type MemoryDatasets struct {
	mu       sync.RWMutex
	datasets map[string]*MemoryDataset
}

// NewMemoryDatasets returns an empty dataset service.
func NewMemoryDatasets() *MemoryDatasets {
	return &MemoryDatasets{datasets: make(map[string]*MemoryDataset)}
}

// Add registers a dataset under an id.
func (s *MemoryDatasets) Add(orgID, datasetID string) *MemoryDataset {
	d := &MemoryDataset{files: make(map[string][]byte)}
	s.mu.Lock()
	s.datasets[orgID+"/"+datasetID] = d
	s.mu.Unlock()
	return d
}

// Resolve returns the dataset, or nil when it does not exist.
func (s *MemoryDatasets) Resolve(ctx context.Context, datasetID, orgID string) (workflow.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[orgID+"/"+datasetID]
	if !ok {
		return nil, nil
	}
	return d, nil
}
