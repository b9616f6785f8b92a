package workflow

import (
	"context"
	"time"
)

// The runtime core depends only on the contracts in this file; each is
// injected through Env. Implementations live in the object, store and
// services packages. All implementations must be safe for concurrent
// use; nodes in one level call them in parallel.

// ObjectMetadata describes one stored object.
type ObjectMetadata struct {
	ID        string    `json:"id"`
	MimeType  string    `json:"mimeType"`
	Filename  string    `json:"filename,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// ObjectStore holds the binary payloads referenced from wire-form
// values. Objects are scoped to an organization and optionally to the
// execution that produced them. The core never deletes objects it
// wrote; retention belongs to the service.
type ObjectStore interface {
	WriteObject(ctx context.Context, data []byte, mimeType, orgID, executionID, filename string) (ObjectReference, error)
	ReadObject(ctx context.Context, ref ObjectReference) ([]byte, *ObjectMetadata, error)
	DeleteObject(ctx context.Context, ref ObjectReference) error
	Presign(ctx context.Context, ref ObjectReference, ttl time.Duration) (string, error)
	WriteAndPresign(ctx context.Context, data []byte, mimeType, orgID string, ttl time.Duration) (string, error)
	List(ctx context.Context, orgID string) ([]ObjectMetadata, error)
}

// IntegrationInfo carries the credentials of a third-party integration.
type IntegrationInfo struct {
	Token          string            `json:"token"`
	RefreshToken   string            `json:"refreshToken,omitempty"`
	TokenExpiresAt *time.Time        `json:"tokenExpiresAt,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CredentialService resolves secrets and integrations for one
// organization. Initialize is called once per run before any lookup.
type CredentialService interface {
	Initialize(ctx context.Context, orgID string) error
	GetSecret(ctx context.Context, name string) (string, error)
	GetIntegration(ctx context.Context, id string) (IntegrationInfo, error)
}

// CreditCheck is the input to the pre-flight credit decision.
type CreditCheck struct {
	OrganizationID     string
	Included           int
	Estimated          int
	SubscriptionStatus string
	OverageLimit       int
}

// CreditService answers the pre-flight credit check and records the
// usage a run actually consumed.
type CreditService interface {
	HasEnoughCredits(ctx context.Context, check CreditCheck) (bool, error)
	RecordUsage(ctx context.Context, orgID string, usage int) error
}

// ListOptions pages through execution listings.
type ListOptions struct {
	Offset int
	Limit  int
}

// ExecutionStore persists terminal workflow execution records.
type ExecutionStore interface {
	Save(ctx context.Context, exec *WorkflowExecution) (*WorkflowExecution, error)
	Get(ctx context.Context, id, orgID string) (*WorkflowExecution, error)
	List(ctx context.Context, orgID string, opts ListOptions) ([]*WorkflowExecution, error)
}

// MonitoringService receives a full execution snapshot after every
// state mutation. Implementations must treat an empty session id as a
// no-op.
type MonitoringService interface {
	SendUpdate(ctx context.Context, sessionID string, exec *WorkflowExecution) error
}

// SendMode selects queue delivery semantics.
type SendMode string

const (
	SendImmediate SendMode = "immediate"
	SendBuffered  SendMode = "buffered"
)

// Queue delivers messages to one resolved queue.
type Queue interface {
	Send(ctx context.Context, payload []byte, mode SendMode) error
	SendBatch(ctx context.Context, payloads [][]byte, mode SendMode) error
}

// QueueService resolves a queue id or handle within an organization.
// A nil Queue with nil error means the queue does not exist.
type QueueService interface {
	Resolve(ctx context.Context, idOrHandle, orgID string) (Queue, error)
}

// QueryResult carries the outcome of one database statement.
type QueryResult struct {
	Rows            []map[string]Value `json:"rows,omitempty"`
	RowsAffected    int64              `json:"rowsAffected"`
	LastInsertRowID int64              `json:"lastInsertRowid"`
}

// Connection is one resolved database handle.
type Connection interface {
	Query(ctx context.Context, sql string, params []Value) (*QueryResult, error)
	Execute(ctx context.Context, sql string, params []Value) (*QueryResult, error)
}

// DatabaseService resolves a database id or handle within an
// organization.
type DatabaseService interface {
	Resolve(ctx context.Context, idOrHandle, orgID string) (Connection, error)
}

// DatasetFile describes one file in a dataset.
type DatasetFile struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType,omitempty"`
}

// Dataset is one resolved dataset handle.
type Dataset interface {
	ListFiles(ctx context.Context) ([]DatasetFile, error)
	GetFile(ctx context.Context, name string) ([]byte, error)
	UploadFile(ctx context.Context, name string, data []byte) error
	DeleteFile(ctx context.Context, name string) error
	Search(ctx context.Context, query string) ([]DatasetFile, error)
	AISearch(ctx context.Context, query string) (string, error)
}

// DatasetService resolves a dataset id within an organization.
type DatasetService interface {
	Resolve(ctx context.Context, datasetID, orgID string) (Dataset, error)
}

// Env bundles the injected services a run may need. Any field may be
// nil; a node or parameter type that needs a missing service fails
// with a missing_dependency error instead of panicking.
type Env struct {
	Objects     ObjectStore
	Credentials CredentialService
	Credits     CreditService
	Executions  ExecutionStore
	Monitor     MonitoringService
	Queues      QueueService
	Databases   DatabaseService
	Datasets    DatasetService
}
