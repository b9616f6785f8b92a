package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// SQLiteStore is a SQLite-backed workflow.ExecutionStore plus step
// journal in a single-file database. Designed for single-process hosts
// that need persistence without a database server: the journal table
// is what lets a durable run replay after a restart.
//
// WAL mode is enabled for concurrent reads, and the connection pool is
// capped at one connection because SQLite supports one writer at a
// time.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and migrates) the database at path. Use
// ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	executions := `
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			deployment_id TEXT,
			status TEXT NOT NULL,
			error TEXT,
			node_executions TEXT NOT NULL,
			usage_credits INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			ended_at TEXT
		)`
	if _, err := s.db.ExecContext(ctx, executions); err != nil {
		return err
	}

	index := `
		CREATE INDEX IF NOT EXISTS idx_executions_org
		ON executions(organization_id, started_at)`
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return err
	}

	journal := `
		CREATE TABLE IF NOT EXISTS step_journal (
			execution_id TEXT NOT NULL,
			step_name TEXT NOT NULL,
			value TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (execution_id, step_name)
		)`
	_, err := s.db.ExecContext(ctx, journal)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Save upserts the execution record.
func (s *SQLiteStore) Save(ctx context.Context, exec *workflow.WorkflowExecution) (*workflow.WorkflowExecution, error) {
	nodes, err := json.Marshal(exec.NodeExecutions)
	if err != nil {
		return nil, fmt.Errorf("encoding node executions: %w", err)
	}

	endedAt := ""
	if !exec.EndedAt.IsZero() {
		endedAt = exec.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	query := `
		INSERT INTO executions
			(id, workflow_id, organization_id, deployment_id, status, error, node_executions, usage_credits, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			node_executions = excluded.node_executions,
			usage_credits = excluded.usage_credits,
			ended_at = excluded.ended_at`
	_, err = s.db.ExecContext(ctx, query,
		exec.ID, exec.WorkflowID, exec.OrganizationID, exec.DeploymentID,
		string(exec.Status), exec.Error, string(nodes), exec.Usage,
		exec.StartedAt.UTC().Format(time.RFC3339Nano), endedAt)
	if err != nil {
		return nil, fmt.Errorf("saving execution %q: %w", exec.ID, err)
	}
	return s.Get(ctx, exec.ID, exec.OrganizationID)
}

// Get returns one execution scoped to an organization.
func (s *SQLiteStore) Get(ctx context.Context, id, orgID string) (*workflow.WorkflowExecution, error) {
	query := `
		SELECT id, workflow_id, organization_id, deployment_id, status, error, node_executions, usage_credits, started_at, ended_at
		FROM executions WHERE id = ? AND organization_id = ?`
	row := s.db.QueryRowContext(ctx, query, id, orgID)
	exec, err := scanExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution %q: %w", id, ErrNotFound)
	}
	return exec, err
}

// List returns an organization's executions, newest first.
func (s *SQLiteStore) List(ctx context.Context, orgID string, opts workflow.ListOptions) ([]*workflow.WorkflowExecution, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `
		SELECT id, workflow_id, organization_id, deployment_id, status, error, node_executions, usage_credits, started_at, ended_at
		FROM executions WHERE organization_id = ?
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, orgID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()

	var out []*workflow.WorkflowExecution
	for rows.Next() {
		exec, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

// Lookup implements workflow.Journal.
func (s *SQLiteStore) Lookup(ctx context.Context, executionID, stepName string) (workflow.Value, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM step_journal WHERE execution_id = ? AND step_name = ?`,
		executionID, stepName).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("looking up step %q: %w", stepName, err)
	}
	var v workflow.Value
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false, fmt.Errorf("decoding step %q: %w", stepName, err)
	}
	return v, true, nil
}

// Record implements workflow.Journal. Recording an already journaled
// step keeps the first value, matching replay semantics.
func (s *SQLiteStore) Record(ctx context.Context, executionID, stepName string, v workflow.Value) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding step %q: %w", stepName, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO step_journal (execution_id, step_name, value, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(execution_id, step_name) DO NOTHING`,
		executionID, stepName, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording step %q: %w", stepName, err)
	}
	return nil
}

// scanExecution decodes one executions row from either a *sql.Row or
// *sql.Rows scan function.
func scanExecution(scan func(...any) error) (*workflow.WorkflowExecution, error) {
	var exec workflow.WorkflowExecution
	var status, nodes, startedAt string
	var deploymentID, errMsg, endedAt sql.NullString
	if err := scan(&exec.ID, &exec.WorkflowID, &exec.OrganizationID, &deploymentID,
		&status, &errMsg, &nodes, &exec.Usage, &startedAt, &endedAt); err != nil {
		return nil, err
	}
	exec.DeploymentID = deploymentID.String
	exec.Status = workflow.ExecutionStatus(status)
	exec.Error = errMsg.String
	if err := json.Unmarshal([]byte(nodes), &exec.NodeExecutions); err != nil {
		return nil, fmt.Errorf("decoding node executions: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		exec.StartedAt = t
	}
	if endedAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
			exec.EndedAt = t
		}
	}
	return &exec, nil
}
