package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// MySQLStore is a MySQL-backed workflow.ExecutionStore plus step
// journal, for multi-process hosts sharing one durable backend. The
// DSN must enable parseTime, e.g.
//
//	user:pass@tcp(localhost:3306)/workflows?parseTime=true
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore connects to MySQL and migrates the schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	executions := `
		CREATE TABLE IF NOT EXISTS executions (
			id VARCHAR(64) PRIMARY KEY,
			workflow_id VARCHAR(64) NOT NULL,
			organization_id VARCHAR(64) NOT NULL,
			deployment_id VARCHAR(64),
			status VARCHAR(16) NOT NULL,
			error TEXT,
			node_executions LONGTEXT NOT NULL,
			usage_credits INT NOT NULL DEFAULT 0,
			started_at DATETIME(6) NOT NULL,
			ended_at DATETIME(6) NULL,
			INDEX idx_executions_org (organization_id, started_at)
		)`
	if _, err := s.db.ExecContext(ctx, executions); err != nil {
		return err
	}

	journal := `
		CREATE TABLE IF NOT EXISTS step_journal (
			execution_id VARCHAR(64) NOT NULL,
			step_name VARCHAR(255) NOT NULL,
			value LONGTEXT NOT NULL,
			recorded_at DATETIME(6) NOT NULL,
			PRIMARY KEY (execution_id, step_name)
		)`
	_, err := s.db.ExecContext(ctx, journal)
	return err
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error { return s.db.Close() }

// Save upserts the execution record.
func (s *MySQLStore) Save(ctx context.Context, exec *workflow.WorkflowExecution) (*workflow.WorkflowExecution, error) {
	nodes, err := json.Marshal(exec.NodeExecutions)
	if err != nil {
		return nil, fmt.Errorf("encoding node executions: %w", err)
	}

	var endedAt any
	if !exec.EndedAt.IsZero() {
		endedAt = exec.EndedAt.UTC()
	}
	query := `
		INSERT INTO executions
			(id, workflow_id, organization_id, deployment_id, status, error, node_executions, usage_credits, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			error = VALUES(error),
			node_executions = VALUES(node_executions),
			usage_credits = VALUES(usage_credits),
			ended_at = VALUES(ended_at)`
	_, err = s.db.ExecContext(ctx, query,
		exec.ID, exec.WorkflowID, exec.OrganizationID, exec.DeploymentID,
		string(exec.Status), exec.Error, string(nodes), exec.Usage,
		exec.StartedAt.UTC(), endedAt)
	if err != nil {
		return nil, fmt.Errorf("saving execution %q: %w", exec.ID, err)
	}
	return s.Get(ctx, exec.ID, exec.OrganizationID)
}

// Get returns one execution scoped to an organization.
func (s *MySQLStore) Get(ctx context.Context, id, orgID string) (*workflow.WorkflowExecution, error) {
	query := `
		SELECT id, workflow_id, organization_id, deployment_id, status, error, node_executions, usage_credits, started_at, ended_at
		FROM executions WHERE id = ? AND organization_id = ?`
	row := s.db.QueryRowContext(ctx, query, id, orgID)
	exec, err := scanMySQLExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution %q: %w", id, ErrNotFound)
	}
	return exec, err
}

// List returns an organization's executions, newest first.
func (s *MySQLStore) List(ctx context.Context, orgID string, opts workflow.ListOptions) ([]*workflow.WorkflowExecution, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
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
		exec, err := scanMySQLExecution(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

// Lookup implements workflow.Journal.
func (s *MySQLStore) Lookup(ctx context.Context, executionID, stepName string) (workflow.Value, bool, error) {
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

// Record implements workflow.Journal, keeping the first recorded value
// for a step name.
func (s *MySQLStore) Record(ctx context.Context, executionID, stepName string, v workflow.Value) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding step %q: %w", stepName, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT IGNORE INTO step_journal (execution_id, step_name, value, recorded_at)
		VALUES (?, ?, ?, ?)`,
		executionID, stepName, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording step %q: %w", stepName, err)
	}
	return nil
}

func scanMySQLExecution(scan func(...any) error) (*workflow.WorkflowExecution, error) {
	var exec workflow.WorkflowExecution
	var status, nodes string
	var deploymentID, errMsg sql.NullString
	var endedAt sql.NullTime
	if err := scan(&exec.ID, &exec.WorkflowID, &exec.OrganizationID, &deploymentID,
		&status, &errMsg, &nodes, &exec.Usage, &exec.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	exec.DeploymentID = deploymentID.String
	exec.Status = workflow.ExecutionStatus(status)
	exec.Error = errMsg.String
	exec.EndedAt = endedAt.Time
	if err := json.Unmarshal([]byte(nodes), &exec.NodeExecutions); err != nil {
		return nil, fmt.Errorf("decoding node executions: %w", err)
	}
	return &exec, nil
}
