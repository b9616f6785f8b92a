package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// SQLDatabaseService is a workflow.DatabaseService over database/sql.
// Databases are registered per organization under an id or handle with
// a driver name ("sqlite" or "mysql", both linked here) and DSN;
// connections open lazily on first resolve and are shared afterwards.
type SQLDatabaseService struct {
	mu      sync.Mutex
	configs map[string]sqlConfig
	opened  map[string]*sql.DB
}

type sqlConfig struct {
	driver string
	dsn    string
}

// NewSQLDatabaseService returns an empty service.
func NewSQLDatabaseService() *SQLDatabaseService {
	return &SQLDatabaseService{
		configs: make(map[string]sqlConfig),
		opened:  make(map[string]*sql.DB),
	}
}

// Register makes a database resolvable under (orgID, idOrHandle).
func (s *SQLDatabaseService) Register(orgID, idOrHandle, driver, dsn string) {
	s.mu.Lock()
	s.configs[orgID+"/"+idOrHandle] = sqlConfig{driver: driver, dsn: dsn}
	s.mu.Unlock()
}

// Resolve returns a connection handle, or nil when the database is not
// registered.
func (s *SQLDatabaseService) Resolve(ctx context.Context, idOrHandle, orgID string) (workflow.Connection, error) {
	key := orgID + "/" + idOrHandle

	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.opened[key]; ok {
		return &sqlConnection{db: db}, nil
	}
	cfg, ok := s.configs[key]
	if !ok {
		return nil, nil
	}
	db, err := sql.Open(cfg.driver, cfg.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", idOrHandle, err)
	}
	if cfg.driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	s.opened[key] = db
	return &sqlConnection{db: db}, nil
}

// Close closes every opened connection.
func (s *SQLDatabaseService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for key, db := range s.opened {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.opened, key)
	}
	return firstErr
}

type sqlConnection struct {
	db *sql.DB
}

// Query runs a row-returning statement and materializes the rows as
// name-keyed maps.
func (c *sqlConnection) Query(ctx context.Context, query string, params []workflow.Value) (*workflow.QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &workflow.QueryResult{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]workflow.Value, len(cols))
		for i, col := range cols {
			v := values[i]
			// Drivers hand back []byte for text columns.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowsAffected = int64(len(result.Rows))
	return result, nil
}

// Execute runs a statement and reports affected rows and the last
// insert id.
func (c *sqlConnection) Execute(ctx context.Context, query string, params []workflow.Value) (*workflow.QueryResult, error) {
	res, err := c.db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	result := &workflow.QueryResult{}
	if n, err := res.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertRowID = id
	}
	return result, nil
}
