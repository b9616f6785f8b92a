package store

import (
	"context"
	"os"
	"testing"

	"github.com/dafthunk-com/dafthunk-sub004/workflow"
)

// MySQL tests need a live server. Point WORKFLOW_MYSQL_DSN at a
// disposable database, e.g.
// "root:secret@tcp(127.0.0.1:3306)/workflow_test?parseTime=true".
func newTestMySQLStore(t *testing.T) *MySQLStore {
	t.Helper()
	dsn := os.Getenv("WORKFLOW_MYSQL_DSN")
	if dsn == "" {
		t.Skip("WORKFLOW_MYSQL_DSN not set")
	}
	s, err := NewMySQLStore(dsn)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM executions"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM step_journal"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMySQLStore(t *testing.T) {
	testExecutionStore(t, newTestMySQLStore(t))
}

func TestMySQLJournal(t *testing.T) {
	ctx := context.Background()
	s := newTestMySQLStore(t)

	if err := s.Record(ctx, "exec-1", "node:a", "first"); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, "exec-1", "node:a", "second"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Lookup(ctx, "exec-1", "node:a")
	if err != nil || !ok {
		t.Fatalf("v = %v, ok = %v, err = %v", v, ok, err)
	}
	if v != "first" {
		t.Fatalf("v = %v, want first", v)
	}
}

var (
	_ workflow.ExecutionStore = (*MySQLStore)(nil)
	_ workflow.Journal        = (*MySQLStore)(nil)
)
