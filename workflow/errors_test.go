package workflow

import (
	"errors"
	"testing"
)

func TestRuntimeError(t *testing.T) {
	err := Errorf(CodeCreditExceeded, "organization %q lacks credits", "org-1")
	if err.Error() != `credit_exceeded: organization "org-1" lacks credits` {
		t.Fatalf("message = %q", err.Error())
	}
	if CodeOf(err) != CodeCreditExceeded {
		t.Fatalf("code = %s", CodeOf(err))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("boom")) != CodeNodeError {
		t.Fatal("plain errors must classify as node_error")
	}
}
