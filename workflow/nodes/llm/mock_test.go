package llm

import (
	"context"
	"errors"
	"testing"
)

func TestMock(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted responses in order then last repeats", func(t *testing.T) {
		m := NewMock(
			Response{Text: "first", Tokens: 1},
			Response{Text: "second", Tokens: 2},
		)
		want := []string{"first", "second", "second"}
		for i, text := range want {
			resp, err := m.Complete(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
			if err != nil {
				t.Fatal(err)
			}
			if resp.Text != text {
				t.Fatalf("call %d: text = %q, want %q", i, resp.Text, text)
			}
		}
		if m.Calls() != 3 {
			t.Fatalf("calls = %d", m.Calls())
		}
	})

	t.Run("requests are recorded", func(t *testing.T) {
		m := NewMock(Response{Text: "ok"})
		req := Request{
			Model:    "test-model",
			System:   "be brief",
			Messages: []Message{{Role: RoleUser, Content: "hello"}},
		}
		if _, err := m.Complete(ctx, req); err != nil {
			t.Fatal(err)
		}
		got := m.Requests()
		if len(got) != 1 || got[0].Model != "test-model" || got[0].System != "be brief" {
			t.Fatalf("requests = %+v", got)
		}
	})

	t.Run("fail makes every call error", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		m := NewMock(Response{Text: "ok"}).Fail(boom)
		if _, err := m.Complete(ctx, Request{}); !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("no script means error", func(t *testing.T) {
		m := NewMock()
		if _, err := m.Complete(ctx, Request{}); err == nil {
			t.Fatal("expected error")
		}
	})
}
