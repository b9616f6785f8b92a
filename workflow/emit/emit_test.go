package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestBufferedEmitter(t *testing.T) {
	t.Run("history preserves emission order", func(t *testing.T) {
		b := NewBufferedEmitter()
		b.Emit(Event{ExecutionID: "e1", Msg: MsgExecutionStart})
		b.Emit(Event{ExecutionID: "e1", Level: 0, NodeID: "a", Msg: MsgNodeCompleted})
		b.Emit(Event{ExecutionID: "e1", Msg: MsgExecutionEnd})
		b.Emit(Event{ExecutionID: "e2", Msg: MsgExecutionStart})

		history := b.History("e1")
		if len(history) != 3 {
			t.Fatalf("got %d events, want 3", len(history))
		}
		if history[0].Msg != MsgExecutionStart || history[2].Msg != MsgExecutionEnd {
			t.Fatalf("order wrong: %v", history)
		}
		if len(b.History("e2")) != 1 {
			t.Fatal("executions must not share history")
		}
	})

	t.Run("filter combines fields with AND", func(t *testing.T) {
		b := NewBufferedEmitter()
		b.Emit(Event{ExecutionID: "e1", Level: 0, NodeID: "a", Msg: MsgNodeCompleted})
		b.Emit(Event{ExecutionID: "e1", Level: 1, NodeID: "b", Msg: MsgNodeCompleted})
		b.Emit(Event{ExecutionID: "e1", Level: 1, NodeID: "c", Msg: MsgNodeError})

		one := 1
		got := b.HistoryWithFilter("e1", HistoryFilter{Msg: MsgNodeCompleted, MinLevel: &one})
		if len(got) != 1 || got[0].NodeID != "b" {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("clear drops one or all executions", func(t *testing.T) {
		b := NewBufferedEmitter()
		b.Emit(Event{ExecutionID: "e1", Msg: MsgExecutionStart})
		b.Emit(Event{ExecutionID: "e2", Msg: MsgExecutionStart})
		b.Clear("e1")
		if len(b.History("e1")) != 0 || len(b.History("e2")) != 1 {
			t.Fatal("clear of one execution misbehaved")
		}
		b.Clear("")
		if len(b.History("e2")) != 0 {
			t.Fatal("clear of everything misbehaved")
		}
	})
}

func TestLogEmitter(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogEmitter(&buf)
		l.Emit(Event{
			ExecutionID: "e1",
			Level:       2,
			NodeID:      "n1",
			Msg:         MsgNodeCompleted,
			Time:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		})
		line := buf.String()
		for _, want := range []string{"e1", "L2", "node_completed", "node=n1"} {
			if !strings.Contains(line, want) {
				t.Fatalf("line %q missing %q", line, want)
			}
		}
	})

	t.Run("jsonl format round trips", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewJSONLogEmitter(&buf)
		l.Emit(Event{ExecutionID: "e1", Msg: MsgExecutionStart, Meta: map[string]any{"nodes": 3}})

		var got Event
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		if got.ExecutionID != "e1" || got.Msg != MsgExecutionStart {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("zero time is filled", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewJSONLogEmitter(&buf)
		l.Emit(Event{ExecutionID: "e1", Msg: MsgExecutionStart})
		var got Event
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Time.IsZero() {
			t.Fatal("emitter must stamp events lacking a time")
		}
	})
}

func TestNullEmitter(t *testing.T) {
	// Must simply not panic.
	NewNullEmitter().Emit(Event{ExecutionID: "e1", Msg: MsgExecutionStart})
}

func TestOTelEmitter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer provider.Shutdown(context.Background())

	emitter := NewOTelEmitter(provider.Tracer("workflow"))

	t.Run("event becomes an attributed span", func(t *testing.T) {
		exporter.Reset()
		emitter.Emit(Event{
			ExecutionID: "e1",
			WorkflowID:  "wf1",
			Level:       1,
			NodeID:      "n1",
			Msg:         MsgNodeCompleted,
			Meta:        map[string]any{"usage": 3},
		})

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("got %d spans, want 1", len(spans))
		}
		span := spans[0]
		if span.Name != MsgNodeCompleted {
			t.Fatalf("span name = %q", span.Name)
		}
		attrs := map[string]string{}
		for _, kv := range span.Attributes {
			attrs[string(kv.Key)] = kv.Value.Emit()
		}
		if attrs["workflow.execution_id"] != "e1" || attrs["workflow.node_id"] != "n1" {
			t.Fatalf("attributes = %v", attrs)
		}
		if _, ok := attrs["workflow.usage"]; !ok {
			t.Fatalf("meta attribute missing: %v", attrs)
		}
	})

	t.Run("error meta marks the span", func(t *testing.T) {
		exporter.Reset()
		emitter.Emit(Event{
			ExecutionID: "e1",
			Msg:         MsgNodeError,
			Meta:        map[string]any{"error": "boom"},
		})
		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("got %d spans", len(spans))
		}
		if spans[0].Status.Description != "boom" {
			t.Fatalf("status = %+v", spans[0].Status)
		}
		if len(spans[0].Events) == 0 {
			t.Fatal("expected a recorded error event")
		}
	})
}
