package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_EventFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := New([]Sender{s}, []string{EventOrderSubmitted}, discard())

	if err := n.Notify(t.Context(), EventCycleError, "nope", "filtered"); err != nil {
		t.Fatalf("filtered event returned error: %v", err)
	}
	if len(s.titles) != 0 {
		t.Fatalf("filtered event was delivered: %v", s.titles)
	}

	if err := n.OrderSubmitted(t.Context(), "TDG/USDT", "oid-1", 0.001, 100); err != nil {
		t.Fatalf("OrderSubmitted: %v", err)
	}
	if len(s.titles) != 1 || s.titles[0] != "Order submitted" {
		t.Fatalf("allowed event not delivered: %v", s.titles)
	}
}

func TestNotify_EmptyAllowListForwardsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := New([]Sender{s}, nil, discard())

	if err := n.AuthHalt(t.Context(), "TDG/USDT", 3); err != nil {
		t.Fatalf("AuthHalt: %v", err)
	}
	if err := n.CycleError(t.Context(), "TDG/USDT", errors.New("boom")); err != nil {
		t.Fatalf("CycleError: %v", err)
	}
	if len(s.titles) != 2 {
		t.Fatalf("delivered %d alerts, want 2", len(s.titles))
	}
}

func TestDispatch_SenderFailureDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("offline")}
	good := &recordingSender{name: "good"}
	n := New([]Sender{bad, good}, nil, discard())

	err := n.Notify(t.Context(), EventCycleError, "t", "m")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "bad: offline") {
		t.Errorf("error missing failing sender detail: %v", err)
	}
	if len(good.titles) != 1 {
		t.Error("healthy sender skipped after a failure")
	}
}

func TestNotify_NilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	if err := n.Notify(t.Context(), EventCycleError, "t", "m"); err != nil {
		t.Fatalf("nil notifier returned error: %v", err)
	}
}
