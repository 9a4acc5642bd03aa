// Package notify delivers operator alerts about trading activity. Alerts are
// fanned out to every configured channel (Telegram, Discord) and filtered by
// event type so an operator can subscribe to order fills without also being
// paged for every cycle hiccup.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event types emitted by the trading loop.
const (
	EventOrderSubmitted = "order_submitted"
	EventAuthHalt       = "auth_halt"
	EventCycleError     = "cycle_error"
	EventBudgetError    = "budget_error"
)

// Sender delivers a single alert over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel, e.g. "telegram".
	Name() string
}

// Notifier fans alerts out to its senders, forwarding only event types that
// appear in the configured allow list. An empty allow list forwards
// everything.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// New builds a Notifier over the given senders. events lists the event types
// to forward; leave it empty to forward all of them.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify forwards the alert to every sender when the event type passes the
// allow list. Individual sender failures are collected rather than aborting
// delivery to the remaining channels.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if n == nil {
		return nil
	}
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// OrderSubmitted announces a successfully placed order.
func (n *Notifier) OrderSubmitted(ctx context.Context, pair, orderID string, price, quantity float64) error {
	return n.Notify(ctx, EventOrderSubmitted,
		"Order submitted",
		fmt.Sprintf("pair=%s id=%s price=%.10g qty=%.10g", pair, orderID, price, quantity))
}

// AuthHalt announces that the trading loop stopped itself after repeated
// authentication rejections from the exchange.
func (n *Notifier) AuthHalt(ctx context.Context, pair string, failures int) error {
	return n.Notify(ctx, EventAuthHalt,
		"Trading halted: authentication failures",
		fmt.Sprintf("pair=%s consecutive_failures=%d, check API credentials", pair, failures))
}

// CycleError announces a failed trading cycle.
func (n *Notifier) CycleError(ctx context.Context, pair string, err error) error {
	return n.Notify(ctx, EventCycleError,
		"Trading cycle failed",
		fmt.Sprintf("pair=%s error=%v", pair, err))
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
