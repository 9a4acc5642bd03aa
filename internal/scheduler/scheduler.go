// Package scheduler drives the periodic buy cycle: fetch the daily budget,
// fetch the order book, plan purchases against the budget, and submit the
// planned orders.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/agroverse/marketmaker/internal/domain"
	"github.com/agroverse/marketmaker/internal/notify"
	"github.com/agroverse/marketmaker/internal/planner"
)

// ErrAuthHalted is returned by Run after too many consecutive authentication
// rejections from the exchange. The loop stops rather than burning through a
// rate limit with credentials that no longer work.
var ErrAuthHalted = errors.New("scheduler: halted after repeated authentication failures")

// BudgetSource supplies the spendable USD amount for one cycle.
type BudgetSource interface {
	DailyBudget(ctx context.Context) (float64, error)
}

// BookFetcher returns the current order book for the configured pair.
type BookFetcher interface {
	GetOrderBook(ctx context.Context, limit int) (domain.OrderBook, error)
}

// OrderPlacer submits one signed order to the exchange.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order domain.OrderRequest) (domain.OrderResult, error)
}

// AuditSink persists orders and cycle reports. The Postgres audit store
// satisfies it; a nil sink disables auditing.
type AuditSink interface {
	RecordOrder(ctx context.Context, pair string, req domain.OrderRequest, res domain.OrderResult) error
	RecordCycle(ctx context.Context, pair string, report domain.CycleReport) error
}

// Config holds the per-pair trading parameters for the cycle loop.
type Config struct {
	Pair          string
	BaseCurrency  string
	QuoteCurrency string
	Condition     domain.OrderCondition
	DepthLimit    int
	Interval      time.Duration

	// Enabled gates real submission. When false the scheduler plans and
	// reports but never places an order.
	Enabled bool

	// MaxAuthFailures is the number of consecutive credential rejections
	// tolerated before the loop halts.
	MaxAuthFailures int
}

// Scheduler runs the budget-gated buy cycle. Each cycle is isolated: a
// failure is reported and the next tick starts fresh, except for repeated
// authentication failures which halt the loop.
type Scheduler struct {
	cfg      Config
	budget   BudgetSource
	books    BookFetcher
	orders   OrderPlacer
	audit    AuditSink
	notifier *notify.Notifier
	logger   *slog.Logger

	now          func() time.Time
	authFailures int
}

// New creates a Scheduler. audit and notifier may be nil.
func New(cfg Config, budget BudgetSource, books BookFetcher, orders OrderPlacer, audit AuditSink, notifier *notify.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		budget:   budget,
		books:    books,
		orders:   orders,
		audit:    audit,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "scheduler"), slog.String("pair", cfg.Pair)),
		now:      time.Now,
	}
}

// Run executes one cycle immediately, then one per interval, until ctx is
// cancelled or the auth-failure threshold is crossed.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler starting",
		slog.Duration("interval", s.cfg.Interval),
		slog.Bool("trading_enabled", s.cfg.Enabled),
	)

	if err := s.tick(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick runs one cycle and converts the halt condition into a loop-fatal
// error.
func (s *Scheduler) tick(ctx context.Context) error {
	report := s.Cycle(ctx)

	if s.audit != nil {
		if err := s.audit.RecordCycle(ctx, s.cfg.Pair, report); err != nil {
			s.logger.ErrorContext(ctx, "cycle audit failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.cfg.MaxAuthFailures > 0 && s.authFailures >= s.cfg.MaxAuthFailures {
		_ = s.notifier.AuthHalt(ctx, s.cfg.Pair, s.authFailures)
		s.logger.ErrorContext(ctx, "halting after consecutive auth failures",
			slog.Int("failures", s.authFailures),
		)
		return ErrAuthHalted
	}
	return nil
}

// Cycle executes one budget-plan-submit pass and returns its report. All
// failures are captured in the report; none abort the caller's loop.
func (s *Scheduler) Cycle(ctx context.Context) (report domain.CycleReport) {
	report.StartedAt = s.now()
	defer func() {
		report.FinishedAt = s.now()
	}()

	budget, err := s.budget.DailyBudget(ctx)
	if err != nil {
		report.Err = fmt.Sprintf("budget: %v", err)
		s.logger.ErrorContext(ctx, "budget fetch failed",
			slog.String("error", err.Error()),
		)
		_ = s.notifier.Notify(ctx, notify.EventBudgetError,
			"Budget fetch failed",
			fmt.Sprintf("pair=%s error=%v", s.cfg.Pair, err))
		return report
	}
	report.Budget = budget
	report.BudgetOK = true

	book, err := s.books.GetOrderBook(ctx, s.cfg.DepthLimit)
	if err != nil {
		report.Err = fmt.Sprintf("order book: %v", err)
		s.logger.ErrorContext(ctx, "order book fetch failed",
			slog.String("error", err.Error()),
		)
		_ = s.notifier.CycleError(ctx, s.cfg.Pair, err)
		return report
	}
	report.BookLevels = len(book.Asks)

	plan := planner.Plan(budget, book.Asks)
	report.Plan = plan

	if plan.IsZero() {
		s.logger.InfoContext(ctx, "nothing to buy this cycle",
			slog.Float64("budget", budget),
			slog.Int("ask_levels", len(book.Asks)),
		)
		return report
	}

	s.logger.InfoContext(ctx, "purchase plan ready",
		slog.Float64("budget", budget),
		slog.Float64("total_cost", plan.TotalCost),
		slog.Float64("total_quantity", plan.TotalQuantity),
		slog.Float64("average_price", plan.AveragePrice),
		slog.Int("allocations", plan.Levels()),
	)

	if !s.cfg.Enabled {
		s.logger.InfoContext(ctx, "dry run, skipping submission")
		return report
	}

	s.submit(ctx, plan, &report)
	return report
}

// submit places one limit order per plan allocation. The first failure stops
// this cycle's submission; authentication rejections additionally feed the
// halt counter.
func (s *Scheduler) submit(ctx context.Context, plan domain.PurchasePlan, report *domain.CycleReport) {
	for _, alloc := range plan.Allocations {
		order := domain.OrderRequest{
			BaseCurrency:  s.cfg.BaseCurrency,
			QuoteCurrency: s.cfg.QuoteCurrency,
			Side:          domain.OrderSideBuy,
			Condition:     s.cfg.Condition,
			Quantity:      alloc.Quantity,
			Price:         alloc.Price,
			ClientOrderID: uuid.New().String(),
			Timestamp:     s.now().UnixMilli(),
		}

		result, err := s.orders.PlaceOrder(ctx, order)
		if err != nil {
			report.Err = fmt.Sprintf("place order: %v", err)
			if errors.Is(err, domain.ErrUnauthorized) {
				s.authFailures++
				s.logger.ErrorContext(ctx, "order rejected: authentication",
					slog.Int("consecutive_failures", s.authFailures),
				)
			} else {
				s.logger.ErrorContext(ctx, "order submission failed",
					slog.Float64("price", order.Price),
					slog.Float64("quantity", order.Quantity),
					slog.String("error", err.Error()),
				)
				_ = s.notifier.CycleError(ctx, s.cfg.Pair, err)
			}
			return
		}

		s.authFailures = 0
		report.Submitted = true
		report.SubmittedIDs = append(report.SubmittedIDs, result.OrderID)

		s.logger.InfoContext(ctx, "order submitted",
			slog.String("order_id", result.OrderID),
			slog.Float64("price", order.Price),
			slog.Float64("quantity", order.Quantity),
			slog.String("status", result.Status),
		)
		_ = s.notifier.OrderSubmitted(ctx, s.cfg.Pair, result.OrderID, order.Price, order.Quantity)

		if s.audit != nil {
			if err := s.audit.RecordOrder(ctx, s.cfg.Pair, order, result); err != nil {
				s.logger.ErrorContext(ctx, "order audit failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
