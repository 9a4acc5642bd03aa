package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agroverse/marketmaker/internal/cache/redis"
	"github.com/agroverse/marketmaker/internal/domain"
	"github.com/agroverse/marketmaker/internal/feed"
	"github.com/agroverse/marketmaker/internal/scheduler"
)

// archiveInterval is how often the archiver drains aged cycle reports.
const archiveInterval = time.Hour

// RunMode starts the budget-gated trading loop, plus the cycle-report
// archiver when object storage is configured. With Redis enabled it first
// takes the distributed pair lock so only one instance trades the pair.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode",
		slog.String("pair", deps.Pair),
		slog.Bool("trading_enabled", a.cfg.Trading.Enabled),
	)

	var lease *redis.Lease
	if deps.PairLock != nil {
		ttl := a.cfg.Redis.LockTTL.Duration
		var err error
		lease, err = deps.PairLock.Acquire(ctx, deps.Pair, ttl)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return fmt.Errorf("app: another instance is trading %s: %w", deps.Pair, err)
			}
			return fmt.Errorf("app: acquire pair lock: %w", err)
		}
		defer lease.Release()
	}

	sched := a.newScheduler(deps)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sched.Run(ctx)
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return nil // clean shutdown
		}
		return err
	})

	if lease != nil {
		ttl := a.cfg.Redis.LockTTL.Duration
		g.Go(func() error {
			return a.refreshLease(ctx, lease, ttl)
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			err := deps.Archiver.Run(ctx, archiveInterval)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	return g.Wait()
}

// refreshLease extends the pair lock TTL at half its lifetime so the lock
// survives for as long as the loop runs. A lost lease stops trading.
func (a *App) refreshLease(ctx context.Context, lease *redis.Lease, ttl time.Duration) error {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := lease.Refresh(ctx, ttl); err != nil {
				return fmt.Errorf("app: pair lock lost: %w", err)
			}
		}
	}
}

// PlanMode runs a single budget-and-plan cycle without ever submitting, and
// reports the result. Useful for verifying configuration and eyeballing what
// the loop would buy.
func (a *App) PlanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting plan mode", slog.String("pair", deps.Pair))

	sched := a.newPlanOnlyScheduler(deps)
	report := sched.Cycle(ctx)
	if report.Err != "" {
		return fmt.Errorf("app: plan cycle: %s", report.Err)
	}

	plan := report.Plan
	if plan.IsZero() {
		a.logger.InfoContext(ctx, "plan is empty",
			slog.Float64("budget", report.Budget),
			slog.Int("book_levels", report.BookLevels),
		)
		return nil
	}

	for i, alloc := range plan.Allocations {
		a.logger.InfoContext(ctx, "plan allocation",
			slog.Int("level", i+1),
			slog.Float64("price", alloc.Price),
			slog.Float64("quantity", alloc.Quantity),
			slog.Float64("cost", alloc.Cost),
		)
	}
	a.logger.InfoContext(ctx, "plan summary",
		slog.Float64("budget", report.Budget),
		slog.Float64("total_cost", plan.TotalCost),
		slog.Float64("total_quantity", plan.TotalQuantity),
		slog.Float64("average_price", plan.AveragePrice),
	)
	return nil
}

// SubmitMode places the single order described in the configuration. It
// exists so the signing and submission path can be exercised in isolation
// from planning.
func (a *App) SubmitMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting submit mode", slog.String("pair", deps.Pair))

	order := domain.OrderRequest{
		BaseCurrency:  a.cfg.Exchange.BaseCurrency,
		QuoteCurrency: a.cfg.Exchange.QuoteCurrency,
		Side:          domain.OrderSide(a.cfg.Order.Side),
		Condition:     domain.OrderCondition(a.cfg.Trading.Condition),
		Quantity:      a.cfg.Order.Quantity,
		Price:         a.cfg.Order.Price,
		ClientOrderID: uuid.New().String(),
		Timestamp:     time.Now().UnixMilli(),
	}

	result, err := deps.Exchange.PlaceOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("app: submit order: %w", err)
	}

	a.logger.InfoContext(ctx, "order submitted",
		slog.String("order_id", result.OrderID),
		slog.String("status", result.Status),
		slog.String("type", string(order.Type())),
		slog.Float64("price", order.Price),
		slog.Float64("quantity", order.Quantity),
	)

	if deps.Audit != nil {
		if err := deps.Audit.RecordOrder(ctx, deps.Pair, order, result); err != nil {
			a.logger.ErrorContext(ctx, "order audit failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// MonitorMode streams the live order book over websocket and logs the top of
// book until interrupted.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.String("ws_url", a.cfg.Feed.WsURL),
		slog.String("pair", a.cfg.Feed.Pair),
	)

	onBook := func(ctx context.Context, book domain.OrderBook) {
		bestBid, hasBid := book.BestBid()
		bestAsk, hasAsk := book.BestAsk()

		attrs := []any{
			slog.Int("bid_levels", len(book.Bids)),
			slog.Int("ask_levels", len(book.Asks)),
		}
		if hasBid {
			attrs = append(attrs, slog.Float64("best_bid", bestBid.Price))
		}
		if hasAsk {
			attrs = append(attrs, slog.Float64("best_ask", bestAsk.Price))
		}
		if hasBid && hasAsk {
			attrs = append(attrs, slog.Float64("spread", bestAsk.Price-bestBid.Price))
		}
		a.logger.InfoContext(ctx, "book update", attrs...)
	}

	f := feed.NewBookFeed(a.cfg.Feed.WsURL, a.cfg.Feed.Pair, onBook, a.logger)
	defer f.Close()

	err := f.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newScheduler builds the live cycle loop from the wired dependencies.
func (a *App) newScheduler(deps *Dependencies) *scheduler.Scheduler {
	return scheduler.New(
		a.schedulerConfig(a.cfg.Trading.Enabled),
		deps.Budget,
		deps.Exchange,
		deps.Exchange,
		auditSink(deps),
		deps.Notifier,
		a.logger,
	)
}

// newPlanOnlyScheduler builds a scheduler that can never submit.
func (a *App) newPlanOnlyScheduler(deps *Dependencies) *scheduler.Scheduler {
	return scheduler.New(
		a.schedulerConfig(false),
		deps.Budget,
		deps.Exchange,
		deps.Exchange,
		nil,
		deps.Notifier,
		a.logger,
	)
}

func (a *App) schedulerConfig(enabled bool) scheduler.Config {
	return scheduler.Config{
		Pair:            pairLabel(a.cfg),
		BaseCurrency:    a.cfg.Exchange.BaseCurrency,
		QuoteCurrency:   a.cfg.Exchange.QuoteCurrency,
		Condition:       domain.OrderCondition(a.cfg.Trading.Condition),
		DepthLimit:      a.cfg.Exchange.DepthLimit,
		Interval:        a.cfg.Trading.Interval.Duration,
		Enabled:         enabled,
		MaxAuthFailures: a.cfg.Trading.MaxAuthFailures,
	}
}

// auditSink converts the concrete store into the scheduler's interface while
// keeping a disabled store as a true nil.
func auditSink(deps *Dependencies) scheduler.AuditSink {
	if deps.Audit == nil {
		return nil
	}
	return deps.Audit
}
