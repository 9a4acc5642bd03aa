package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agroverse/marketmaker/internal/domain"
)

// AuditStore records submitted orders and finished cycles. It is an
// append-only operator audit trail; the trading loop never reads it back.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// RecordOrder persists one submitted order together with the exchange's
// acknowledgement.
func (s *AuditStore) RecordOrder(ctx context.Context, pair string, req domain.OrderRequest, res domain.OrderResult) error {
	const query = `
		INSERT INTO orders (client_order_id, exchange_id, pair, side, condition, price, quantity, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (client_order_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		req.ClientOrderID, res.OrderID, pair,
		string(req.Side), string(req.Condition),
		req.Price, req.Quantity,
		res.Status, res.Message,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order %s: %w", req.ClientOrderID, err)
	}
	return nil
}

// RecordCycle persists one cycle report. The full report is stored as JSONB
// next to the queryable summary columns.
func (s *AuditStore) RecordCycle(ctx context.Context, pair string, report domain.CycleReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("postgres: marshal cycle report: %w", err)
	}

	const query = `
		INSERT INTO cycles (pair, started_at, finished_at, budget, budget_ok, book_levels, submitted, error, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`

	_, err = s.pool.Exec(ctx, query,
		pair, report.StartedAt, report.FinishedAt,
		report.Budget, report.BudgetOK, report.BookLevels,
		len(report.SubmittedIDs), report.Err, payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: record cycle: %w", err)
	}
	return nil
}

// ListCyclesBefore returns up to limit cycle rows created before the cutoff,
// oldest first. The archiver exports these before pruning them.
func (s *AuditStore) ListCyclesBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.CycleRecord, error) {
	const query = `
		SELECT id, pair, started_at, report
		FROM cycles
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []domain.CycleRecord
	for rows.Next() {
		var c domain.CycleRecord
		if err := rows.Scan(&c.ID, &c.Pair, &c.StartedAt, &c.Report); err != nil {
			return nil, fmt.Errorf("postgres: scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list cycles: %w", err)
	}
	return cycles, nil
}

// DeleteCycles removes the given cycle rows after they have been archived.
func (s *AuditStore) DeleteCycles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM cycles WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("postgres: delete cycles: %w", err)
	}
	return nil
}
