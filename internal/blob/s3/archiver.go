package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/agroverse/marketmaker/internal/domain"
)

// archiveBatchSize bounds one export so a long backlog is drained in chunks.
const archiveBatchSize = 500

// CycleSource provides read and prune access to persisted cycle reports. The
// Postgres audit store satisfies it.
type CycleSource interface {
	ListCyclesBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.CycleRecord, error)
	DeleteCycles(ctx context.Context, ids []int64) error
}

// objectPutter is the single upload call the archiver needs from the Writer.
type objectPutter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged cycle reports to object storage as JSONL and prunes
// the exported rows from the audit store. Rows are deleted only after the
// upload succeeded, so a failed upload leaves them in place for the next
// pass.
type Archiver struct {
	writer    objectPutter
	source    CycleSource
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver that exports cycles older than retention.
func NewArchiver(writer *Writer, source CycleSource, retention time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		source:    source,
		retention: retention,
		logger:    logger.With(slog.String("component", "archiver")),
		now:       time.Now,
	}
}

// ArchiveOnce exports one batch of aged cycles and returns how many rows it
// moved. A zero count means the backlog is drained.
func (a *Archiver) ArchiveOnce(ctx context.Context) (int, error) {
	cutoff := a.now().Add(-a.retention)

	cycles, err := a.source.ListCyclesBefore(ctx, cutoff, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("archive: list cycles: %w", err)
	}
	if len(cycles) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	ids := make([]int64, 0, len(cycles))
	for _, c := range cycles {
		buf.Write(c.Report)
		buf.WriteByte('\n')
		ids = append(ids, c.ID)
	}

	key := archiveKey(cycles[0].Pair, a.now())
	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: upload %s: %w", key, err)
	}

	if err := a.source.DeleteCycles(ctx, ids); err != nil {
		return 0, fmt.Errorf("archive: prune after upload of %s: %w", key, err)
	}

	a.logger.InfoContext(ctx, "cycles archived",
		slog.String("key", key),
		slog.Int("count", len(ids)),
	)
	return len(ids), nil
}

// Run drains the backlog once per interval until the context is cancelled.
// Errors are logged, not fatal; the next tick retries.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := a.ArchiveOnce(ctx)
				if err != nil {
					a.logger.ErrorContext(ctx, "archive pass failed",
						slog.String("error", err.Error()),
					)
					break
				}
				if n == 0 {
					break
				}
			}
		}
	}
}

// archiveKey lays exported batches out by pair and day so object listings
// stay browsable.
func archiveKey(pair string, now time.Time) string {
	return fmt.Sprintf("cycles/%s/%s/cycles-%d.jsonl",
		pair, now.UTC().Format("2006-01-02"), now.UnixNano())
}
