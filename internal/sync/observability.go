package sync

import (
	"context"
	"log/slog"
	"time"
)

// TableSyncEvent captures the outcome of one table's reconciliation pass.
type TableSyncEvent struct {
	Table    string
	Rows     int
	Duration time.Duration
	Err      error
}

// Observer receives per-table sync telemetry.
type Observer interface {
	ObserveTableSync(ctx context.Context, event TableSyncEvent)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) ObserveTableSync(context.Context, TableSyncEvent) {}

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver writes sync telemetry through the given logger.
func NewLogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		return NoopObserver{}
	}
	return &logObserver{logger: logger}
}

func (o *logObserver) ObserveTableSync(ctx context.Context, event TableSyncEvent) {
	attrs := []any{
		"table", event.Table,
		"rows", event.Rows,
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.ErrorContext(ctx, "table_sync", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "table_sync", attrs...)
}
