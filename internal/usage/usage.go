// Package usage records one event per successful generation.
package usage

import (
	"context"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/internal/sqlinline"
)

// PostgresRecorder writes events to the usage_events table.
type PostgresRecorder struct {
	sql infra.SQLExecutor
}

func NewPostgresRecorder(sql infra.SQLExecutor) *PostgresRecorder {
	return &PostgresRecorder{sql: sql}
}

func (p *PostgresRecorder) Record(ctx context.Context, e domain.UsageEvent) error {
	_, err := p.sql.Exec(ctx, sqlinline.QInsertUsageEvent,
		e.AccountKey, e.Prompt, e.Provider, e.Country, e.LatencyMS, e.CreatedAt)
	return err
}

// LogRecorder emits events as structured log lines when no database is
// configured.
type LogRecorder struct {
	logger *infra.Logger
}

func NewLogRecorder(logger *infra.Logger) *LogRecorder {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &LogRecorder{logger: logger}
}

func (l *LogRecorder) Record(ctx context.Context, e domain.UsageEvent) error {
	l.logger.Info().
		Str("account", e.AccountKey).
		Str("provider", e.Provider).
		Str("country", e.Country).
		Int64("latency_ms", e.LatencyMS).
		Time("at", e.CreatedAt).
		Msg("usage: generation recorded")
	return nil
}

var (
	_ domain.UsageRepository = (*PostgresRecorder)(nil)
	_ domain.UsageRepository = (*LogRecorder)(nil)
)
