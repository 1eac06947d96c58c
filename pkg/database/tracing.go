package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Vishwagit2006/Final-Project-sub000/pkg/database"

type queryLabelKey struct{}

// queryLabel names the repository call a statement belongs to.
type queryLabel struct {
	table     string
	operation string
}

// TraceQuery starts a client span named "db.<table>.<operation>" and labels
// ctx so the pool's slow query log can name the call. The returned function
// ends the span and must be called exactly once:
//
//	ctx, end := database.TraceQuery(ctx, "sellers", "GetByID", query)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, table, operation, statement string) (context.Context, func(error)) {
	ctx = context.WithValue(ctx, queryLabelKey{}, queryLabel{table: table, operation: operation})
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+table+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.sql.table", table),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

type queryStartKey struct{}

// slowQueryTracer is a pgx.QueryTracer that warns about every statement
// running at least threshold.
type slowQueryTracer struct {
	threshold time.Duration
	logger    *slog.Logger
}

var _ pgx.QueryTracer = (*slowQueryTracer)(nil)

func (t *slowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (t *slowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed < t.threshold {
		return
	}

	attrs := []slog.Attr{
		slog.Duration("duration", elapsed),
		slog.String("command", data.CommandTag.String()),
	}
	if label, ok := ctx.Value(queryLabelKey{}).(queryLabel); ok {
		attrs = append(attrs,
			slog.String("table", label.table),
			slog.String("operation", label.operation),
		)
	}
	if data.Err != nil {
		attrs = append(attrs, slog.String("error", data.Err.Error()))
	}
	t.logger.LogAttrs(ctx, slog.LevelWarn, "slow query detected", attrs...)
}
