package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// DBSpan 为数据库操作创建 span，名称形如 db.insert notifications
func DBSpan(ctx context.Context, operation, table, statement string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "db."+operation+" "+table,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemKey.String("postgresql"),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.sql.table", table),
			attribute.String("db.statement", statement),
		),
	)
}

// EndDBSpan records err (if any) and ends the span.
func EndDBSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
