package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"projectflow/pkg/metrics"
	"projectflow/pkg/otel"
)

type queryStartKey struct{}

type queryStart struct {
	at   time.Time
	sql  string
	span trace.Span
}

// SlowQueryTracer 慢查询监控 Tracer，同时为每条语句创建 db span
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewSlowQueryTracer 创建慢查询 Tracer，阈值默认 100ms
func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op, table := describe(data.SQL)
	ctx, span := otel.DBSpan(ctx, op, table, data.SQL)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL, span: span})
}

// TraceQueryEnd 记录耗时，超过阈值时打印警告
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	duration := time.Since(start.at)
	otel.EndDBSpan(start.span, data.Err)
	op, table := describe(start.sql)
	metrics.RecordDBQueryDuration(op, table, duration)

	if duration <= t.slowThreshold {
		return
	}

	sql := start.sql
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}
	t.logger.Warn("slow-query",
		zap.String("sql", sql),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)
	metrics.IncrementSlowQuery()
}

// describe extracts the statement verb and target table for metric labels.
func describe(sql string) (op, table string) {
	fields := strings.Fields(strings.ToLower(sql))
	if len(fields) == 0 {
		return "unknown", "unknown"
	}
	op = fields[0]
	table = "unknown"
	var marker string
	switch op {
	case "insert":
		marker = "into"
	case "select", "delete":
		marker = "from"
	case "update":
		if len(fields) > 1 {
			table = fields[1]
		}
		return op, table
	default:
		return op, table
	}
	for i := 0; i < len(fields)-1; i++ {
		if fields[i] == marker {
			table = strings.Trim(fields[i+1], "(")
			break
		}
	}
	return op, table
}
