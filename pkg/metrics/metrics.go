package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 总线发布计数
	BusEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Total number of events published on the in-process bus",
		},
		[]string{"kind", "type"}, // kind: milestones, documents, messages, notifications
	)

	// 订阅者失败计数（错误或 panic），不会影响发布方
	BusHandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_handler_failures_total",
			Help: "Total number of bus subscriber failures",
		},
		[]string{"kind", "reason"}, // reason: error, panic
	)

	// 里程碑状态流转计数
	MilestoneTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestone_transitions_total",
			Help: "Total number of milestone workflow operations applied",
		},
		[]string{"action"},
	)

	// MQ 发布失败计数
	MQPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_publish_failures_total",
			Help: "Total number of failed MQ publishes",
		},
		[]string{"kind"},
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"queue"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 通知入库计数
	NotificationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_stored_total",
			Help: "Total number of notifications processed by the worker",
		},
		[]string{"status"}, // status: success, duplicate, failed
	)

	// outbox 事件状态计数
	OutboxEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Events parked in or drained from the outbox",
		},
		[]string{"status"}, // status: pending, sent, failed
	)
)

func IncBusPublished(kind, eventType string) {
	BusEventsPublished.WithLabelValues(kind, eventType).Inc()
}

func IncBusHandlerFailure(kind, reason string) {
	BusHandlerFailures.WithLabelValues(kind, reason).Inc()
}

func IncMilestoneTransition(action string) {
	MilestoneTransitions.WithLabelValues(action).Inc()
}

func IncMQPublishFailure(kind string) {
	MQPublishFailures.WithLabelValues(kind).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncNotificationStored(status string) {
	NotificationsStored.WithLabelValues(status).Inc()
}

func IncOutboxEvent(status string) {
	OutboxEvents.WithLabelValues(status).Inc()
}
