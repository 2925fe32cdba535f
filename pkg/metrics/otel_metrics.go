package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 业务指标集合
type OTelMetrics struct {
	// 报表相关指标
	ReportTotal    metric.Int64Counter
	ReportDuration metric.Float64Histogram

	// Slack 网关相关指标
	GatewayCallTotal    metric.Int64Counter
	GatewayCallDuration metric.Float64Histogram
	GatewayBreakerOpen  metric.Int64Counter

	// 命令与台账
	CommandTotal      metric.Int64Counter
	LeaveFiledTotal   metric.Int64Counter
	QueueConsumeTotal metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	mu      sync.RWMutex
)

// InitMetrics 初始化业务指标。未配置 MeterProvider 时使用全局 no-op 实现。
func InitMetrics() error {
	meter := otel.Meter("attendancebot")
	m := &OTelMetrics{}
	var err error

	m.ReportTotal, err = meter.Int64Counter(
		"report_generated_total",
		metric.WithDescription("Total number of attendance reports generated"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return err
	}

	m.ReportDuration, err = meter.Float64Histogram(
		"report_duration_seconds",
		metric.WithDescription("Time spent building an attendance report"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.GatewayCallTotal, err = meter.Int64Counter(
		"slack_api_calls_total",
		metric.WithDescription("Total number of Slack Web API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	m.GatewayCallDuration, err = meter.Float64Histogram(
		"slack_api_call_duration_seconds",
		metric.WithDescription("Slack Web API call latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	m.GatewayBreakerOpen, err = meter.Int64Counter(
		"slack_breaker_open_total",
		metric.WithDescription("Number of times the Slack circuit breaker opened"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	m.CommandTotal, err = meter.Int64Counter(
		"slash_command_total",
		metric.WithDescription("Total number of handled bot commands"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	m.LeaveFiledTotal, err = meter.Int64Counter(
		"leave_filed_total",
		metric.WithDescription("Total number of leave records filed"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	m.QueueConsumeTotal, err = meter.Int64Counter(
		"queue_messages_consumed_total",
		metric.WithDescription("Total number of consumed command messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	mu.Lock()
	metrics = m
	mu.Unlock()
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil
func GetMetrics() *OTelMetrics {
	mu.RLock()
	defer mu.RUnlock()
	return metrics
}

// RecordReport 记录一次报表生成
func RecordReport(ctx context.Context, kind, outcome string, seconds float64) {
	m := GetMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.ReportTotal.Add(ctx, 1, attrs)
	m.ReportDuration.Record(ctx, seconds, attrs)
}

// RecordGatewayCall 记录一次 Slack API 调用
func RecordGatewayCall(ctx context.Context, method string, err error, seconds float64) {
	m := GetMetrics()
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	)
	m.GatewayCallTotal.Add(ctx, 1, attrs)
	m.GatewayCallDuration.Record(ctx, seconds, attrs)
}

// RecordBreakerOpen 记录熔断器打开
func RecordBreakerOpen(ctx context.Context, name string) {
	if m := GetMetrics(); m != nil {
		m.GatewayBreakerOpen.Add(ctx, 1, metric.WithAttributes(attribute.String("breaker", name)))
	}
}

// RecordCommand 记录命令处理结果
func RecordCommand(ctx context.Context, action, outcome string) {
	if m := GetMetrics(); m != nil {
		m.CommandTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordLeaveFiled 记录一次请假登记
func RecordLeaveFiled(ctx context.Context, leaveType string) {
	if m := GetMetrics(); m != nil {
		m.LeaveFiledTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("leave_type", leaveType)))
	}
}

// RecordQueueConsume 记录队列消费结果
func RecordQueueConsume(ctx context.Context, queue, outcome string) {
	if m := GetMetrics(); m != nil {
		m.QueueConsumeTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("queue", queue),
			attribute.String("outcome", outcome),
		))
	}
}
