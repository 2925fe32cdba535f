package mq

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "attendancebot/rabbitmq"

var (
	metricsOnce       sync.Once
	mqMessagesTotal   metric.Int64Counter
	mqMessageDuration metric.Float64Histogram
)

func initMQMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		mqMessagesTotal, _ = meter.Int64Counter(
			"mq.messages.total",
			metric.WithDescription("Total number of RabbitMQ messages"),
			metric.WithUnit("{message}"),
		)
		mqMessageDuration, _ = meter.Float64Histogram(
			"mq.message.duration",
			metric.WithDescription("RabbitMQ publish and handling duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 15, 30),
		)
	})
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Span 一次发布或处理的追踪范围
type Span struct {
	span      trace.Span
	start     time.Time
	operation string
	attrs     []attribute.KeyValue
}

// StartPublish 开启发布 span，并把追踪上下文注入到消息头
func StartPublish(ctx context.Context, exchange, routingKey string, msg *amqp.Publishing) (context.Context, *Span) {
	initMQMetrics()
	attrs := []attribute.KeyValue{
		semconv.MessagingSystem("rabbitmq"),
		semconv.MessagingDestinationName(exchange),
		semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
	}
	ctx, span := tracer().Start(ctx, exchange+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attrs...),
	)
	if msg.MessageId != "" {
		span.SetAttributes(semconv.MessagingMessageID(msg.MessageId))
	}

	headers := make(amqp.Table, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, &MessageHeaderCarrier{Headers: headers})
	msg.Headers = headers

	return ctx, &Span{span: span, start: time.Now(), operation: "publish", attrs: attrs}
}

// StartDelivery 从消息头恢复上游追踪上下文，开启处理 span
func StartDelivery(ctx context.Context, queue string, d amqp.Delivery) (context.Context, *Span) {
	initMQMetrics()
	ctx = otel.GetTextMapPropagator().Extract(ctx, &MessageHeaderCarrier{Headers: d.Headers})
	attrs := []attribute.KeyValue{
		semconv.MessagingSystem("rabbitmq"),
		semconv.MessagingDestinationName(queue),
		semconv.MessagingRabbitmqDestinationRoutingKey(d.RoutingKey),
	}
	ctx, span := tracer().Start(ctx, queue+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
		trace.WithAttributes(
			semconv.MessagingMessageID(d.MessageId),
			attribute.Bool("messaging.rabbitmq.redelivered", d.Redelivered),
		),
	)
	return ctx, &Span{span: span, start: time.Now(), operation: "process", attrs: attrs}
}

// End 结束 span 并记录指标，status 为空时按 err 推断
func (s *Span) End(ctx context.Context, status string, err error) {
	defer s.span.End()

	if status == "" {
		status = "success"
		if err != nil {
			status = "error"
		}
	}
	if err != nil {
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
	}
	s.span.SetAttributes(attribute.String("messaging.status", status))

	labels := metric.WithAttributes(append(s.attrs,
		attribute.String("messaging.operation", s.operation),
		attribute.String("messaging.status", status),
	)...)
	if mqMessagesTotal != nil {
		mqMessagesTotal.Add(ctx, 1, labels)
	}
	if mqMessageDuration != nil {
		mqMessageDuration.Record(ctx, time.Since(s.start).Seconds(), labels)
	}
}

// MessageHeaderCarrier 实现 propagation.TextMapCarrier
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}
