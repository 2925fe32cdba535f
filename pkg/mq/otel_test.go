package mq

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageHeaderCarrier(t *testing.T) {
	c := &MessageHeaderCarrier{}
	assert.Equal(t, "", c.Get("traceparent"))

	c.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())

	c.Headers["retries"] = int32(1)
	assert.Equal(t, "", c.Get("retries"))
}

func TestTraceContextRoundTrip(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02},
		SpanID:     trace.SpanID{0x03},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := amqp.Publishing{MessageId: "cmd_1", Headers: amqp.Table{"x-source": "slash"}}
	_, span := StartPublish(ctx, "attendance.direct", "attendance.command", &msg)
	span.End(ctx, "", nil)

	assert.Equal(t, "slash", msg.Headers["x-source"])
	require.NotEmpty(t, msg.Headers["traceparent"])

	got, span := StartDelivery(context.Background(), "attendance.command", amqp.Delivery{Headers: msg.Headers, MessageId: "cmd_1"})
	span.End(got, "done", nil)
	assert.Equal(t, sc.TraceID(), trace.SpanContextFromContext(got).TraceID())
}
