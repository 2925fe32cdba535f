package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const httpInstrumentation = "attendancebot/http"

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
	commands metric.Int64Counter
}

var (
	httpMetricsOnce sync.Once
	httpM           httpMetrics
	httpMetricsErr  error
)

// InitMetrics 注册 HTTP 指标，重复调用只生效一次
func InitMetrics(meter metric.Meter) error {
	httpMetricsOnce.Do(func() {
		httpM, httpMetricsErr = newHTTPMetrics(meter)
	})
	return httpMetricsErr
}

func newHTTPMetrics(meter metric.Meter) (httpMetrics, error) {
	var m httpMetrics
	var err error
	if m.requests, err = meter.Int64Counter("http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return m, err
	}
	if m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	); err != nil {
		return m, err
	}
	if m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return m, err
	}
	m.commands, err = meter.Int64Counter("slack.slash_commands.received",
		metric.WithDescription("Slash commands accepted by the front door"),
		metric.WithUnit("{command}"),
	)
	return m, err
}

// OpenTelemetryMiddleware 为每个请求生成 span，斜杠命令额外记录命令名与工作区
func OpenTelemetryMiddleware() app.HandlerFunc {
	tracer := otel.Tracer(httpInstrumentation)
	if err := InitMetrics(otel.Meter(httpInstrumentation)); err != nil {
		otel.Handle(err)
	}

	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		if httpM.active != nil {
			httpM.active.Add(ctx, 1)
			defer httpM.active.Add(ctx, -1)
		}

		method := clean(string(c.Method()))
		route := clean(c.FullPath())
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(ctx, method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(method),
				semconv.HTTPRoute(route),
				attribute.String("http.client_ip", clean(c.ClientIP())),
			),
		)
		defer span.End()

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("http.request_id", clean(requestID)))
		}

		c.Next(ctx)

		if userID, ok := GetSlackUserID(ctx, c); ok {
			span.SetAttributes(
				attribute.String("enduser.id", clean(userID)),
				attribute.String("slack.team_id", clean(c.PostForm("team_id"))),
			)
			if command := clean(c.PostForm("command")); command != "" {
				span.SetAttributes(attribute.String("slack.command", command))
				if httpM.commands != nil {
					httpM.commands.Add(ctx, 1, metric.WithAttributes(attribute.String("slack.command", command)))
				}
			}
		}

		status := c.Response.StatusCode()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		switch {
		case status >= 500:
			span.SetStatus(codes.Error, "server error")
			if last := c.Errors.Last(); last != nil {
				span.RecordError(last)
			}
		case status >= 400:
			span.SetStatus(codes.Error, "client error")
		default:
			span.SetStatus(codes.Ok, "")
		}

		labels := metric.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			semconv.HTTPStatusCode(status),
		)
		if httpM.requests != nil {
			httpM.requests.Add(ctx, 1, labels)
		}
		if httpM.duration != nil {
			httpM.duration.Record(ctx, time.Since(start).Seconds(), labels)
		}
	}
}

// clean 去掉非法 UTF-8，表单字段由客户端控制
func clean(val string) string {
	return strings.ToValidUTF8(val, "")
}

// NewServerTracerConfig hertz-contrib 的服务端追踪选项与中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
