package redis

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce          sync.Once
	redisCommandsTotal   metric.Int64Counter
	redisCommandDuration metric.Float64Histogram
	redisCacheHits       metric.Int64Counter
	redisCacheMisses     metric.Int64Counter
)

// initRedisMetrics 在第一次创建 Hook 时注册指标，失败的指标保持 nil
func initRedisMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("attendancebot/redis")
		redisCommandsTotal, _ = meter.Int64Counter(
			"redis.commands.total",
			metric.WithDescription("Total number of Redis commands"),
			metric.WithUnit("{command}"),
		)
		redisCommandDuration, _ = meter.Float64Histogram(
			"redis.command.duration",
			metric.WithDescription("Redis command duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
		)
		redisCacheHits, _ = meter.Int64Counter(
			"redis.cache.hits",
			metric.WithDescription("Number of cache hits"),
			metric.WithUnit("{hit}"),
		)
		redisCacheMisses, _ = meter.Int64Counter(
			"redis.cache.misses",
			metric.WithDescription("Number of cache misses"),
			metric.WithUnit("{miss}"),
		)
	})
}

// TracingHook 为每条命令和 pipeline 生成 span 并记录指标
type TracingHook struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func NewTracingHook(serviceName string, db int) *TracingHook {
	initRedisMetrics()
	return &TracingHook{
		tracer: otel.Tracer(serviceName + ".redis"),
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
		},
	}
}

func (th *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (th *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		name := cmd.Name()
		ctx, span := th.tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		span.SetAttributes(semconv.DBOperation(name))
		if keys := extractKeys(cmd.Args()); len(keys) > 0 {
			span.SetAttributes(attribute.StringSlice("redis.keys", keys))
		}

		start := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(start).Seconds()

		status := commandStatus(err)
		if status == "error" {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		labels := metric.WithAttributes(
			attribute.String("redis.command", name),
			attribute.String("redis.status", status),
		)
		if redisCommandsTotal != nil {
			redisCommandsTotal.Add(ctx, 1, labels)
		}
		if redisCommandDuration != nil {
			redisCommandDuration.Record(ctx, duration, labels)
		}

		if name == "get" || name == "mget" {
			switch {
			case status == "not_found" && redisCacheMisses != nil:
				redisCacheMisses.Add(ctx, 1)
			case status == "success" && redisCacheHits != nil:
				redisCacheHits.Add(ctx, 1)
			}
		}
		return err
	}
}

func (th *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := th.tracer.Start(ctx, "pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(th.attrs...),
		)
		defer span.End()

		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		span.SetAttributes(
			attribute.Int("redis.pipeline.count", len(cmds)),
			attribute.String("redis.pipeline.commands", strings.Join(names, ";")),
		)

		err := next(ctx, cmds)
		if status := commandStatus(err); status == "error" {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		if redisCommandsTotal != nil {
			redisCommandsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("redis.command", "pipeline"),
				attribute.String("redis.status", commandStatus(err)),
			))
		}
		return err
	}
}

func commandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case stderrors.Is(err, redis.Nil):
		return "not_found"
	default:
		return "error"
	}
}

// extractKeys 取命令参数中的键名，最多 5 个
func extractKeys(args []interface{}) []string {
	keys := make([]string, 0, 5)
	for i := 1; i < len(args) && len(keys) < 5; i++ {
		if key, ok := args[i].(string); ok {
			keys = append(keys, sanitizeKey(key))
		}
	}
	return keys
}

// sanitizeKey 键名过长时截断
func sanitizeKey(key string) string {
	if len(key) > 100 {
		return key[:100] + "..."
	}
	return key
}

// InstrumentClient 为客户端添加追踪 Hook
func InstrumentClient(client *redis.Client, serviceName string, db int) {
	client.AddHook(NewTracingHook(serviceName, db))
}
