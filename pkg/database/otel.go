package database

import (
	"context"
	stderrors "errors"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"
)

var (
	metricsOnce     sync.Once
	dbQueriesTotal  metric.Int64Counter
	dbQueryDuration metric.Float64Histogram
)

func initDatabaseMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("attendancebot/gorm")
		dbQueriesTotal, _ = meter.Int64Counter(
			"db.queries.total",
			metric.WithDescription("Total number of database queries"),
			metric.WithUnit("{query}"),
		)
		dbQueryDuration, _ = meter.Float64Histogram(
			"db.query.duration",
			metric.WithDescription("Database query duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
		)
	})
}

// PluginConfig 插件配置
type PluginConfig struct {
	ServiceName  string
	DBName       string
	MaxSQLLength int
}

// DefaultPluginConfig 默认不记录参数，SQL 最长 500 字符
func DefaultPluginConfig(serviceName string) PluginConfig {
	return PluginConfig{
		ServiceName:  serviceName,
		MaxSQLLength: 500,
	}
}

// OTELPlugin 为台账读写生成 span 和查询指标
type OTELPlugin struct {
	tracer trace.Tracer
	config PluginConfig
}

func NewOTELPlugin(config PluginConfig) *OTELPlugin {
	if config.ServiceName == "" {
		config.ServiceName = "attendance-bot"
	}
	if config.MaxSQLLength <= 0 {
		config.MaxSQLLength = 500
	}
	initDatabaseMetrics()
	return &OTELPlugin{
		tracer: otel.Tracer(config.ServiceName + ".gorm"),
		config: config,
	}
}

func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"insert", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("otel:before_"+h.op, p.before("db."+h.op)); err != nil {
			return err
		}
		if err := h.after("otel:after_"+h.op, p.after("db."+h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := p.tracer.Start(db.Statement.Context, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemPostgreSQL,
				semconv.DBName(p.config.DBName),
				semconv.DBOperation(operation),
			),
		)
		db.InstanceSet(startKey, time.Now())
		db.InstanceSet(spanKey, span)
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(spanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if table := db.Statement.Table; table != "" {
			span.SetAttributes(attribute.String("db.sql.table", table))
		}
		span.SetAttributes(
			semconv.DBStatement(p.truncate(sanitizeSQL(db.Statement.SQL.String()))),
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		)

		status := "success"
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case stderrors.Is(db.Error, gorm.ErrRecordNotFound):
			status = "not_found"
			span.SetStatus(codes.Ok, "record not found")
		default:
			status = "error"
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		var elapsed float64
		if s, ok := db.InstanceGet(startKey); ok {
			if start, ok := s.(time.Time); ok {
				elapsed = time.Since(start).Seconds()
			}
		}
		recordQuery(db.Statement.Context, operation, status, elapsed)
	}
}

func recordQuery(ctx context.Context, operation, status string, seconds float64) {
	labels := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.status", status),
	)
	if dbQueriesTotal != nil {
		dbQueriesTotal.Add(ctx, 1, labels)
	}
	if dbQueryDuration != nil {
		dbQueryDuration.Record(ctx, seconds, labels)
	}
}

func (p *OTELPlugin) truncate(sql string) string {
	if len(sql) > p.config.MaxSQLLength {
		return sql[:p.config.MaxSQLLength] + "..."
	}
	return sql
}

var sensitiveLiteral = regexp.MustCompile(`(?i)(password|token|secret)\s*=\s*'[^']*'`)

// sanitizeSQL 遮盖语句中的凭据字面量
func sanitizeSQL(sql string) string {
	return sensitiveLiteral.ReplaceAllString(sql, "$1='***'")
}

// WithOTELPlugin 为 GORM 添加追踪插件
func WithOTELPlugin(db *gorm.DB, config PluginConfig) error {
	return db.Use(NewOTELPlugin(config))
}
