package middleware

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// 是否记录堆栈
	EnableStackTrace bool
	// 生产环境不返回 panic 详情
	IsProduction bool
	// 是否记录请求体（斜杠命令的表单很小）
	LogRequestBody bool
}

var internalError = errors.Definition{Code: "INTERNAL_SERVER_ERROR", Message: "Internal server error"}

// RecoverMiddleware 创建 recover 中间件
func RecoverMiddleware(isProduction bool) app.HandlerFunc {
	return RecoverMiddlewareWithConfig(RecoverConfig{
		EnableStackTrace: true,
		IsProduction:     isProduction,
		LogRequestBody:   !isProduction,
	})
}

func RecoverMiddlewareWithConfig(config RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, config)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, config RecoverConfig) {
	var stack []byte
	if config.EnableStackTrace {
		stack = getStackTrace()
	}

	logPanic(ctx, c, err, stack, config)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(fmt.Errorf("panic: %v", err))
		span.SetStatus(codes.Error, "panic recovered")
	}

	if config.IsProduction {
		response.Error(ctx, c, internalError)
	} else {
		response.ErrorWithDetails(ctx, c, internalError, map[string]interface{}{
			"panic":     fmt.Sprintf("%v", err),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	c.Abort()
}

// getStackTrace 当前 goroutine 的调用栈，跳过 runtime 与 recover 本身
func getStackTrace() []byte {
	var buf bytes.Buffer
	for i := 3; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil || strings.Contains(file, "/runtime/") {
			continue
		}
		fmt.Fprintf(&buf, "  %s:%d\n    %s\n", file, line, fn.Name())
	}
	return buf.Bytes()
}

func logPanic(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte, config RecoverConfig) {
	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", GetRequestID(c)),
	}

	if userID, ok := GetSlackUserID(ctx, c); ok {
		fields = append(fields, zap.String("slack_user_id", userID))
	}

	if config.LogRequestBody {
		if body := c.Request.Body(); len(body) > 0 && len(body) < 1024 {
			fields = append(fields, zap.ByteString("body", body))
		}
	}

	if len(stack) > 0 {
		fields = append(fields, zap.ByteString("stack", stack))
	}

	logger.Logger.Error("[PANIC RECOVERED]", fields...)
}
