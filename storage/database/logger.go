package database

import (
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"AttendanceBot/config"
	"AttendanceBot/pkg/logger"
)

// newLogger 把 gorm 日志接到 zap
func newLogger() gormlogger.Interface {
	level := gormlogger.Warn
	switch strings.ToUpper(config.Cfg.LoggerLevel) {
	case "DEBUG":
		level = gormlogger.Info
	case "ERROR":
		level = gormlogger.Error
	}

	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Logger.Sugar().Infof(format, args...)
}
