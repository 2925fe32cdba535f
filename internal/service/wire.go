package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"AttendanceBot/config"
	"AttendanceBot/internal/attendance"
	"AttendanceBot/internal/command"
	"AttendanceBot/internal/ledger"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/slack"
	"AttendanceBot/pkg/snowflake"
	"AttendanceBot/storage/database"
)

// NewLedger 按 LEDGER_BACKEND 选择台账实现，postgres 需先完成 storage.Init
func NewLedger(cfg *config.Config) (ledger.Store, error) {
	if strings.EqualFold(cfg.LedgerBackend, "postgres") {
		db := database.DB()
		if db == nil {
			return nil, fmt.Errorf("postgres ledger requested but database is not initialized")
		}
		return ledger.NewPostgresStore(db), nil
	}
	logger.Logger.Warn("Using in-memory leave ledger, records are lost on restart")
	return ledger.NewMemoryStore(), nil
}

// LedgerShared 在调度进程内直接执行命令时，其台账是否与 server/worker 共享。
// memory 台账只属于本进程，此时日报看不到经斜杠命令登记的请假。
func LedgerShared(cfg *config.Config, queueEnabled bool) bool {
	return queueEnabled || strings.EqualFold(cfg.LedgerBackend, "postgres")
}

// NewDispatcherFromConfig 装配报表流水线、命令路由与分发器
func NewDispatcherFromConfig(cfg *config.Config, gateway slack.Client, store ledger.Store) (*Dispatcher, error) {
	mode, err := attendance.ParseMode(cfg.CheckInMode)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location()

	reports := NewReportService(gateway, store, ReportConfig{
		SourceChannel: cfg.SourceChannel,
		BotName:       cfg.BotName,
		Location:      loc,
		Exclusions:    cfg.ExcludedUsers,
		Mode:          mode,
	})
	router := command.NewRouter(reports, store, command.Config{
		Command:  cfg.SlashCommand,
		Location: loc,
		NextID:   snowflake.NextID,
	})

	logger.Logger.Info("Command dispatcher ready",
		zap.String("source_channel", cfg.SourceChannel),
		zap.String("target_channel", cfg.TargetChannel),
		zap.String("timezone", cfg.Timezone),
		zap.String("mode", string(mode)),
		zap.Strings("excluded", cfg.ExcludedUsers),
	)
	return NewDispatcher(router, gateway, reports, cfg.TargetChannel, cfg.CommandTimeout), nil
}
