package service

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/internal/attendance"
	"AttendanceBot/internal/cache"
	"AttendanceBot/internal/ledger"
	"AttendanceBot/internal/model"
	"AttendanceBot/internal/report"
	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/metrics"
	"AttendanceBot/pkg/slack"
)

// ReportConfig 报表流水线参数
type ReportConfig struct {
	SourceChannel string
	BotName       string
	Location      *time.Location
	Exclusions    []string
	Mode          attendance.Mode
}

// ReportService 频道查找 -> 花名册 -> 历史消息 -> 分类 -> 聚合 -> 渲染
type ReportService struct {
	gateway    slack.Client
	ledger     ledger.Store
	classifier attendance.Classifier
	cfg        ReportConfig
}

func NewReportService(gateway slack.Client, store ledger.Store, cfg ReportConfig) *ReportService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportService{
		gateway:    gateway,
		ledger:     store,
		classifier: attendance.NewClassifier(cfg.Mode),
		cfg:        cfg,
	}
}

// Daily now 所在日的日报
func (s *ReportService) Daily(ctx context.Context, now time.Time) (model.FormattedMessage, error) {
	return s.Build(ctx, report.Daily, attendance.DayWindow(now, s.cfg.Location))
}

// Weekly now 所在周（周一到周五）的周报
func (s *ReportService) Weekly(ctx context.Context, now time.Time) (model.FormattedMessage, error) {
	return s.Build(ctx, report.Weekly, attendance.WeekWindow(now, s.cfg.Location))
}

// Build 生成指定窗口的报表。频道不存在或网关不可用时中止；花名册与历史获取失败按无数据处理。
func (s *ReportService) Build(ctx context.Context, kind report.Kind, window attendance.Window) (model.FormattedMessage, error) {
	start := time.Now()
	msg, err := s.build(ctx, kind, window)

	outcome := "success"
	if err != nil {
		outcome = "failed"
		if def, ok := errors.As(err); ok {
			outcome = def.Code
		}
	}
	metrics.RecordReport(ctx, string(kind), outcome, time.Since(start).Seconds())
	return msg, err
}

func (s *ReportService) build(ctx context.Context, kind report.Kind, window attendance.Window) (model.FormattedMessage, error) {
	if err := window.Validate(); err != nil {
		return model.FormattedMessage{}, err
	}
	oldest, err := window.StartOf(s.cfg.Location)
	if err != nil {
		return model.FormattedMessage{}, err
	}

	source, err := s.ResolveChannel(ctx, s.cfg.SourceChannel)
	if err != nil {
		return model.FormattedMessage{}, err
	}

	roster := s.roster(ctx, source.ID)

	messages, err := s.gateway.FetchHistory(ctx, source.ID, oldest)
	if err != nil {
		logger.Logger.Warn("Failed to fetch channel history, reporting without messages",
			zap.String("channel", source.Name),
			zap.Error(err),
		)
		messages = nil
	}

	events := s.classifier.Events(messages, attendance.DateFunc(s.cfg.Location))
	rep, err := attendance.Aggregate(events, roster, window, s.cfg.Exclusions)
	if err != nil {
		return model.FormattedMessage{}, err
	}

	opts := report.Options{
		Mode:          s.cfg.Mode,
		SourceChannel: s.cfg.SourceChannel,
		BotName:       s.cfg.BotName,
	}
	if kind == report.Daily {
		opts.OnLeave = s.onLeave(ctx, window.End)
	}

	logger.Logger.Info("Report generated",
		zap.String("kind", string(kind)),
		zap.String("start", window.Start),
		zap.String("end", window.End),
		zap.Int("messages", len(messages)),
		zap.Int("events", rep.EventCount),
		zap.Int("present", len(rep.Present)),
		zap.Int("absent", len(rep.Absent)),
		zap.Bool("roster_known", rep.RosterKnown),
	)

	return report.Render(rep, kind, opts), nil
}

// ResolveChannel 先查 Redis 缓存，再调用网关
func (s *ReportService) ResolveChannel(ctx context.Context, name string) (model.Channel, error) {
	if ch, ok, err := cache.GetChannel(ctx, name); err != nil {
		logger.Logger.Warn("Failed to read channel cache", zap.String("channel", name), zap.Error(err))
	} else if ok {
		return ch, nil
	}

	ch, err := s.gateway.FindChannel(ctx, name)
	if err != nil {
		return model.Channel{}, err
	}

	if err := cache.SetChannel(ctx, ch); err != nil {
		logger.Logger.Warn("Failed to write channel cache", zap.String("channel", name), zap.Error(err))
	}
	return ch, nil
}

// roster 频道成员及资料，失败时返回空花名册
func (s *ReportService) roster(ctx context.Context, channelID string) []model.Member {
	ids, err := s.gateway.ListChannelMembers(ctx, channelID)
	if err != nil {
		logger.Logger.Warn("Failed to list channel members, reporting without roster",
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return nil
	}

	found, missing, err := cache.GetProfiles(ctx, ids)
	if err != nil {
		logger.Logger.Warn("Failed to read profile cache", zap.Error(err))
		found, missing = nil, ids
	}

	resolved, err := s.gateway.ResolveMany(ctx, missing)
	if err != nil {
		logger.Logger.Warn("Failed to resolve member profiles, reporting without roster", zap.Error(err))
		return nil
	}
	if err := cache.SetProfiles(ctx, resolved); err != nil {
		logger.Logger.Warn("Failed to write profile cache", zap.Error(err))
	}

	byID := make(map[string]model.Member, len(found)+len(resolved))
	for id, m := range found {
		byID[id] = m
	}
	for _, m := range resolved {
		byID[m.ID] = m
	}

	// 查不到资料的成员仍留在花名册里，只有 ID，按名字排除对其不生效
	members := make([]model.Member, 0, len(ids))
	unresolved := 0
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			m = model.Member{ID: id}
			unresolved++
		}
		members = append(members, m)
	}
	if unresolved > 0 {
		logger.Logger.Warn("Some member profiles could not be resolved, keeping them by ID",
			zap.String("channel_id", channelID),
			zap.Int("unresolved", unresolved),
		)
	}
	return members
}

func (s *ReportService) onLeave(ctx context.Context, date string) []model.LeaveRecord {
	if s.ledger == nil {
		return nil
	}
	records, err := s.ledger.QueryActiveAsOf(ctx, date)
	if err != nil {
		if !stderrors.Is(err, context.Canceled) {
			logger.Logger.Warn("Failed to query leave ledger for daily report", zap.Error(err))
		}
		return nil
	}
	return records
}
