package command

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/internal/ledger"
	"AttendanceBot/internal/model"
	"AttendanceBot/internal/report"
	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/metrics"
)

// ReportBuilder 生成日报/周报，由 service.ReportService 实现
type ReportBuilder interface {
	Daily(ctx context.Context, now time.Time) (model.FormattedMessage, error)
	Weekly(ctx context.Context, now time.Time) (model.FormattedMessage, error)
}

// Request 一次命令调用
type Request struct {
	Text     string
	UserID   string
	UserName string
	// Key 命令消息 ID，用于登记请假时去重
	Key      string
}

// Reply 命令结果，总是可以直接展示给用户
type Reply struct {
	Action    Action
	Message   model.FormattedMessage
	Broadcast bool
	Err       error // 已转换为 Message，仅用于日志与指标
}

// Config 路由配置
type Config struct {
	Command  string // 斜杠命令名，如 /leave-summary
	Location *time.Location
	NextID   func() (int64, error)
}

// Router 把子命令分派到报表流水线或请假台账
type Router struct {
	reports ReportBuilder
	ledger  ledger.Store
	cfg     Config
}

func NewRouter(reports ReportBuilder, store ledger.Store, cfg Config) *Router {
	if cfg.Command == "" {
		cfg.Command = "/leave-summary"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Router{reports: reports, ledger: store, cfg: cfg}
}

// Handle 执行一次命令。任何失败都在这里转换成用户可见的回复并记录日志。
func (r *Router) Handle(ctx context.Context, req Request, now time.Time) Reply {
	parsed, err := Parse(req.Text)
	reply := Reply{Action: parsed.Action, Broadcast: parsed.Action.Broadcast()}
	if err == nil {
		reply.Message, err = r.dispatch(ctx, parsed, req, now)
	}

	outcome := "success"
	if err != nil {
		reply.Err = err
		reply.Broadcast = false
		if errors.IsCallerError(err) {
			outcome = "usage"
			reply.Message = report.Error(err)
			if stderrors.Is(err, errors.UsageError) {
				reply.Message = report.Usage(r.cfg.Command, err.Error())
			}
			logger.Logger.Info("Rejected command input",
				zap.String("action", string(parsed.Action)),
				zap.String("user_id", req.UserID),
				zap.String("reason", err.Error()),
			)
		} else {
			outcome = "failed"
			reply.Message = report.Error(err)
			logger.Logger.Error("Failed to handle command",
				zap.String("action", string(parsed.Action)),
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		}
	}
	metrics.RecordCommand(ctx, string(parsed.Action), outcome)

	return reply
}

func (r *Router) dispatch(ctx context.Context, parsed Parsed, req Request, now time.Time) (model.FormattedMessage, error) {
	switch parsed.Action {
	case ActionDaily:
		return r.reports.Daily(ctx, now)
	case ActionWeekly:
		return r.reports.Weekly(ctx, now)
	case ActionHelp:
		return report.Help(r.cfg.Command), nil
	case ActionList:
		today := now.In(r.cfg.Location).Format(dateLayout)
		records, err := r.ledger.QueryActiveAsOf(ctx, today)
		if err != nil {
			return model.FormattedMessage{}, err
		}
		return report.LeaveList(records, today), nil
	case ActionFile:
		return r.file(ctx, parsed.Leave, req, now)
	default:
		return report.Unknown(r.cfg.Command, parsed.Sub), nil
	}
}

func (r *Router) file(ctx context.Context, args *FileArgs, req Request, now time.Time) (model.FormattedMessage, error) {
	rec := &model.LeaveRecord{
		MemberID:   args.MemberID,
		MemberName: args.MemberName,
		LeaveType:  args.LeaveType,
		StartDate:  args.StartDate,
		EndDate:    args.EndDate,
		Reason:     args.Reason,
		Status:     model.LeaveStatusApproved,
		FiledBy:    req.UserID,
		FiledAt:    now.UTC(),
	}
	if rec.FiledBy == "" {
		rec.FiledBy = req.UserName
	}
	if req.Key != "" {
		key := req.Key
		rec.RequestKey = &key
	}

	if r.cfg.NextID != nil {
		id, err := r.cfg.NextID()
		if err != nil {
			return model.FormattedMessage{}, fmt.Errorf("failed to generate leave id: %w", err)
		}
		rec.PublicID = id
	}

	generated := rec.PublicID
	if err := r.ledger.Append(ctx, rec); err != nil {
		return model.FormattedMessage{}, err
	}
	if rec.PublicID == 0 {
		rec.PublicID = rec.ID
	}
	if generated != 0 && rec.PublicID != generated {
		logger.Logger.Info("Leave already filed for this command, replying with the existing record",
			zap.Int64("public_id", rec.PublicID),
			zap.String("request_key", req.Key),
		)
		return report.LeaveFiled(*rec), nil
	}
	metrics.RecordLeaveFiled(ctx, rec.LeaveType)

	logger.Logger.Info("Leave filed",
		zap.Int64("public_id", rec.PublicID),
		zap.String("member", rec.MemberName),
		zap.String("type", rec.LeaveType),
		zap.String("start", rec.StartDate),
		zap.String("end", rec.EndDate),
		zap.String("filed_by", rec.FiledBy),
	)
	return report.LeaveFiled(*rec), nil
}
