package schedule

// 报表调度：工作日上午发日报，周五下午发周报

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/internal/cache"
	"AttendanceBot/internal/model"
	"AttendanceBot/internal/report"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/utils"
)

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// Job 一个定时报表
type Job struct {
	Kind  report.Kind
	Clock string // HH:MM:SS，按调度器时区解释
	Days  []time.Weekday
}

// Text 触发时发送的子命令
func (j Job) Text() string {
	if j.Kind == report.Weekly {
		return "week"
	}
	return "today"
}

// DefaultJobs 周一到周五的日报和周五的周报
func DefaultJobs(dailyAt, weeklyAt string) []Job {
	return []Job{
		{Kind: report.Daily, Clock: dailyAt, Days: weekdays},
		{Kind: report.Weekly, Clock: weeklyAt, Days: []time.Weekday{time.Friday}},
	}
}

// NextRun 严格晚于 now 的下一次运行时间
func NextRun(now time.Time, clock string, days []time.Weekday, loc *time.Location) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("schedule has no days")
	}
	local := now.In(loc)
	for i := 0; i <= 7; i++ {
		day := time.Date(local.Year(), local.Month(), local.Day()+i, 0, 0, 0, 0, loc)
		if !slices.Contains(days, day.Weekday()) {
			continue
		}
		next, err := utils.ParseTime(clock, day)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid schedule clock %q: %w", clock, err)
		}
		if next.After(now) {
			return next, nil
		}
	}
	return time.Time{}, fmt.Errorf("no run found for clock %q", clock)
}

// Publisher 投递命令消息，队列启用时是 queue.PublishCommand，否则直接执行
type Publisher func(ctx context.Context, msg *model.CommandMessage) error

type Scheduler struct {
	loc     *time.Location
	publish Publisher
	lockTTL time.Duration
}

func NewScheduler(loc *time.Location, publish Publisher) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc, publish: publish, lockTTL: 6 * time.Hour}
}

func lockKey(kind report.Kind, date string) string {
	return fmt.Sprintf("schedule:%s:%s", kind, date)
}

// Trigger 发出一次定时报表。同一天同类报表只发一次，多副本之间用 Redis 锁互斥。
func (s *Scheduler) Trigger(ctx context.Context, job Job, at time.Time) error {
	date := at.In(s.loc).Format("2006-01-02")
	key := lockKey(job.Kind, date)

	acquired, err := cache.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire schedule lock: %w", err)
	}
	if !acquired {
		logger.Logger.Info("Scheduled report already triggered, skipping",
			zap.String("kind", string(job.Kind)),
			zap.String("date", date),
		)
		return nil
	}

	msg := &model.CommandMessage{
		MessageID: key,
		Source:    model.CommandSourceSchedule,
		Text:      job.Text(),
		IssuedAt:  at.In(s.loc).Format(time.RFC3339),
	}
	if err := s.publish(ctx, msg); err != nil {
		if unlockErr := cache.Unlock(ctx, key); unlockErr != nil {
			logger.Logger.Warn("Failed to release schedule lock", zap.String("key", key), zap.Error(unlockErr))
		}
		return fmt.Errorf("failed to publish scheduled %s report: %w", job.Kind, err)
	}

	logger.Logger.Info("Scheduled report triggered",
		zap.String("kind", string(job.Kind)),
		zap.String("date", date),
		zap.String("message_id", msg.MessageID),
	)
	return nil
}

// Run 按 job 的时间表循环触发，直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	for {
		now := time.Now()
		next, err := NextRun(now, job.Clock, job.Days, s.loc)
		if err != nil {
			return err
		}

		delay := next.Sub(now)
		logger.Logger.Info("Scheduled next report run",
			zap.String("kind", string(job.Kind)),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := s.Trigger(runCtx, job, next); err != nil {
				logger.Logger.Error("Scheduled report run failed", zap.String("kind", string(job.Kind)), zap.Error(err))
			}
			cancel()
		}
	}
}
