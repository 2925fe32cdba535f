package report

import (
	"fmt"
	"strings"

	"AttendanceBot/internal/attendance"
	"AttendanceBot/internal/model"
)

// Kind 报表类型
type Kind string

const (
	Daily  Kind = "daily"
	Weekly Kind = "weekly"
)

// Options 渲染参数，均来自配置或台账，渲染本身不访问网关
type Options struct {
	Mode          attendance.Mode
	SourceChannel string
	BotName       string
	// OnLeave 报表当天有效的请假记录，只在日报中展示
	OnLeave []model.LeaveRecord
}

// labels 不同模式下的措辞
type labels struct {
	presentToday string
	presentWeek  string
	absentToday  string
	absentWeek   string
	unit         string
	noneWeek     string
}

func labelsFor(mode attendance.Mode) labels {
	if mode == attendance.ModeLeave {
		return labels{
			presentToday: "posted a leave notice today",
			presentWeek:  "posted a leave notice this week",
			absentToday:  "No Leave Notice Today",
			absentWeek:   "posted no leave notice this week",
			unit:         "leave notice(s)",
			noneWeek:     "No leave notices found this week.",
		}
	}
	return labels{
		presentToday: "checked in today",
		presentWeek:  "checked in this week",
		absentToday:  "Absent Today",
		absentWeek:   "absent this week",
		unit:         "check-in(s)",
		noneWeek:     "No check-ins found this week.",
	}
}

// Render 把聚合结果转换为展示消息。没有花名册也没有事件时返回"无可报告"。
func Render(rep attendance.Report, kind Kind, opts Options) model.FormattedMessage {
	if rep.Empty() && len(opts.OnLeave) == 0 {
		return NoData(rep.Window, kind, opts)
	}
	if kind == Weekly {
		return renderWeekly(rep, opts)
	}
	return renderDaily(rep, opts)
}

func renderDaily(rep attendance.Report, opts Options) model.FormattedMessage {
	l := labelsFor(opts.Mode)
	date := rep.Window.End

	msg := model.FormattedMessage{
		Title: fmt.Sprintf("Daily Attendance Summary - %s", date),
		Blocks: []model.Block{
			{Kind: model.BlockHeader, Text: fmt.Sprintf("📊 Daily Attendance Summary - %s", date)},
			{Kind: model.BlockSection, Text: fmt.Sprintf("%d member(s) %s", len(rep.Present), l.presentToday), Emphasis: true},
		},
	}

	if len(rep.Present) > 0 {
		items := make([]model.Item, 0, len(rep.Present))
		for _, p := range rep.Present {
			items = append(items, model.Item{Icon: "✅", MemberID: p.Member.ID})
		}
		msg.Blocks = append(msg.Blocks, model.Block{Kind: model.BlockSection, Items: items})
	}

	if len(rep.Absent) > 0 {
		items := make([]model.Item, 0, len(rep.Absent))
		for _, m := range rep.Absent {
			items = append(items, model.Item{Icon: "❌", MemberID: m.ID, Label: m.DisplayName})
		}
		msg.Blocks = append(msg.Blocks,
			model.Block{Kind: model.BlockSection, Text: fmt.Sprintf("⚠️ %s (%d member(s)):", l.absentToday, len(rep.Absent)), Emphasis: true},
			model.Block{Kind: model.BlockSection, Items: items},
		)
	}

	if leave := onLeaveBlock(opts.OnLeave, date); len(leave) > 0 {
		msg.Blocks = append(msg.Blocks, leave...)
	}

	msg.Blocks = append(msg.Blocks, model.Block{Kind: model.BlockContext, Text: dailyFooter(opts)})
	return msg
}

func onLeaveBlock(records []model.LeaveRecord, date string) []model.Block {
	items := make([]model.Item, 0, len(records))
	for _, r := range records {
		if !r.CoversDate(date) {
			continue
		}
		items = append(items, model.Item{
			Icon:     "🌴",
			MemberID: r.MemberID,
			Label:    r.MemberName,
			Detail:   fmt.Sprintf("%s until %s", r.LeaveType, r.EndDate),
		})
	}
	if len(items) == 0 {
		return nil
	}
	return []model.Block{
		{Kind: model.BlockSection, Text: fmt.Sprintf("🌴 On Leave Today (%d):", len(items)), Emphasis: true},
		{Kind: model.BlockSection, Items: items},
	}
}

func renderWeekly(rep attendance.Report, opts Options) model.FormattedMessage {
	l := labelsFor(opts.Mode)

	msg := model.FormattedMessage{
		Title: fmt.Sprintf("Weekly Attendance Summary - %s", rep.Window.Start),
		Blocks: []model.Block{
			{Kind: model.BlockHeader, Text: "📊 This Week's Attendance Summary"},
			{Kind: model.BlockSection, Text: fmt.Sprintf("%s to %s", rep.Window.Start, rep.Window.End)},
		},
	}

	if len(rep.Present) > 0 {
		items := make([]model.Item, 0, len(rep.Present))
		for _, p := range rep.Present {
			items = append(items, model.Item{
				Icon:     "•",
				MemberID: mentionIfUnnamed(p.Member),
				Label:    p.Member.DisplayName,
				Detail:   fmt.Sprintf("%d %s", p.Days, l.unit),
			})
		}
		msg.Blocks = append(msg.Blocks,
			model.Block{Kind: model.BlockSection, Text: fmt.Sprintf("%d member(s) %s:", len(rep.Present), l.presentWeek), Emphasis: true},
			model.Block{Kind: model.BlockSection, Items: items},
		)
	} else {
		msg.Blocks = append(msg.Blocks, model.Block{Kind: model.BlockSection, Text: l.noneWeek})
	}

	if len(rep.Absent) > 0 {
		items := make([]model.Item, 0, len(rep.Absent))
		for _, m := range rep.Absent {
			items = append(items, model.Item{Icon: "•", MemberID: mentionIfUnnamed(m), Label: m.DisplayName})
		}
		msg.Blocks = append(msg.Blocks,
			model.Block{Kind: model.BlockSection, Text: fmt.Sprintf("%d member(s) %s:", len(rep.Absent), l.absentWeek), Emphasis: true},
			model.Block{Kind: model.BlockSection, Items: items},
		)
	}

	msg.Blocks = append(msg.Blocks, model.Block{Kind: model.BlockContext, Text: weeklyFooter(rep.Exclusions, opts)})
	return msg
}

// mentionIfUnnamed 没有显示名时（无花名册或资料查询失败）只有 ID，用 @ 提及代替
func mentionIfUnnamed(m model.Member) string {
	if m.DisplayName == "" {
		return m.ID
	}
	return ""
}

func dailyFooter(opts Options) string {
	if opts.BotName == "" {
		return fmt.Sprintf("Data from #%s", opts.SourceChannel)
	}
	return fmt.Sprintf("Posted by %s • Data from #%s", opts.BotName, opts.SourceChannel)
}

func weeklyFooter(exclusions []string, opts Options) string {
	footer := fmt.Sprintf("Data from #%s", opts.SourceChannel)
	if len(exclusions) > 0 {
		footer += fmt.Sprintf(" (excluding %s)", strings.Join(exclusions, ", "))
	}
	return footer
}
