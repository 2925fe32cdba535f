package report

import (
	stderrors "errors"
	"fmt"

	"AttendanceBot/internal/attendance"
	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/errors"
)

// NoData 没有花名册也没有任何签到，这不是错误
func NoData(window attendance.Window, kind Kind, opts Options) model.FormattedMessage {
	period := fmt.Sprintf("today (%s)", window.End)
	if kind == Weekly {
		period = fmt.Sprintf("this week (%s to %s)", window.Start, window.End)
	}
	return model.FormattedMessage{
		Title: "Nothing to report",
		Blocks: []model.Block{
			{Kind: model.BlockSection, Text: fmt.Sprintf("Nothing to report for %s.", period)},
			{Kind: model.BlockContext, Text: fmt.Sprintf("Data from #%s", opts.SourceChannel)},
		},
	}
}

// Help 可用命令列表
func Help(command string) model.FormattedMessage {
	text := fmt.Sprintf("*Available Commands:*\n"+
		"• `%[1]s` or `%[1]s today` - Get today's attendance summary\n"+
		"• `%[1]s week` - Get this week's attendance summary\n"+
		"• `%[1]s list` - Show current and upcoming leaves\n"+
		"• `%[1]s file <name> <type> <start> <end> <reason...>` - File a leave (dates as YYYY-MM-DD)\n"+
		"• `%[1]s help` - Show this help message", command)
	return model.FormattedMessage{
		Title:  "Leave Bot Help",
		Blocks: []model.Block{{Kind: model.BlockSection, Text: text}},
	}
}

// Unknown 未知子命令，提示查看帮助
func Unknown(command, sub string) model.FormattedMessage {
	help := Help(command)
	return model.FormattedMessage{
		Title: "Unknown command",
		Blocks: append([]model.Block{
			{Kind: model.BlockSection, Text: fmt.Sprintf("Unknown command `%s`. Use `%s help` for available commands.", sub, command)},
		}, help.Blocks...),
	}
}

// Usage 参数错误时的纠正提示
func Usage(command, hint string) model.FormattedMessage {
	return model.FormattedMessage{
		Title: "Invalid command usage",
		Blocks: []model.Block{
			{Kind: model.BlockSection, Text: hint},
			{Kind: model.BlockContext, Text: fmt.Sprintf("Usage: `%s file <name> <type> <YYYY-MM-DD> <YYYY-MM-DD> <reason...>`", command)},
		},
	}
}

// LeaveFiled 登记成功确认
func LeaveFiled(r model.LeaveRecord) model.FormattedMessage {
	text := fmt.Sprintf("Leave filed for *%s*: %s from %s to %s", r.MemberName, r.LeaveType, r.StartDate, r.EndDate)
	if r.Reason != "" {
		text += fmt.Sprintf(" (%s)", r.Reason)
	}
	return model.FormattedMessage{
		Title: "Leave filed",
		Blocks: []model.Block{
			{Kind: model.BlockSection, Text: "✅ " + text},
			{Kind: model.BlockContext, Text: fmt.Sprintf("Status: %s • Filed by <@%s> • #%d", r.Status, r.FiledBy, r.PublicID)},
		},
	}
}

// LeaveList 当前及之后的请假，保持登记顺序
func LeaveList(records []model.LeaveRecord, asOf string) model.FormattedMessage {
	msg := model.FormattedMessage{
		Title:  "Upcoming Leaves",
		Blocks: []model.Block{{Kind: model.BlockHeader, Text: "📋 All Upcoming Leaves"}},
	}
	if len(records) == 0 {
		msg.Blocks = append(msg.Blocks, model.Block{Kind: model.BlockSection, Text: "No upcoming leaves found."})
		return msg
	}

	items := make([]model.Item, 0, len(records))
	for _, r := range records {
		detail := fmt.Sprintf("%s, %s to %s", r.LeaveType, r.StartDate, r.EndDate)
		if r.Reason != "" {
			detail += " - " + r.Reason
		}
		items = append(items, model.Item{Icon: "•", Label: r.MemberName, Detail: detail})
	}
	msg.Blocks = append(msg.Blocks,
		model.Block{Kind: model.BlockSection, Text: fmt.Sprintf("%d leave(s) active on or after %s:", len(records), asOf), Emphasis: true},
		model.Block{Kind: model.BlockSection, Items: items},
	)
	return msg
}

// Error 流水线失败时给用户的简短提示
func Error(err error) model.FormattedMessage {
	text := "Something went wrong while generating the report. Please try again later."
	switch {
	case stderrors.Is(err, errors.ChannelNotFound):
		text = "⚠️ " + err.Error() + ". Make sure the bot has been invited to it."
	case stderrors.Is(err, errors.GatewayUnavailable):
		text = "⚠️ Slack is unavailable right now. Please try again in a few minutes."
	case stderrors.Is(err, errors.InvalidWindow):
		text = "⚠️ " + err.Error()
	}
	return model.FormattedMessage{
		Title:  "Report failed",
		Blocks: []model.Block{{Kind: model.BlockSection, Text: text}},
	}
}
