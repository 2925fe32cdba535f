package attendance

import (
	"fmt"
	"strings"

	"AttendanceBot/internal/model"
)

// Mode 决定一条消息如何被判定为签到/请假
type Mode string

const (
	// ModeStrict 消息恰为 "in" 或以 "in " 开头
	ModeStrict Mode = "strict"
	// ModeSubstring 消息包含 "in"，会误匹配 "morning"、"training" 等
	ModeSubstring Mode = "substring"
	// ModeLeave 消息包含请假关键词
	ModeLeave Mode = "leave"
)

// ParseMode 解析配置中的模式字符串，大小写不敏感。
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrict, "":
		return ModeStrict, nil
	case ModeSubstring:
		return ModeSubstring, nil
	case ModeLeave:
		return ModeLeave, nil
	default:
		return "", fmt.Errorf("unknown check-in mode %q", s)
	}
}

// Classification 单条消息的判定结果
type Classification int

const (
	Ignored Classification = iota
	CheckIn
	LeaveNotice
)

func (c Classification) String() string {
	switch c {
	case CheckIn:
		return "check_in"
	case LeaveNotice:
		return "leave_notice"
	default:
		return "ignored"
	}
}

var leaveKeywords = []string{"leave", "pto", "vacation", "sick", "day off", "absent"}

// Classifier 纯函数分类器，零值等价于 strict 模式
type Classifier struct {
	Mode Mode
}

func NewClassifier(mode Mode) Classifier {
	return Classifier{Mode: mode}
}

// Classify 判定一条消息。没有作者或正文为空的消息一律忽略。
func (c Classifier) Classify(msg model.RawMessage) Classification {
	text := strings.ToLower(strings.TrimSpace(msg.Text))
	if msg.AuthorID == "" || text == "" {
		return Ignored
	}

	switch c.Mode {
	case ModeLeave:
		for _, kw := range leaveKeywords {
			if strings.Contains(text, kw) {
				return LeaveNotice
			}
		}
		return Ignored
	case ModeSubstring:
		if strings.Contains(text, "in") {
			return CheckIn
		}
		return Ignored
	default:
		// 首个词为 in 即算签到，换行、制表符同样视为分隔
		if fields := strings.Fields(text); fields[0] == "in" {
			return CheckIn
		}
		return Ignored
	}
}

// Counts 当前模式下计入报表的判定结果
func (c Classifier) Counts(result Classification) bool {
	if c.Mode == ModeLeave {
		return result == LeaveNotice
	}
	return result == CheckIn
}

// Events 把历史消息转换为考勤事件，日期由 dateOf 统一计算。
func (c Classifier) Events(messages []model.RawMessage, dateOf func(epoch int64) string) []model.AttendanceEvent {
	events := make([]model.AttendanceEvent, 0, len(messages))
	for _, msg := range messages {
		if !c.Counts(c.Classify(msg)) {
			continue
		}
		events = append(events, model.AttendanceEvent{
			MemberID: msg.AuthorID,
			Date:     dateOf(msg.PostedAt),
			RawText:  msg.Text,
			PostedAt: msg.PostedAt,
		})
	}
	return events
}
