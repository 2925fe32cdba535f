package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"AttendanceBot/pkg/errors"
)

// Action 子命令
type Action string

const (
	ActionDaily   Action = "daily"
	ActionWeekly  Action = "weekly"
	ActionHelp    Action = "help"
	ActionList    Action = "list"
	ActionFile    Action = "file"
	ActionUnknown Action = "unknown"
)

// Broadcast 报表类回复发到目标频道，其余回到发起频道
func (a Action) Broadcast() bool {
	return a == ActionDaily || a == ActionWeekly
}

// Parsed 一次命令解析结果
type Parsed struct {
	Action Action
	Sub    string // 原始子命令，未知命令时回显
	Leave  *FileArgs
}

// FileArgs file 子命令参数
type FileArgs struct {
	MemberID   string // 仅当使用 Slack 提及格式时可得
	MemberName string
	LeaveType  string
	StartDate  string
	EndDate    string
	Reason     string
}

const dateLayout = "2006-01-02"

// <@U123|bob> 或 <@U123>
var mentionPattern = regexp.MustCompile(`^<@([A-Z0-9]+)(?:\|([^>]*))?>$`)

// Parse 解析斜杠命令文本。只有 file 会返回错误（UsageError）。
func Parse(text string) (Parsed, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Parsed{Action: ActionDaily}, nil
	}

	sub := strings.ToLower(fields[0])
	switch sub {
	case "today", "daily":
		return Parsed{Action: ActionDaily, Sub: sub}, nil
	case "week", "weekly":
		return Parsed{Action: ActionWeekly, Sub: sub}, nil
	case "help":
		return Parsed{Action: ActionHelp, Sub: sub}, nil
	case "list":
		return Parsed{Action: ActionList, Sub: sub}, nil
	case "file":
		args, err := parseFile(fields[1:])
		if err != nil {
			return Parsed{Action: ActionFile, Sub: sub}, err
		}
		return Parsed{Action: ActionFile, Sub: sub, Leave: args}, nil
	default:
		return Parsed{Action: ActionUnknown, Sub: fields[0]}, nil
	}
}

func parseFile(tokens []string) (*FileArgs, error) {
	if len(tokens) < 4 {
		return nil, fmt.Errorf("%w: name, type, start date and end date are required", errors.UsageError)
	}

	args := &FileArgs{
		LeaveType: strings.ToLower(tokens[1]),
		StartDate: tokens[2],
		EndDate:   tokens[3],
		Reason:    strings.Join(tokens[4:], " "),
	}
	args.MemberID, args.MemberName = parseTarget(tokens[0])
	if args.MemberName == "" && args.MemberID == "" {
		return nil, fmt.Errorf("%w: missing member name", errors.UsageError)
	}

	start, err := time.Parse(dateLayout, args.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start date %q is not YYYY-MM-DD", errors.UsageError, args.StartDate)
	}
	end, err := time.Parse(dateLayout, args.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end date %q is not YYYY-MM-DD", errors.UsageError, args.EndDate)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s", errors.UsageError, args.StartDate, args.EndDate)
	}

	return args, nil
}

// parseTarget 支持 bob、@bob 与 Slack 转义提及 <@U123|bob>
func parseTarget(token string) (id, name string) {
	if m := mentionPattern.FindStringSubmatch(token); m != nil {
		name = m[2]
		if name == "" {
			name = m[1]
		}
		return m[1], name
	}
	return "", strings.TrimPrefix(token, "@")
}
