package model

// CommandSource 命令来源
type CommandSource string

const (
	CommandSourceSlash    CommandSource = "slash"
	CommandSourceSchedule CommandSource = "schedule"
)

// CommandMessage 斜杠命令或定时触发，经由队列交给 worker 执行
type CommandMessage struct {
	MessageID string        `json:"message_id"` // 用于幂等性检查
	Source    CommandSource `json:"source"`
	Text      string        `json:"text"`
	UserID    string        `json:"user_id,omitempty"`
	UserName  string        `json:"user_name,omitempty"`
	ChannelID string        `json:"channel_id,omitempty"`
	TeamID    string        `json:"team_id,omitempty"`
	IssuedAt  string        `json:"issued_at"` // RFC3339
}
