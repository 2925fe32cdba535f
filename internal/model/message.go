package model

// RawMessage 频道历史中的一条消息，顺序不做任何假设
type RawMessage struct {
	AuthorID  string `json:"author_id"`
	Text      string `json:"text"`
	PostedAt  int64  `json:"posted_at"` // epoch seconds
	Timestamp string `json:"ts"`        // Slack 原始 ts，如 "1704700800.000200"
}

// AttendanceEvent 由分类器从 RawMessage 推导出的考勤事实
type AttendanceEvent struct {
	MemberID string `json:"member_id"`
	Date     string `json:"date"` // 2006-01-02，按配置时区计算
	RawText  string `json:"raw_text"`
	PostedAt int64  `json:"posted_at"`
}
