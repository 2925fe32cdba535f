package model

// Member 频道成员，每次生成报表时从 Slack 重新获取
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsBot       bool   `json:"is_bot"`
}

// Channel Slack 频道
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
