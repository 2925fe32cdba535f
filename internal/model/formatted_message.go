package model

// BlockKind 与具体聊天平台无关的展示块类型
type BlockKind string

const (
	BlockHeader  BlockKind = "header"
	BlockSection BlockKind = "section"
	BlockContext BlockKind = "context"
	BlockDivider BlockKind = "divider"
)

// FormattedMessage 渲染结果，Title 同时作为通知的纯文本回退
type FormattedMessage struct {
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Block 一个展示块。Emphasis 表示整段强调显示；Items 逐行展示。
type Block struct {
	Kind     BlockKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Emphasis bool      `json:"emphasis,omitempty"`
	Items    []Item    `json:"items,omitempty"`
}

// Item 一行成员信息。MemberID 非空时由网关渲染为 @ 提及。
type Item struct {
	Icon     string `json:"icon,omitempty"`
	MemberID string `json:"member_id,omitempty"`
	Label    string `json:"label,omitempty"`
	Detail   string `json:"detail,omitempty"`
}
