package slack

import (
	"strings"

	goslack "github.com/slack-go/slack"

	"AttendanceBot/internal/model"
)

// Slack section 文本上限 3000 字符，留出余量
const maxSectionText = 2900

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// ToBlocks 把平台无关的展示块转换为 Block Kit。成员列表合并进少量 section，避免超过 50 个块的上限。
func ToBlocks(msg model.FormattedMessage) []goslack.Block {
	blocks := make([]goslack.Block, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		switch b.Kind {
		case model.BlockHeader:
			blocks = append(blocks, goslack.NewHeaderBlock(
				goslack.NewTextBlockObject(goslack.PlainTextType, b.Text, true, false),
			))
		case model.BlockContext:
			blocks = append(blocks, goslack.NewContextBlock("",
				goslack.NewTextBlockObject(goslack.MarkdownType, "_"+b.Text+"_", false, false),
			))
		case model.BlockDivider:
			blocks = append(blocks, goslack.NewDividerBlock())
		default:
			for _, text := range sectionTexts(b) {
				blocks = append(blocks, goslack.NewSectionBlock(
					goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil,
				))
			}
		}
	}
	return blocks
}

func sectionTexts(b model.Block) []string {
	if len(b.Items) == 0 {
		if b.Emphasis {
			return []string{"*" + b.Text + "*"}
		}
		return []string{b.Text}
	}

	var (
		texts []string
		buf   strings.Builder
	)
	if b.Text != "" {
		buf.WriteString(b.Text)
	}
	for _, item := range b.Items {
		line := ItemLine(item)
		if buf.Len() > 0 && buf.Len()+len(line)+1 > maxSectionText {
			texts = append(texts, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}
	if buf.Len() > 0 {
		texts = append(texts, buf.String())
	}
	return texts
}

// ItemLine 渲染一行，如 "❌ <@U2> (Bob)"、"• Bob - 3 check-in(s)"
func ItemLine(item model.Item) string {
	var sb strings.Builder
	if item.Icon != "" {
		sb.WriteString(item.Icon)
		sb.WriteByte(' ')
	}
	switch {
	case item.MemberID != "" && item.Label != "":
		sb.WriteString("<@" + item.MemberID + "> (" + mrkdwnEscaper.Replace(item.Label) + ")")
	case item.MemberID != "":
		sb.WriteString("<@" + item.MemberID + ">")
	default:
		sb.WriteString(mrkdwnEscaper.Replace(item.Label))
	}
	if item.Detail != "" {
		sb.WriteString(" - " + mrkdwnEscaper.Replace(item.Detail))
	}
	return sb.String()
}
