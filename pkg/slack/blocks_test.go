package slack

import (
	"strings"
	"testing"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/internal/model"
)

func TestItemLine(t *testing.T) {
	tests := []struct {
		n    string
		item model.Item
		e    string
	}{
		{"present", model.Item{Icon: "✅", MemberID: "U1"}, "✅ <@U1>"},
		{"absent", model.Item{Icon: "❌", MemberID: "U2", Label: "Bob"}, "❌ <@U2> (Bob)"},
		{"weekly", model.Item{Icon: "•", Label: "Bob", Detail: "3 check-in(s)"}, "• Bob - 3 check-in(s)"},
		{"escaped", model.Item{Label: "R&D <ops>"}, "R&amp;D &lt;ops&gt;"},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			assert.Equal(t, tt.e, ItemLine(tt.item))
		})
	}
}

func TestToBlocks(t *testing.T) {
	msg := model.FormattedMessage{
		Title: "Daily",
		Blocks: []model.Block{
			{Kind: model.BlockHeader, Text: "📊 Daily Attendance Summary - 2024-01-08"},
			{Kind: model.BlockSection, Text: "1 member(s) checked in today", Emphasis: true},
			{Kind: model.BlockSection, Items: []model.Item{{Icon: "✅", MemberID: "U1"}, {Icon: "✅", MemberID: "U3"}}},
			{Kind: model.BlockDivider},
			{Kind: model.BlockContext, Text: "Data from #attendance"},
		},
	}

	blocks := ToBlocks(msg)
	require.Len(t, blocks, 5)

	header, ok := blocks[0].(*goslack.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "📊 Daily Attendance Summary - 2024-01-08", header.Text.Text)

	count, ok := blocks[1].(*goslack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "*1 member(s) checked in today*", count.Text.Text)
	assert.Equal(t, goslack.MarkdownType, count.Text.Type)

	items, ok := blocks[2].(*goslack.SectionBlock)
	require.True(t, ok)
	assert.Equal(t, "✅ <@U1>\n✅ <@U3>", items.Text.Text)

	_, ok = blocks[3].(*goslack.DividerBlock)
	assert.True(t, ok)

	footer, ok := blocks[4].(*goslack.ContextBlock)
	require.True(t, ok)
	require.Len(t, footer.ContextElements.Elements, 1)
	assert.Equal(t, "_Data from #attendance_", footer.ContextElements.Elements[0].(*goslack.TextBlockObject).Text)
}

func TestToBlocksSplitsLongSections(t *testing.T) {
	items := make([]model.Item, 0, 300)
	for i := 0; i < 300; i++ {
		items = append(items, model.Item{Icon: "❌", MemberID: "U0123456789", Label: strings.Repeat("x", 20)})
	}

	blocks := ToBlocks(model.FormattedMessage{Blocks: []model.Block{{Kind: model.BlockSection, Items: items}}})

	require.Greater(t, len(blocks), 1)
	lines := 0
	for _, b := range blocks {
		section := b.(*goslack.SectionBlock)
		assert.LessOrEqual(t, len(section.Text.Text), maxSectionText)
		lines += strings.Count(section.Text.Text, "\n") + 1
	}
	assert.Equal(t, 300, lines)
}
