package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/internal/model"
)

func msg(author, text string) model.RawMessage {
	return model.RawMessage{AuthorID: author, Text: text, PostedAt: 1704700800}
}

func TestClassifyStrict(t *testing.T) {
	c := NewClassifier(ModeStrict)

	tests := []struct {
		n    string
		text string
		e    Classification
	}{
		{"exact", "in", CheckIn},
		{"upper and padded", "  IN  ", CheckIn},
		{"prefix with note", "in - wfh today", CheckIn},
		{"newline after in", "in\nWFH today", CheckIn},
		{"tab after in", "in\tearly", CheckIn},
		{"leading newline", "\nin", CheckIn},
		{"no word boundary", "inbox zero", Ignored},
		{"substring only", "Working on it", Ignored},
		{"morning", "good morning", Ignored},
		{"empty", "   ", Ignored},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			assert.Equal(t, tt.e, c.Classify(msg("U1", tt.text)))
		})
	}
}

func TestClassifyWorkingOnItDependsOnMode(t *testing.T) {
	m := msg("U1", "Working on it")

	assert.Equal(t, Ignored, NewClassifier(ModeStrict).Classify(m))
	assert.Equal(t, CheckIn, NewClassifier(ModeSubstring).Classify(m))
}

func TestClassifyLeave(t *testing.T) {
	c := NewClassifier(ModeLeave)

	assert.Equal(t, LeaveNotice, c.Classify(msg("U1", "Out sick today")))
	assert.Equal(t, LeaveNotice, c.Classify(msg("U1", "Taking a DAY OFF friday")))
	assert.Equal(t, LeaveNotice, c.Classify(msg("U1", "PTO next week")))
	assert.Equal(t, Ignored, c.Classify(msg("U1", "in")))
}

func TestClassifyWithoutAuthorIsIgnored(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModeSubstring, ModeLeave} {
		assert.Equal(t, Ignored, NewClassifier(mode).Classify(msg("", "in sick leave")), mode)
	}
}

func TestClassifyIsPure(t *testing.T) {
	inputs := []model.RawMessage{
		msg("U1", "in"),
		msg("U2", "training"),
		msg("U3", "sick"),
		msg("", "in"),
	}
	for _, mode := range []Mode{ModeStrict, ModeSubstring, ModeLeave} {
		c := NewClassifier(mode)
		for _, in := range inputs {
			first := c.Classify(in)
			assert.Equal(t, first, c.Classify(in))
		}
	}
}

func TestZeroClassifierIsStrict(t *testing.T) {
	var c Classifier
	assert.Equal(t, Ignored, c.Classify(msg("U1", "training")))
	assert.Equal(t, CheckIn, c.Classify(msg("U1", "in")))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, mode)

	mode, err = ParseMode(" Substring ")
	require.NoError(t, err)
	assert.Equal(t, ModeSubstring, mode)

	mode, err = ParseMode("LEAVE")
	require.NoError(t, err)
	assert.Equal(t, ModeLeave, mode)

	_, err = ParseMode("fuzzy")
	assert.Error(t, err)
}

func TestEventsKeepsOnlyCountedMessages(t *testing.T) {
	c := NewClassifier(ModeStrict)
	messages := []model.RawMessage{
		{AuthorID: "U2", Text: "in", PostedAt: 200},
		{AuthorID: "U1", Text: "lunch?", PostedAt: 150},
		{AuthorID: "U1", Text: "in", PostedAt: 100},
	}

	events := c.Events(messages, func(epoch int64) string {
		if epoch >= 200 {
			return "2024-01-09"
		}
		return "2024-01-08"
	})

	require.Len(t, events, 2)
	assert.Equal(t, model.AttendanceEvent{MemberID: "U2", Date: "2024-01-09", RawText: "in", PostedAt: 200}, events[0])
	assert.Equal(t, "U1", events[1].MemberID)
	assert.Equal(t, "2024-01-08", events[1].Date)
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "check_in", CheckIn.String())
	assert.Equal(t, "leave_notice", LeaveNotice.String())
	assert.Equal(t, "ignored", Ignored.String())
}
