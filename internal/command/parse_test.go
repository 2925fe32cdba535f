package command

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/pkg/errors"
)

func TestParseActions(t *testing.T) {
	tests := []struct {
		n    string
		text string
		e    Action
	}{
		{"empty defaults to daily", "", ActionDaily},
		{"whitespace", "   ", ActionDaily},
		{"today", "today", ActionDaily},
		{"daily upper", "DAILY", ActionDaily},
		{"week", "week", ActionWeekly},
		{"weekly", " weekly ", ActionWeekly},
		{"help", "help", ActionHelp},
		{"list", "list", ActionList},
		{"unknown", "dance", ActionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			p, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.e, p.Action)
		})
	}
}

func TestParseUnknownKeepsOriginalToken(t *testing.T) {
	p, err := Parse("Dance party")
	require.NoError(t, err)
	assert.Equal(t, "Dance", p.Sub)
}

func TestParseFile(t *testing.T) {
	p, err := Parse("file @Bob sick 2024-02-01 2024-02-02 flu and fever")
	require.NoError(t, err)

	assert.Equal(t, ActionFile, p.Action)
	assert.Equal(t, &FileArgs{
		MemberName: "Bob",
		LeaveType:  "sick",
		StartDate:  "2024-02-01",
		EndDate:    "2024-02-02",
		Reason:     "flu and fever",
	}, p.Leave)
}

func TestParseFileMention(t *testing.T) {
	p, err := Parse("file <@U123|bob> vacation 2024-03-01 2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, "U123", p.Leave.MemberID)
	assert.Equal(t, "bob", p.Leave.MemberName)
	assert.Equal(t, "", p.Leave.Reason)

	p, err = Parse("file <@U123> pto 2024-03-01 2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "U123", p.Leave.MemberID)
	assert.Equal(t, "U123", p.Leave.MemberName)
}

func TestParseFileUsageErrors(t *testing.T) {
	tests := []struct {
		n    string
		text string
	}{
		{"nothing", "file"},
		{"missing type and dates", "file Bob"},
		{"missing end", "file Bob sick 2024-02-01"},
		{"bad start", "file Bob sick 02/01/2024 2024-02-02"},
		{"bad end", "file Bob sick 2024-02-01 tomorrow"},
		{"start after end", "file Bob sick 2024-02-03 2024-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			p, err := Parse(tt.text)
			assert.True(t, stderrors.Is(err, errors.UsageError), err)
			assert.Equal(t, ActionFile, p.Action)
			assert.Nil(t, p.Leave)
		})
	}
}

func TestActionBroadcast(t *testing.T) {
	assert.True(t, ActionDaily.Broadcast())
	assert.True(t, ActionWeekly.Broadcast())
	assert.False(t, ActionList.Broadcast())
	assert.False(t, ActionHelp.Broadcast())
	assert.False(t, ActionFile.Broadcast())
	assert.False(t, ActionUnknown.Broadcast())
}
