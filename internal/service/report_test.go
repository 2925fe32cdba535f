package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/internal/attendance"
	"AttendanceBot/internal/ledger"
	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/slack"
)

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	return loc
}

func at(loc *time.Location, day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, loc)
}

func newGateway(loc *time.Location) *slack.MockClient {
	gw := slack.NewMockClient()
	gw.Channels = []model.Channel{{ID: "C1", Name: "attendance"}, {ID: "C2", Name: "ops"}}
	gw.Members["C1"] = []string{"U1", "U2", "B1", "U4"}
	gw.Profiles = map[string]model.Member{
		"U1": {ID: "U1", DisplayName: "Alice"},
		"U2": {ID: "U2", DisplayName: "Bob"},
		"B1": {ID: "B1", DisplayName: "standup-bot", IsBot: true},
		"U4": {ID: "U4", DisplayName: "Tuaha"},
	}
	gw.History["C1"] = []model.RawMessage{
		{AuthorID: "U2", Text: "good morning", PostedAt: at(loc, 8, 9).Unix()},
		{AuthorID: "U1", Text: "in", PostedAt: at(loc, 8, 9).Unix()},
		{AuthorID: "U1", Text: "in", PostedAt: at(loc, 8, 8).Unix()},
		{AuthorID: "U4", Text: "in", PostedAt: at(loc, 8, 8).Unix()},
	}
	return gw
}

func newService(gw slack.Client, store ledger.Store, loc *time.Location) *ReportService {
	return NewReportService(gw, store, ReportConfig{
		SourceChannel: "attendance",
		BotName:       "Attendance Bot",
		Location:      loc,
		Exclusions:    []string{"tuaha"},
		Mode:          attendance.ModeStrict,
	})
}

func itemIDs(b model.Block) []string {
	ids := make([]string, 0, len(b.Items))
	for _, it := range b.Items {
		ids = append(ids, it.MemberID)
	}
	return ids
}

func TestDailyReport(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	svc := newService(gw, ledger.NewMemoryStore(), loc)

	msg, err := svc.Daily(context.Background(), at(loc, 8, 10))
	require.NoError(t, err)

	assert.Equal(t, "Daily Attendance Summary - 2024-01-08", msg.Title)
	assert.Equal(t, "1 member(s) checked in today", msg.Blocks[1].Text)
	assert.Equal(t, []string{"U1"}, itemIDs(msg.Blocks[2]))
	assert.Equal(t, "⚠️ Absent Today (1 member(s)):", msg.Blocks[3].Text)
	assert.Equal(t, []model.Item{{Icon: "❌", MemberID: "U2", Label: "Bob"}}, msg.Blocks[4].Items)
	assert.True(t, at(loc, 8, 0).Equal(gw.HistoryOldest))
}

func TestDailyReportShowsLeave(t *testing.T) {
	loc := manila(t)
	store := ledger.NewMemoryStore()
	require.NoError(t, store.Append(context.Background(), &model.LeaveRecord{
		MemberID: "U2", MemberName: "Bob", LeaveType: "sick", StartDate: "2024-01-08", EndDate: "2024-01-09",
	}))
	svc := newService(newGateway(loc), store, loc)

	msg, err := svc.Daily(context.Background(), at(loc, 8, 10))
	require.NoError(t, err)

	assert.Equal(t, "🌴 On Leave Today (1):", msg.Blocks[5].Text)
}

func TestWeeklyReportRanksByDays(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.History["C1"] = append(gw.History["C1"],
		model.RawMessage{AuthorID: "U2", Text: "in", PostedAt: at(loc, 9, 9).Unix()},
		model.RawMessage{AuthorID: "U2", Text: "in", PostedAt: at(loc, 10, 9).Unix()},
	)
	svc := newService(gw, nil, loc)

	msg, err := svc.Weekly(context.Background(), at(loc, 12, 17))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-08 to 2024-01-12", msg.Blocks[1].Text)
	require.Len(t, msg.Blocks[3].Items, 2)
	assert.Equal(t, "Bob", msg.Blocks[3].Items[0].Label)
	assert.Equal(t, "2 check-in(s)", msg.Blocks[3].Items[0].Detail)
	assert.Equal(t, "Alice", msg.Blocks[3].Items[1].Label)
	assert.Equal(t, "Data from #attendance (excluding tuaha)", msg.Blocks[len(msg.Blocks)-1].Text)
	assert.True(t, at(loc, 8, 0).Equal(gw.HistoryOldest))
}

func TestReportAbortsWhenSourceChannelMissing(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.Channels = []model.Channel{{ID: "C2", Name: "ops"}}

	_, err := newService(gw, nil, loc).Daily(context.Background(), at(loc, 8, 10))
	assert.True(t, stderrors.Is(err, errors.ChannelNotFound))
}

func TestReportAbortsWhenGatewayUnavailable(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.ListErr = stderrors.New("connection refused")

	_, err := newService(gw, nil, loc).Daily(context.Background(), at(loc, 8, 10))
	assert.True(t, stderrors.Is(err, errors.GatewayUnavailable))
}

func TestReportWithoutRosterUsesAuthors(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.MembersErr = stderrors.New("ratelimited")

	msg, err := newService(gw, nil, loc).Daily(context.Background(), at(loc, 8, 10))
	require.NoError(t, err)

	// 没有花名册时无法识别排除名单与缺勤
	assert.Equal(t, "2 member(s) checked in today", msg.Blocks[1].Text)
	assert.Equal(t, []string{"U1", "U4"}, itemIDs(msg.Blocks[2]))
	for _, b := range msg.Blocks {
		assert.NotContains(t, b.Text, "Absent")
	}
}

func TestReportWithoutHistoryMarksEveryoneAbsent(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.HistoryErr = stderrors.New("timeout")

	msg, err := newService(gw, nil, loc).Daily(context.Background(), at(loc, 8, 10))
	require.NoError(t, err)

	assert.Equal(t, "0 member(s) checked in today", msg.Blocks[1].Text)
	assert.Equal(t, "⚠️ Absent Today (2 member(s)):", msg.Blocks[2].Text)
}

func TestReportNothingToReport(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.MembersErr = stderrors.New("ratelimited")
	gw.History["C1"] = nil

	msg, err := newService(gw, nil, loc).Weekly(context.Background(), at(loc, 12, 17))
	require.NoError(t, err)
	assert.Equal(t, "Nothing to report", msg.Title)
}

func TestBuildRejectsInvalidWindow(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)

	_, err := newService(gw, nil, loc).Build(context.Background(), "weekly", attendance.Window{Start: "2024-01-12", End: "2024-01-08"})
	assert.True(t, stderrors.Is(err, errors.InvalidWindow))
	assert.True(t, gw.HistoryOldest.IsZero())
}

func TestRosterKeepsUnresolvableProfilesByID(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.Members["C1"] = []string{"U1", "U9", "U2"}

	members := newService(gw, nil, loc).roster(context.Background(), "C1")
	assert.Equal(t, []model.Member{
		{ID: "U1", DisplayName: "Alice"},
		{ID: "U9"},
		{ID: "U2", DisplayName: "Bob"},
	}, members)
}

func TestDailyReportListsUnresolvedMemberAsAbsent(t *testing.T) {
	loc := manila(t)
	gw := newGateway(loc)
	gw.Members["C1"] = append(gw.Members["C1"], "U9")
	svc := newService(gw, nil, loc)

	msg, err := svc.Daily(context.Background(), at(loc, 8, 10))
	require.NoError(t, err)

	assert.Equal(t, "⚠️ Absent Today (2 member(s)):", msg.Blocks[3].Text)
	assert.Equal(t, []model.Item{
		{Icon: "❌", MemberID: "U2", Label: "Bob"},
		{Icon: "❌", MemberID: "U9"},
	}, msg.Blocks[4].Items)
}
