package attendance

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/errors"
)

var (
	alice = model.Member{ID: "U1", DisplayName: "Alice"}
	bob   = model.Member{ID: "U2", DisplayName: "Bob"}
	carol = model.Member{ID: "U3", DisplayName: "Carol"}
	dave  = model.Member{ID: "U4", DisplayName: "Dave (HR)"}
	robot = model.Member{ID: "B1", DisplayName: "standup-bot", IsBot: true}
)

func ev(member, date string) model.AttendanceEvent {
	return model.AttendanceEvent{MemberID: member, Date: date, RawText: "in"}
}

func presentIDs(r Report) []string {
	ids := make([]string, 0, len(r.Present))
	for _, p := range r.Present {
		ids = append(ids, p.Member.ID)
	}
	return ids
}

func absentIDs(r Report) []string {
	ids := make([]string, 0, len(r.Absent))
	for _, m := range r.Absent {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestAggregateAliceAndBob(t *testing.T) {
	day := Window{Start: "2024-01-08", End: "2024-01-08"}

	r, err := Aggregate([]model.AttendanceEvent{ev("U1", "2024-01-08")}, []model.Member{alice, bob}, day, nil)
	require.NoError(t, err)

	require.Len(t, r.Present, 1)
	assert.Equal(t, "Alice", r.Present[0].Member.DisplayName)
	assert.Equal(t, []model.Member{bob}, r.Absent)
	assert.True(t, r.RosterKnown)
}

func TestAggregateCountsOneDayPerDate(t *testing.T) {
	day := Window{Start: "2024-01-08", End: "2024-01-08"}
	events := []model.AttendanceEvent{
		ev("U1", "2024-01-08"),
		ev("U1", "2024-01-08"),
		ev("U1", "2024-01-08"),
	}

	r, err := Aggregate(events, []model.Member{alice}, day, nil)
	require.NoError(t, err)

	require.Len(t, r.Present, 1)
	assert.Equal(t, 1, r.Present[0].Days)
	assert.Equal(t, []string{"2024-01-08"}, r.Present[0].Dates)
	assert.Equal(t, 3, r.EventCount)
}

func TestAggregateInvalidWindow(t *testing.T) {
	r, err := Aggregate([]model.AttendanceEvent{ev("U1", "2024-01-08")}, []model.Member{alice},
		Window{Start: "2024-01-12", End: "2024-01-08"}, nil)

	assert.True(t, stderrors.Is(err, errors.InvalidWindow))
	assert.Equal(t, Report{}, r)
}

func TestAggregateRankingIsStable(t *testing.T) {
	week := Window{Start: "2024-01-08", End: "2024-01-12"}
	// 事件顺序与花名册相反，且为倒序时间
	events := []model.AttendanceEvent{
		ev("U3", "2024-01-10"),
		ev("U3", "2024-01-09"),
		ev("U2", "2024-01-09"),
		ev("U2", "2024-01-08"),
		ev("U1", "2024-01-08"),
	}

	r, err := Aggregate(events, []model.Member{alice, bob, carol}, week, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"U2", "U3", "U1"}, presentIDs(r))
	assert.Equal(t, []int{2, 2, 1}, []int{r.Present[0].Days, r.Present[1].Days, r.Present[2].Days})
	assert.Empty(t, r.Absent)

	again, err := Aggregate(events, []model.Member{alice, bob, carol}, week, nil)
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestAggregateDropsEventsOutsideWindow(t *testing.T) {
	week := Window{Start: "2024-01-08", End: "2024-01-12"}
	events := []model.AttendanceEvent{
		ev("U1", "2024-01-07"),
		ev("U1", "2024-01-13"),
		ev("U2", "2024-01-12"),
	}

	r, err := Aggregate(events, []model.Member{alice, bob}, week, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"U2"}, presentIDs(r))
	assert.Equal(t, []string{"U1"}, absentIDs(r))
	assert.Equal(t, 1, r.EventCount)
}

func TestAggregateExclusions(t *testing.T) {
	day := Window{Start: "2024-01-08", End: "2024-01-08"}
	events := []model.AttendanceEvent{
		ev("U4", "2024-01-08"),
		ev("B1", "2024-01-08"),
		ev("U1", "2024-01-08"),
	}

	r, err := Aggregate(events, []model.Member{alice, bob, dave, robot}, day, []string{"hr"})
	require.NoError(t, err)

	assert.Equal(t, []string{"U1"}, presentIDs(r))
	assert.Equal(t, []string{"U2"}, absentIDs(r))
	assert.Equal(t, []string{"hr"}, r.Exclusions)
}

func TestAggregatePartitionsFilteredRoster(t *testing.T) {
	week := Window{Start: "2024-01-08", End: "2024-01-12"}
	roster := []model.Member{alice, bob, carol, dave, robot}
	exclusions := []string{"HR"}
	eventSets := [][]model.AttendanceEvent{
		nil,
		{ev("U1", "2024-01-08")},
		{ev("U1", "2024-01-08"), ev("U2", "2024-01-09"), ev("U3", "2024-01-20")},
		{ev("U4", "2024-01-08"), ev("UX", "2024-01-08")},
	}

	filtered := FilterRoster(roster, exclusions)
	for _, events := range eventSets {
		r, err := Aggregate(events, roster, week, exclusions)
		require.NoError(t, err)

		seen := make(map[string]int)
		for _, id := range presentIDs(r) {
			seen[id]++
		}
		for _, id := range absentIDs(r) {
			seen[id]++
		}
		require.Len(t, seen, len(filtered))
		for _, m := range filtered {
			assert.Equal(t, 1, seen[m.ID], m.ID)
		}
	}
}

func TestAggregateWithoutRosterUsesAuthorIDs(t *testing.T) {
	week := Window{Start: "2024-01-08", End: "2024-01-12"}
	events := []model.AttendanceEvent{
		ev("U9", "2024-01-08"),
		ev("U5", "2024-01-08"),
		ev("U5", "2024-01-09"),
		ev("U7", "2024-01-10"),
	}

	r, err := Aggregate(events, nil, week, nil)
	require.NoError(t, err)

	assert.False(t, r.RosterKnown)
	assert.Equal(t, []string{"U5", "U7", "U9"}, presentIDs(r))
	assert.Empty(t, r.Absent)
}

func TestAggregateEmpty(t *testing.T) {
	r, err := Aggregate(nil, nil, Window{Start: "2024-01-08", End: "2024-01-08"}, nil)
	require.NoError(t, err)
	assert.True(t, r.Empty())
}
