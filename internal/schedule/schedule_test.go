package schedule

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/internal/model"
	"AttendanceBot/internal/report"
	"AttendanceBot/storage/redis"
)

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	return loc
}

func TestNextRun(t *testing.T) {
	loc := manila(t)
	jobs := DefaultJobs("10:00:00", "17:00:00")
	daily, weekly := jobs[0], jobs[1]

	tests := []struct {
		n   string
		job Job
		now time.Time
		e   time.Time
	}{
		{"daily later today", daily, time.Date(2024, 1, 8, 9, 0, 0, 0, loc), time.Date(2024, 1, 8, 10, 0, 0, 0, loc)},
		{"daily at the clock moves to tomorrow", daily, time.Date(2024, 1, 8, 10, 0, 0, 0, loc), time.Date(2024, 1, 9, 10, 0, 0, 0, loc)},
		{"daily skips weekend", daily, time.Date(2024, 1, 12, 11, 0, 0, 0, loc), time.Date(2024, 1, 15, 10, 0, 0, 0, loc)},
		{"weekly same friday", weekly, time.Date(2024, 1, 12, 16, 0, 0, 0, loc), time.Date(2024, 1, 12, 17, 0, 0, 0, loc)},
		{"weekly next friday", weekly, time.Date(2024, 1, 12, 18, 0, 0, 0, loc), time.Date(2024, 1, 19, 17, 0, 0, 0, loc)},
		{"utc now in manila terms", daily, time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 10, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			got, err := NextRun(tt.now, tt.job.Clock, tt.job.Days, loc)
			require.NoError(t, err)
			assert.True(t, tt.e.Equal(got), "got %s", got)
		})
	}
}

func TestNextRunErrors(t *testing.T) {
	_, err := NextRun(time.Now(), "10:00", nil, time.UTC)
	assert.Error(t, err)

	_, err = NextRun(time.Now(), "ten", weekdays, time.UTC)
	assert.Error(t, err)
}

type recorder struct {
	msgs []*model.CommandMessage
	err  error
}

func (r *recorder) publish(ctx context.Context, msg *model.CommandMessage) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func useMiniredis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	redis.Use(client)
	t.Cleanup(func() {
		redis.Use(nil)
		_ = client.Close()
	})
}

func TestTriggerOncePerDay(t *testing.T) {
	useMiniredis(t)
	loc := manila(t)
	rec := &recorder{}
	s := NewScheduler(loc, rec.publish)
	job := Job{Kind: report.Weekly, Clock: "17:00:00", Days: []time.Weekday{time.Friday}}
	at := time.Date(2024, 1, 12, 17, 0, 0, 0, loc)

	require.NoError(t, s.Trigger(context.Background(), job, at))
	require.NoError(t, s.Trigger(context.Background(), job, at))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "schedule:weekly:2024-01-12", rec.msgs[0].MessageID)
	assert.Equal(t, model.CommandSourceSchedule, rec.msgs[0].Source)
	assert.Equal(t, "week", rec.msgs[0].Text)
	assert.Equal(t, "2024-01-12T17:00:00+08:00", rec.msgs[0].IssuedAt)
	assert.Empty(t, rec.msgs[0].ChannelID)
}

func TestTriggerReleasesLockOnFailure(t *testing.T) {
	useMiniredis(t)
	rec := &recorder{err: stderrors.New("queue down")}
	s := NewScheduler(time.UTC, rec.publish)
	job := DefaultJobs("10:00:00", "17:00:00")[0]
	at := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)

	require.Error(t, s.Trigger(context.Background(), job, at))

	rec.err = nil
	require.NoError(t, s.Trigger(context.Background(), job, at))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "today", rec.msgs[0].Text)
}
