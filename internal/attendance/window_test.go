package attendance

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendanceBot/pkg/errors"
)

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	return loc
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, Window{Start: "2024-01-08", End: "2024-01-08"}.Validate())
	assert.NoError(t, Window{Start: "2024-01-08", End: "2024-01-12"}.Validate())

	err := Window{Start: "2024-01-09", End: "2024-01-08"}.Validate()
	assert.True(t, stderrors.Is(err, errors.InvalidWindow))

	err = Window{Start: "2024-13-01", End: "2024-01-08"}.Validate()
	assert.True(t, stderrors.Is(err, errors.InvalidWindow))
}

func TestWindowContainsIsInclusive(t *testing.T) {
	w := Window{Start: "2024-01-08", End: "2024-01-12"}

	assert.True(t, w.Contains("2024-01-08"))
	assert.True(t, w.Contains("2024-01-12"))
	assert.False(t, w.Contains("2024-01-07"))
	assert.False(t, w.Contains("2024-01-13"))
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := manila(t)
	// 2024-01-08T20:00:00Z 是马尼拉的 2024-01-09 04:00
	epoch := time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC).Unix()

	assert.Equal(t, "2024-01-09", DateOf(epoch, loc))
	assert.Equal(t, "2024-01-08", DateOf(epoch, time.UTC))
	assert.Equal(t, "2024-01-09", DateFunc(loc)(epoch))
}

func TestDayWindow(t *testing.T) {
	loc := manila(t)
	now := time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC)

	w := DayWindow(now, loc)
	assert.Equal(t, Window{Start: "2024-01-09", End: "2024-01-09"}, w)
	assert.True(t, w.SingleDay())
}

func TestWeekWindow(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		n   string
		now time.Time
		e   Window
	}{
		{"monday", time.Date(2024, 1, 8, 9, 0, 0, 0, loc), Window{Start: "2024-01-08", End: "2024-01-12"}},
		{"friday", time.Date(2024, 1, 12, 17, 0, 0, 0, loc), Window{Start: "2024-01-08", End: "2024-01-12"}},
		{"saturday", time.Date(2024, 1, 13, 9, 0, 0, 0, loc), Window{Start: "2024-01-08", End: "2024-01-12"}},
		{"sunday belongs to previous week", time.Date(2024, 1, 14, 9, 0, 0, 0, loc), Window{Start: "2024-01-08", End: "2024-01-12"}},
		{"crosses month", time.Date(2024, 2, 1, 9, 0, 0, 0, loc), Window{Start: "2024-01-29", End: "2024-02-02"}},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			assert.Equal(t, tt.e, WeekWindow(tt.now, loc))
		})
	}
}

func TestStartOf(t *testing.T) {
	loc := manila(t)
	start, err := Window{Start: "2024-01-08", End: "2024-01-12"}.StartOf(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 7, 16, 0, 0, 0, time.UTC), start.UTC())
}
