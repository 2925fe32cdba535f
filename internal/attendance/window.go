package attendance

import (
	"fmt"
	"time"

	"AttendanceBot/pkg/errors"
)

const DateLayout = "2006-01-02"

// Window 闭区间日期范围，日期格式 2006-01-02
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate 日期必须可解析且 Start <= End。
func (w Window) Validate() error {
	start, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		return fmt.Errorf("%w: bad start date %q", errors.InvalidWindow, w.Start)
	}
	end, err := time.Parse(DateLayout, w.End)
	if err != nil {
		return fmt.Errorf("%w: bad end date %q", errors.InvalidWindow, w.End)
	}
	if start.After(end) {
		return fmt.Errorf("%w: %s > %s", errors.InvalidWindow, w.Start, w.End)
	}
	return nil
}

// Contains 日期字符串按字典序比较即可，格式固定。
func (w Window) Contains(date string) bool {
	return w.Start <= date && date <= w.End
}

func (w Window) SingleDay() bool {
	return w.Start == w.End
}

// DateOf 把 epoch 秒转换为 loc 时区下的日历日。
func DateOf(epoch int64, loc *time.Location) string {
	return time.Unix(epoch, 0).In(loc).Format(DateLayout)
}

// DateFunc 绑定时区的 DateOf，保证一份报表只用一个时区。
func DateFunc(loc *time.Location) func(int64) string {
	return func(epoch int64) string {
		return DateOf(epoch, loc)
	}
}

// DayWindow now 所在日（loc 时区）
func DayWindow(now time.Time, loc *time.Location) Window {
	day := now.In(loc).Format(DateLayout)
	return Window{Start: day, End: day}
}

// WeekWindow now 所在周的周一到周五；周日归属上一周。
func WeekWindow(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	offset := int(local.Weekday()) - int(time.Monday)
	if local.Weekday() == time.Sunday {
		offset = 6
	}
	monday := local.AddDate(0, 0, -offset)
	friday := monday.AddDate(0, 0, 4)
	return Window{Start: monday.Format(DateLayout), End: friday.Format(DateLayout)}
}

// StartOf 窗口起始日 00:00（loc 时区），用作历史消息的 oldest 参数。
func (w Window) StartOf(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, w.Start, loc)
}
