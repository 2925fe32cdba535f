package utils

import (
	"time"
)

// ParseTime 解析 HH:MM:SS 或 HH:MM 并应用到 date 所在日期与时区
func ParseTime(timeStr string, date time.Time) (time.Time, error) {
	if timeStr == "" {
		return date, nil
	}

	parsedTime, err := time.Parse("15:04:05", timeStr)
	if err != nil {
		var shortErr error
		parsedTime, shortErr = time.Parse("15:04", timeStr)
		if shortErr != nil {
			return date, err
		}
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		parsedTime.Hour(),
		parsedTime.Minute(),
		parsedTime.Second(),
		0,
		date.Location(),
	), nil
}
