package biz

import (
	"fmt"
	"time"

	"lottery-service/internal/constants"
)

// Calendar answers "which lottery day is it" in a fixed-offset zone.
// The zone never observes daylight saving, so every day is exactly 24h.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar 创建抽奖日历
func NewCalendar(opts *LotteryOptions) *Calendar {
	return NewCalendarAt(opts.TimezoneOffsetHours, time.Now)
}

// NewCalendarAt builds a calendar with an injectable clock.
func NewCalendarAt(offsetHours int, now func() time.Time) *Calendar {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	return &Calendar{
		loc: time.FixedZone(name, offsetHours*3600),
		now: now,
	}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current lottery day as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.Now().Format(constants.DayFormat)
}

// Yesterday returns the previous lottery day as YYYY-MM-DD.
func (c *Calendar) Yesterday() string {
	return c.DayStart().AddDate(0, 0, -1).Format(constants.DayFormat)
}

// DayStart is local midnight of the current lottery day.
func (c *Calendar) DayStart() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// DayRange returns [start, end) of the given YYYY-MM-DD day.
func (c *Calendar) DayRange(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(constants.DayFormat, day, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// UntilMidnight is the time left in the current day, rounded up to whole seconds and never below 1s.
func (c *Calendar) UntilMidnight() time.Duration {
	next := c.DayStart().AddDate(0, 0, 1)
	left := next.Sub(c.Now())
	secs := (left + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
