package model

import "math"

const (
	secondsPerDay = 86400
	blockSeconds  = 1800

	// BlocksPerDay is the number of half-hour blocks in a day.
	BlocksPerDay = secondsPerDay / blockSeconds
	// DayCodes is the number of day classes.
	DayCodes = 2

	// Weekday is the day code of Monday to Friday.
	Weekday = 0
	// Weekend is the day code of Saturday and Sunday.
	Weekend = 1

	// epochDayOfWeek is the weekday of 2015-01-01 with Sunday as 0.
	epochDayOfWeek = 4
)

// DayCode maps a day of week (0 = Sunday) onto Weekday or Weekend.
func DayCode(dayOfWeek int) int {
	if dayOfWeek >= 1 && dayOfWeek <= 5 {
		return Weekday
	}
	return Weekend
}

// TimeBlock returns the half-hour block of the day containing t.
func TimeBlock(t float64) int {
	s := int64(math.Floor(t)) % secondsPerDay
	if s < 0 {
		s += secondsPerDay
	}
	return int(s / blockSeconds)
}

// DayOfWeekAt returns the day of week (0 = Sunday) of simulation time t.
func DayOfWeekAt(t float64) int {
	d := (int64(math.Floor(t))/secondsPerDay + epochDayOfWeek) % 7
	if d < 0 {
		d += 7
	}
	return int(d)
}
