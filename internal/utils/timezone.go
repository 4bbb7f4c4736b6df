package utils

import (
	"time"
	_ "time/tzdata"
)

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// DateInLocation formats t as YYYY-MM-DD in loc.
func DateInLocation(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
