package util

import "time"

var cstLocation *time.Location

func init() {
	var err error
	cstLocation, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		cstLocation = time.FixedZone("CST", 8*60*60)
	}
}

// FormatUnixCST renders unix seconds as "2006-01-02 15:04:05" Beijing time.
func FormatUnixCST(sec int64) string {
	return time.Unix(sec, 0).In(cstLocation).Format(time.DateTime)
}

// DateStamp is the UTC calendar date of t, e.g. "2026-10-19".
func DateStamp(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// HourCST is the Beijing-time hour of day (0-23) of unix seconds.
func HourCST(sec int64) int {
	return time.Unix(sec, 0).In(cstLocation).Hour()
}
