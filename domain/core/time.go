package core

import (
	"time"
)

// MJDEpoch is the zero point of the modified Julian date, 1858-11-17 UTC.
var MJDEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// SecondsPerDay converts livetime days into seconds.
const SecondsPerDay = 86400.0

// MJD represents a modified Julian date in days.
type MJD float64

// MJDFromTime converts a wall-clock time into MJD.
func MJDFromTime(t time.Time) MJD {
	return MJD(t.UTC().Sub(MJDEpoch).Seconds() / SecondsPerDay)
}

// Time returns the UTC wall-clock time of the MJD.
func (m MJD) Time() time.Time {
	return MJDEpoch.Add(time.Duration(float64(m) * SecondsPerDay * float64(time.Second)))
}

// Float64 returns the raw day count
func (m MJD) Float64() float64 {
	return float64(m)
}
