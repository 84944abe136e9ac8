package dashboard

import (
	"math"
	"time"
)

// GrowthRate is the percent change from previous to current, rounded to
// one decimal. A previous count of zero yields zero.
func GrowthRate(current, previous int) float64 {
	if previous <= 0 {
		return 0
	}
	g := float64(current-previous) / float64(previous) * 100
	return math.Round(g*10) / 10
}

// PercentOf returns part as a whole percent of total, zero when total is zero
func PercentOf(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// StatsWindow holds the cutoffs used by the statistics queries
type StatsWindow struct {
	// PreviousCutoff is one calendar month before now
	PreviousCutoff time.Time
	// MonthStart is the first instant of the current month
	MonthStart time.Time
}

// NewStatsWindow computes the cutoffs relative to now, in now's location
func NewStatsWindow(now time.Time) StatsWindow {
	return StatsWindow{
		PreviousCutoff: now.AddDate(0, -1, 0),
		MonthStart:     time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()),
	}
}
