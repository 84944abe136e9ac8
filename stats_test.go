package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGrowthRate(t *testing.T) {
	assert.Equal(t, 20.0, GrowthRate(120, 100))
	assert.Equal(t, 0.0, GrowthRate(5, 0))
	assert.Equal(t, -50.0, GrowthRate(50, 100))
	assert.Equal(t, 33.3, GrowthRate(4, 3))
	assert.Equal(t, 0.0, GrowthRate(7, 7))
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0, PercentOf(3, 0))
	assert.Equal(t, 50, PercentOf(1, 2))
	assert.Equal(t, 33, PercentOf(1, 3))
}

func TestNewStatsWindow(t *testing.T) {
	now := time.Date(2025, 3, 31, 18, 30, 0, 0, time.UTC)
	w := NewStatsWindow(now)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), w.MonthStart)
	assert.Equal(t, now.AddDate(0, -1, 0), w.PreviousCutoff)
}
