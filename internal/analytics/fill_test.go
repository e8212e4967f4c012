package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	assert.Equal(t, Range7d, ParseRange("7d"))
	assert.Equal(t, Range12m, ParseRange("12m"))
	assert.Equal(t, DefaultRange, ParseRange(""))
	assert.Equal(t, DefaultRange, ParseRange("1y"))

	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 24, 12, 0, 0, 0, time.UTC), Range7d.Start(now))
	assert.Equal(t, time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), Range12m.Start(now))
	assert.False(t, Range12m.HasDaily())
	assert.True(t, Range90d.HasDaily())
}

func TestFillDaily(t *testing.T) {
	start := time.Date(2025, 1, 30, 15, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC)

	points := FillDaily(start, end, map[string]Point{
		"2025-01-31": {Orders: 3, Revenue: decimal.RequireFromString("45.50")},
	})

	require.Len(t, points, 4)
	assert.Equal(t, "2025-01-30", points[0].Period)
	assert.Equal(t, 0, points[0].Orders)
	assert.True(t, points[0].Revenue.IsZero())
	assert.Equal(t, "2025-01-31", points[1].Period)
	assert.Equal(t, 3, points[1].Orders)
	assert.Equal(t, "2025-02-02", points[3].Period)
}

func TestFillMonthly(t *testing.T) {
	start := time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	points := FillMonthly(start, end, map[string]Point{"2024-12": {Orders: 2, Revenue: decimal.NewFromInt(10)}})

	require.Len(t, points, 4)
	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"},
		[]string{points[0].Period, points[1].Period, points[2].Period, points[3].Period})
	assert.Equal(t, 2, points[1].Orders)
}

func TestFillCounts(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	got := FillCounts(start, end, false, map[string]int{"2025-01-02": 4})
	assert.Equal(t, []Count{{"2025-01-01", 0}, {"2025-01-02", 4}, {"2025-01-03", 0}}, got)

	monthly := FillCounts(start, end, true, map[string]int{"2025-01": 9})
	assert.Equal(t, []Count{{"2025-01", 9}}, monthly)
}

func TestBucketDeliveryTimes(t *testing.T) {
	dt := BucketDeliveryTimes([]float64{10, 29.9, 30, 59, 60, 89.5, 90, 241})

	assert.Equal(t, 8, dt.Delivered)
	require.Len(t, dt.Buckets, 4)
	assert.Equal(t, Bucket{"<30", 2}, dt.Buckets[0])
	assert.Equal(t, Bucket{"30-60", 2}, dt.Buckets[1])
	assert.Equal(t, Bucket{"60-90", 2}, dt.Buckets[2])
	assert.Equal(t, Bucket{">90", 2}, dt.Buckets[3])
	assert.InDelta(t, 76.2, dt.AverageMinutes, 0.01)

	empty := BucketDeliveryTimes(nil)
	assert.Zero(t, empty.AverageMinutes)
	assert.Len(t, empty.Buckets, 4)
}

func TestAverageOrderValue(t *testing.T) {
	assert.True(t, averageOrderValue(decimal.NewFromInt(100), 0).IsZero())
	assert.Equal(t, "33.33", averageOrderValue(decimal.NewFromInt(100), 3).StringFixed(2))
}
