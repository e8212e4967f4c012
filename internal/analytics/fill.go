package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillDaily returns one point per calendar day from start through end,
// taking values from sparse and zero everywhere else.
func FillDaily(start, end time.Time, sparse map[string]Point) []Point {
	out := []Point{}
	for d := startOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		p, ok := sparse[key]
		if !ok {
			p = Point{Revenue: decimal.Zero}
		}
		p.Period = key
		out = append(out, p)
	}
	return out
}

func FillMonthly(start, end time.Time, sparse map[string]Point) []Point {
	out := []Point{}
	for m := startOfMonth(start); !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format(monthLayout)
		p, ok := sparse[key]
		if !ok {
			p = Point{Revenue: decimal.Zero}
		}
		p.Period = key
		out = append(out, p)
	}
	return out
}

// FillCounts is FillDaily or FillMonthly for plain counters.
func FillCounts(start, end time.Time, monthly bool, sparse map[string]int) []Count {
	step, layout, first := func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }, dayLayout, startOfDay(start)
	if monthly {
		step, layout, first = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }, monthLayout, startOfMonth(start)
	}

	out := []Count{}
	for t := first; !t.After(end); t = step(t) {
		key := t.Format(layout)
		out = append(out, Count{Period: key, Count: sparse[key]})
	}
	return out
}

var deliveryBuckets = []struct {
	label string
	upTo  float64
}{
	{"<30", 30},
	{"30-60", 60},
	{"60-90", 90},
	{">90", -1},
}

// BucketDeliveryTimes averages delivery durations in minutes and sorts them
// into the fixed <30, 30-60, 60-90, >90 buckets. Bounds are exclusive above.
func BucketDeliveryTimes(minutes []float64) DeliveryTimes {
	dt := DeliveryTimes{Delivered: len(minutes), Buckets: make([]Bucket, len(deliveryBuckets))}
	for i, b := range deliveryBuckets {
		dt.Buckets[i].Label = b.label
	}

	var sum float64
	for _, m := range minutes {
		sum += m
		for i, b := range deliveryBuckets {
			if b.upTo < 0 || m < b.upTo {
				dt.Buckets[i].Count++
				break
			}
		}
	}
	if len(minutes) > 0 {
		dt.AverageMinutes = float64(int(sum/float64(len(minutes))*10+0.5)) / 10
	}
	return dt
}

func averageOrderValue(revenue decimal.Decimal, orders int) decimal.Decimal {
	if orders == 0 {
		return decimal.Zero
	}
	return revenue.Div(decimal.NewFromInt(int64(orders))).Round(2)
}

func sumOrders(points []Point) int {
	n := 0
	for _, p := range points {
		n += p.Orders
	}
	return n
}
