// Package downsample reduces a raw price series to at most four samples
// per UTC day, one per target hour.
package downsample

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TargetHours are the UTC hours a day is sampled at.
var TargetHours = []int{0, 6, 12, 18}

// DefaultTolerance is how far a raw point may sit from a slot and still
// fill it.
const DefaultTolerance = 180 * time.Minute

type Point struct {
	TS    time.Time
	Price decimal.Decimal
}

// Sample is one filled slot: the slot identity plus the raw point chosen
// for it.
type Sample struct {
	Date  string // YYYY-MM-DD in UTC
	Hour  int
	TS    time.Time
	Price decimal.Decimal
}

type slotKey struct {
	date string
	hour int
}

type candidate struct {
	point Point
	dist  time.Duration
}

// Summarize assigns each raw point to the target-hour slots of its own UTC
// day that lie within tolerance and keeps, per slot, the point with the
// smallest distance. On equal distance the earlier-seen point wins. Slots
// no point qualifies for are simply absent. The result is ordered by date
// then hour.
func Summarize(points []Point, tolerance time.Duration) []Sample {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	best := make(map[slotKey]candidate)
	for _, p := range points {
		t := p.TS.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		for _, hour := range TargetHours {
			slot := day.Add(time.Duration(hour) * time.Hour)
			dist := t.Sub(slot)
			if dist < 0 {
				dist = -dist
			}
			if dist > tolerance {
				continue
			}
			key := slotKey{date: day.Format("2006-01-02"), hour: hour}
			cur, ok := best[key]
			if !ok || dist < cur.dist {
				best[key] = candidate{point: p, dist: dist}
			}
		}
	}

	samples := make([]Sample, 0, len(best))
	for key, cand := range best {
		samples = append(samples, Sample{
			Date:  key.date,
			Hour:  key.hour,
			TS:    cand.point.TS.UTC(),
			Price: cand.point.Price,
		})
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Date != samples[j].Date {
			return samples[i].Date < samples[j].Date
		}
		return samples[i].Hour < samples[j].Hour
	})
	return samples
}
