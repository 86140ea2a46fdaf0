package downsample

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func pt(t time.Time, price float64) Point {
	return Point{TS: t, Price: decimal.NewFromFloat(price)}
}

func TestSummarizeDenseDayYieldsFourSlots(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	points := make([]Point, 0, 24*60)
	for m := 0; m < 24*60; m++ {
		ts := day.Add(time.Duration(m) * time.Minute)
		points = append(points, pt(ts, float64(m)))
	}

	samples := Summarize(points, DefaultTolerance)
	if len(samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(samples))
	}
	for i, hour := range []int{0, 6, 12, 18} {
		s := samples[i]
		if s.Date != "2024-03-10" || s.Hour != hour {
			t.Fatalf("sample %d: got %s hour %d, want 2024-03-10 hour %d", i, s.Date, s.Hour, hour)
		}
		want := decimal.NewFromInt(int64(hour * 60))
		if !s.Price.Equal(want) {
			t.Fatalf("hour %d: price %s, want %s", hour, s.Price, want)
		}
	}
}

func TestSummarizeToleranceBoundary(t *testing.T) {
	slot := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	inside := []Point{pt(slot.Add(+2*time.Hour + 59*time.Minute), 0.4)}
	samples := Summarize(inside, DefaultTolerance)
	found := false
	for _, s := range samples {
		if s.Hour == 12 {
			found = true
		}
	}
	if !found {
		t.Fatalf("point 2h59m from slot should fill it, got %+v", samples)
	}

	outside := []Point{pt(slot.Add(3*time.Hour + time.Minute), 0.4)}
	for _, s := range Summarize(outside, DefaultTolerance) {
		if s.Hour == 12 {
			t.Fatalf("point 3h01m from slot must not fill it")
		}
	}
}

func TestSummarizeClosestWinsRegardlessOfOrder(t *testing.T) {
	slot := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	far := pt(slot.Add(90*time.Minute), 0.2)
	near := pt(slot.Add(5*time.Minute), 0.8)

	for _, points := range [][]Point{{far, near}, {near, far}} {
		samples := Summarize(points, DefaultTolerance)
		if len(samples) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(samples))
		}
		if !samples[0].Price.Equal(decimal.NewFromFloat(0.8)) {
			t.Fatalf("closest point should win, got price %s", samples[0].Price)
		}
	}
}

func TestSummarizeTieKeepsFirstSeen(t *testing.T) {
	slot := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	before := pt(slot.Add(-10*time.Minute), 0.3)
	after := pt(slot.Add(10*time.Minute), 0.7)

	samples := Summarize([]Point{before, after}, DefaultTolerance)
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if !samples[0].Price.Equal(decimal.NewFromFloat(0.3)) {
		t.Fatalf("on a distance tie the first point should be kept, got %s", samples[0].Price)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	if samples := Summarize(nil, DefaultTolerance); len(samples) != 0 {
		t.Fatalf("nil input should produce no samples, got %d", len(samples))
	}
}

func TestSummarizeSpansMultipleDays(t *testing.T) {
	points := []Point{
		pt(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), 0.5),
		pt(time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC), 0.6),
	}
	samples := Summarize(points, DefaultTolerance)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Date != "2024-03-10" || samples[1].Date != "2024-03-11" {
		t.Fatalf("samples not ordered by date: %+v", samples)
	}
}
