package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nissand/polymarket-analytics/internal/models"
	"github.com/nissand/polymarket-analytics/internal/repository"
)

// SkewService measures how far captured prices sat from the eventual
// resolution. For every summary sample of a resolved market the final
// value is 1 for the winning outcome and 0 otherwise; skew is the absolute
// distance between the sampled price and that final value, bucketed by
// hours before the market's close.
type SkewService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type SkewBucket struct {
	HoursBeforeClose int     `json:"hours_before_close"`
	AvgSkew          float64 `json:"avg_skew"`
	MinSkew          float64 `json:"min_skew"`
	MaxSkew          float64 `json:"max_skew"`
	Samples          int     `json:"samples"`
}

type SkewReport struct {
	CaptureRequestID uint64       `json:"capture_request_id"`
	MarketsAnalyzed  int          `json:"markets_analyzed"`
	Samples          int          `json:"samples"`
	Buckets          []SkewBucket `json:"buckets"`
	AvgSkew24h       *float64     `json:"avg_skew_24h"`
	AvgSkew48h       *float64     `json:"avg_skew_48h"`
	AvgSkew7d        *float64     `json:"avg_skew_7d"`
}

type skewAccumulator struct {
	sum     float64
	min     float64
	max     float64
	samples int
}

func (s *SkewService) Analyze(ctx context.Context, captureRequestID uint64) (*SkewReport, error) {
	markets, err := s.Repo.ListResolvedMarketsByCaptureID(ctx, captureRequestID)
	if err != nil {
		return nil, err
	}
	report := &SkewReport{CaptureRequestID: captureRequestID, Buckets: []SkewBucket{}}
	if len(markets) == 0 {
		return report, nil
	}

	marketByID := make(map[uint64]*models.Market, len(markets))
	ids := make([]uint64, 0, len(markets))
	for i := range markets {
		m := &markets[i]
		if closeTimeOf(m) == nil {
			continue
		}
		marketByID[m.ID] = m
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return report, nil
	}

	summaries, err := s.Repo.ListDailySummariesByMarketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	buckets := make(map[int]*skewAccumulator)
	var sum24, sum48, sum7d float64
	var n24, n48, n7d int
	analyzed := make(map[uint64]struct{})

	for i := range summaries {
		row := &summaries[i]
		m, ok := marketByID[row.MarketID]
		if !ok || m.ResolvedOutcome == nil {
			continue
		}
		sampleTime, err := summaryTime(row)
		if err != nil {
			continue
		}
		closeTime := closeTimeOf(m)
		hoursBefore := closeTime.Sub(sampleTime).Hours()
		if hoursBefore < 0 {
			continue
		}

		finalValue := decimal.Zero
		if row.OutcomeLabel == *m.ResolvedOutcome {
			finalValue = decimal.New(1, 0)
		}
		skew := row.Price.Sub(finalValue).Abs().InexactFloat64()
		analyzed[row.MarketID] = struct{}{}
		report.Samples++

		bucketKey := int(hoursBefore/6) * 6
		acc, ok := buckets[bucketKey]
		if !ok {
			acc = &skewAccumulator{min: skew, max: skew}
			buckets[bucketKey] = acc
		}
		acc.sum += skew
		acc.samples++
		if skew < acc.min {
			acc.min = skew
		}
		if skew > acc.max {
			acc.max = skew
		}

		if hoursBefore <= 24 {
			sum24 += skew
			n24++
		}
		if hoursBefore <= 48 {
			sum48 += skew
			n48++
		}
		if hoursBefore <= 168 {
			sum7d += skew
			n7d++
		}
	}

	report.MarketsAnalyzed = len(analyzed)
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		acc := buckets[k]
		report.Buckets = append(report.Buckets, SkewBucket{
			HoursBeforeClose: k,
			AvgSkew:          acc.sum / float64(acc.samples),
			MinSkew:          acc.min,
			MaxSkew:          acc.max,
			Samples:          acc.samples,
		})
	}
	report.AvgSkew24h = avgPtr(sum24, n24)
	report.AvgSkew48h = avgPtr(sum48, n48)
	report.AvgSkew7d = avgPtr(sum7d, n7d)

	if s.Logger != nil {
		s.Logger.Debug("skew analysis finished",
			zap.Uint64("request_id", captureRequestID),
			zap.Int("markets", report.MarketsAnalyzed),
			zap.Int("samples", report.Samples))
	}
	return report, nil
}

func closeTimeOf(m *models.Market) *time.Time {
	if m.ClosedTime != nil {
		return m.ClosedTime
	}
	return m.EndTime
}

func summaryTime(row *models.DailySummary) (time.Time, error) {
	day, err := time.Parse("2006-01-02", row.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad summary date %q: %w", row.Date, err)
	}
	return day.Add(time.Duration(row.Hour) * time.Hour), nil
}

func avgPtr(sum float64, n int) *float64 {
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
