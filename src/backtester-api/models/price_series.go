package models

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/chart-trainer/src/eventmodels"
)

// PriceSeries is read-only once constructed and may be shared across goroutines.
type PriceSeries struct {
	bars []eventmodels.PriceBar
}

type SeriesSummary struct {
	TotalEntries int     `json:"total_entries"`
	MaxClose     float64 `json:"max_close"`
	MinClose     float64 `json:"min_close"`
	AverageClose float64 `json:"average_close"`
	LatestDate   string  `json:"latest_date"`
	EarliestDate string  `json:"earliest_date"`
}

func (s *PriceSeries) Len() int {
	return len(s.bars)
}

func (s *PriceSeries) BarAt(index int) (eventmodels.PriceBar, error) {
	if index < 0 || index >= len(s.bars) {
		return eventmodels.PriceBar{}, fmt.Errorf("%w: index %d not in [0, %d)", IndexOutOfRangeErr, index, len(s.bars))
	}

	return s.bars[index], nil
}

// SliceFrom returns the bars in [start, start+limit), clipped to the series. A nil limit
// returns everything from start onward.
func (s *PriceSeries) SliceFrom(start int, limit *int) ([]eventmodels.PriceBar, error) {
	if start < 0 || start > len(s.bars) {
		return nil, fmt.Errorf("%w: start %d not in [0, %d]", RangeErr, start, len(s.bars))
	}

	end := len(s.bars)
	if limit != nil {
		if *limit < 0 {
			return nil, fmt.Errorf("%w: limit cannot be negative", RangeErr)
		}

		if *limit < end-start {
			end = start + *limit
		}
	}

	return s.copyRange(start, end), nil
}

func (s *PriceSeries) Tail(n int) ([]eventmodels.PriceBar, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: number of entries must be at least 1", RangeErr)
	}

	start := len(s.bars) - n
	if start < 0 {
		start = 0
	}

	return s.copyRange(start, len(s.bars)), nil
}

func (s *PriceSeries) Summary() (*SeriesSummary, error) {
	if len(s.bars) == 0 {
		return nil, fmt.Errorf("%w: series is empty", RangeErr)
	}

	closes := s.closes(0, len(s.bars))

	maxClose, err := stats.Max(closes)
	if err != nil {
		return nil, fmt.Errorf("Summary: max close: %w", err)
	}

	minClose, err := stats.Min(closes)
	if err != nil {
		return nil, fmt.Errorf("Summary: min close: %w", err)
	}

	mean, err := stats.Mean(closes)
	if err != nil {
		return nil, fmt.Errorf("Summary: mean close: %w", err)
	}

	avg, err := stats.Round(mean, 2)
	if err != nil {
		return nil, fmt.Errorf("Summary: round mean close: %w", err)
	}

	earliest, latest := s.bars[0].Date, s.bars[0].Date
	for _, b := range s.bars[1:] {
		if b.Date.Before(earliest) {
			earliest = b.Date
		}
		if b.Date.After(latest) {
			latest = b.Date
		}
	}

	return &SeriesSummary{
		TotalEntries: len(s.bars),
		MaxClose:     maxClose,
		MinClose:     minClose,
		AverageClose: avg,
		LatestDate:   latest.Format(eventmodels.CalendarDateLayout),
		EarliestDate: earliest.Format(eventmodels.CalendarDateLayout),
	}, nil
}

// AverageClose returns the mean close over [start, end), rounded to two places.
func (s *PriceSeries) AverageClose(start, end int) (float64, error) {
	if start < 0 || end >= len(s.bars) || start >= end {
		return 0, fmt.Errorf("%w: invalid index range [%d, %d)", RangeErr, start, end)
	}

	mean, err := stats.Mean(s.closes(start, end))
	if err != nil {
		return 0, fmt.Errorf("AverageClose: %w", err)
	}

	return stats.Round(mean, 2)
}

func (s *PriceSeries) closes(start, end int) stats.Float64Data {
	closes := make(stats.Float64Data, 0, end-start)
	for _, b := range s.bars[start:end] {
		closes = append(closes, b.Close)
	}

	return closes
}

func (s *PriceSeries) copyRange(start, end int) []eventmodels.PriceBar {
	out := make([]eventmodels.PriceBar, end-start)
	copy(out, s.bars[start:end])
	return out
}

func NewPriceSeries(bars []eventmodels.PriceBar) *PriceSeries {
	owned := make([]eventmodels.PriceBar, len(bars))
	copy(owned, bars)

	return &PriceSeries{
		bars: owned,
	}
}
