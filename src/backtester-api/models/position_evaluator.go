package models

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jiaming2012/chart-trainer/src/eventmodels"
)

type PositionEvaluator struct {
	mode   EvaluationMode
	window int
}

func (e *PositionEvaluator) GetMode() EvaluationMode {
	return e.mode
}

func (e *PositionEvaluator) GetWindow() int {
	return e.window
}

// Evaluate walks the series forward from the entry bar (inclusive) until the stop or the
// take profit is touched. When both are touched by the same bar the stop wins.
// The request is validated here as well so Evaluate can be called without the service
// layer in front of it.
func (e *PositionEvaluator) Evaluate(series *PriceSeries, req *PositionRequest) (*PositionOutcome, error) {
	if err := req.Validate(series.Len()); err != nil {
		return nil, err
	}

	entryBar, err := series.BarAt(req.EntryIndex)
	if err != nil {
		return nil, err
	}

	if e.mode == EvaluationModePriced && entryBar.Close <= 0 {
		return nil, fmt.Errorf("Evaluate: bar %d: %w", req.EntryIndex, NonPositiveEntryPriceErr)
	}

	var limit *int
	if e.mode == EvaluationModeFixedWindow {
		limit = &e.window
	}

	bars, err := series.SliceFrom(req.EntryIndex, limit)
	if err != nil {
		return nil, err
	}

	outcome := &PositionOutcome{
		ID:           uuid.New(),
		Mode:         e.mode,
		Status:       PositionStatusOpen,
		PositionType: req.Type,
		Stake:        req.Amount,
		EntryIndex:   req.EntryIndex,
		EntryPrice:   entryBar.Close,
	}

	for i, bar := range bars {
		status := resolveBar(req.Type, bar, req.StopLevel, req.TakeProfitLevel)
		if status == PositionStatusOpen {
			continue
		}

		exitIndex := req.EntryIndex + i
		exitDate := bar.Date
		exitPrice := req.TakeProfitLevel
		if status == PositionStatusLoss {
			exitPrice = req.StopLevel
		}

		outcome.Status = status
		outcome.ExitIndex = &exitIndex
		outcome.ExitDate = &exitDate
		outcome.ExitPrice = &exitPrice
		e.settle(outcome, req)
		break
	}

	return outcome, nil
}

func (e *PositionEvaluator) settle(outcome *PositionOutcome, req *PositionRequest) {
	switch e.mode {
	case EvaluationModeFixedWindow:
		if outcome.Status == PositionStatusLoss {
			outcome.ProfitLoss = -req.Amount
		} else {
			outcome.ProfitLoss = req.Amount
		}
	case EvaluationModePriced:
		priceDifference := *outcome.ExitPrice - outcome.EntryPrice
		if req.Type == PositionTypeShort {
			priceDifference = outcome.EntryPrice - *outcome.ExitPrice
		}

		percentageChange := 100 * priceDifference / outcome.EntryPrice
		outcome.PercentageChange = &percentageChange
		outcome.ProfitLoss = req.Amount * percentageChange / 100
	}
}

func resolveBar(positionType PositionType, bar eventmodels.PriceBar, stopLevel, takeProfitLevel float64) PositionStatus {
	switch positionType {
	case PositionTypeLong:
		if bar.Low <= stopLevel {
			return PositionStatusLoss
		}
		if bar.High >= takeProfitLevel {
			return PositionStatusProfit
		}
	case PositionTypeShort:
		if bar.High >= stopLevel {
			return PositionStatusLoss
		}
		if bar.Low <= takeProfitLevel {
			return PositionStatusProfit
		}
	}

	return PositionStatusOpen
}

func NewPositionEvaluator(mode EvaluationMode, window int) (*PositionEvaluator, error) {
	if err := mode.Validate(); err != nil {
		return nil, fmt.Errorf("NewPositionEvaluator: %w", err)
	}

	if window <= 0 {
		window = DefaultFixedWindowSize
	}

	return &PositionEvaluator{
		mode:   mode,
		window: window,
	}, nil
}
