package router

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/backtester-api/services"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
)

type PricedEvaluationResponse struct {
	ID               uuid.UUID             `json:"id"`
	Result           models.PositionStatus `json:"result"`
	EntryPrice       float64               `json:"entry_price"`
	ExitPrice        *float64              `json:"exit_price"`
	PositionType     models.PositionType   `json:"position_type"`
	PercentageChange *float64              `json:"percentage_change"`
	ProfitLoss       float64               `json:"profit_loss"`
	NewBalance       float64               `json:"new_balance"`
}

type FixedWindowEvaluationResponse struct {
	ID           uuid.UUID           `json:"id"`
	Result       float64             `json:"result"`
	PositionType models.PositionType `json:"position_type"`
	Stake        float64             `json:"stake"`
}

func evaluatePosition(ctx context.Context, service *services.SimulatorService, req *models.PositionRequest) (interface{}, error) {
	result, err := service.EvaluatePosition(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := result.Outcome

	switch outcome.Mode {
	case models.EvaluationModeFixedWindow:
		return &FixedWindowEvaluationResponse{
			ID:           outcome.ID,
			Result:       outcome.ProfitLoss,
			PositionType: outcome.PositionType,
			Stake:        outcome.Stake,
		}, nil
	case models.EvaluationModePriced:
		if result.NewBalance == nil {
			return nil, eventmodels.NewWebError(500, "InternalError", "priced evaluation returned no balance", nil)
		}

		return &PricedEvaluationResponse{
			ID:               outcome.ID,
			Result:           outcome.Status,
			EntryPrice:       outcome.EntryPrice,
			ExitPrice:        outcome.ExitPrice,
			PositionType:     outcome.PositionType,
			PercentageChange: outcome.PercentageChange,
			ProfitLoss:       outcome.ProfitLoss,
			NewBalance:       *result.NewBalance,
		}, nil
	default:
		return nil, fmt.Errorf("evaluatePosition: unknown evaluation mode %q", outcome.Mode)
	}
}
