package models

import (
	"time"

	"github.com/google/uuid"
)

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "Open"
	PositionStatusProfit PositionStatus = "Profit"
	PositionStatusLoss   PositionStatus = "Loss"
)

type PositionOutcome struct {
	ID               uuid.UUID      `json:"id"`
	Mode             EvaluationMode `json:"mode"`
	Status           PositionStatus `json:"status"`
	PositionType     PositionType   `json:"position_type"`
	Stake            float64        `json:"stake"`
	EntryIndex       int            `json:"entry_index"`
	EntryPrice       float64        `json:"entry_price"`
	ExitIndex        *int           `json:"exit_index"`
	ExitDate         *time.Time     `json:"exit_date"`
	ExitPrice        *float64       `json:"exit_price"`
	PercentageChange *float64       `json:"percentage_change"`
	ProfitLoss       float64        `json:"profit_loss"`
}
