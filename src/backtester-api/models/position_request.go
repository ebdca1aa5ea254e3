package models

import (
	"encoding/json"
	"fmt"
	"io"
)

// EvaluatePositionRequestDTO mirrors the wire payload. Pointer fields distinguish a
// missing field from a zero value. Stake is accepted as an alias for BetAmount.
type EvaluatePositionRequestDTO struct {
	PositionType    *string  `json:"position_type"`
	EntryIndex      *int     `json:"entry_index"`
	StopLevel       *float64 `json:"stop_level"`
	TakeProfitLevel *float64 `json:"take_profit_level"`
	BetAmount       *float64 `json:"bet_amount"`
	Stake           *float64 `json:"stake"`
}

type PositionRequest struct {
	Type            PositionType
	EntryIndex      int
	StopLevel       float64
	TakeProfitLevel float64
	Amount          float64
}

func DecodeEvaluatePositionRequest(r io.Reader) (*PositionRequest, error) {
	var dto EvaluatePositionRequestDTO
	if err := json.NewDecoder(r).Decode(&dto); err != nil {
		return nil, fmt.Errorf("%w: %v", MalformedInputErr, err)
	}

	return dto.ToModel()
}

func (dto *EvaluatePositionRequestDTO) ToModel() (*PositionRequest, error) {
	if dto.PositionType == nil {
		return nil, fmt.Errorf("%w: missing position_type", MalformedInputErr)
	}

	positionType := PositionType(*dto.PositionType)
	if err := positionType.Validate(); err != nil {
		return nil, err
	}

	if dto.EntryIndex == nil {
		return nil, fmt.Errorf("%w: missing entry_index", MalformedInputErr)
	}

	if dto.StopLevel == nil {
		return nil, fmt.Errorf("%w: missing stop_level", MalformedInputErr)
	}

	if dto.TakeProfitLevel == nil {
		return nil, fmt.Errorf("%w: missing take_profit_level", MalformedInputErr)
	}

	amount := dto.BetAmount
	if amount == nil {
		amount = dto.Stake
	}

	if amount == nil {
		return nil, fmt.Errorf("%w: missing bet_amount", MalformedInputErr)
	}

	return &PositionRequest{
		Type:            positionType,
		EntryIndex:      *dto.EntryIndex,
		StopLevel:       *dto.StopLevel,
		TakeProfitLevel: *dto.TakeProfitLevel,
		Amount:          *amount,
	}, nil
}

// Validate checks the request against a series of the given length. The balance check
// is not part of it: that runs under the ledger lock.
func (r *PositionRequest) Validate(seriesLen int) error {
	if err := r.Type.Validate(); err != nil {
		return err
	}

	if r.EntryIndex < 0 || r.EntryIndex >= seriesLen {
		return fmt.Errorf("%w: entry index %d not in [0, %d)", IndexOutOfRangeErr, r.EntryIndex, seriesLen)
	}

	if err := r.Type.ValidateThresholds(r.StopLevel, r.TakeProfitLevel); err != nil {
		return err
	}

	if r.Amount <= 0 {
		return fmt.Errorf("%w: bet amount must be greater than 0", InvalidStakeErr)
	}

	return nil
}
