package models

import "fmt"

type PositionType string

const (
	PositionTypeLong  PositionType = "long"
	PositionTypeShort PositionType = "short"
)

func (t PositionType) Validate() error {
	switch t {
	case PositionTypeLong, PositionTypeShort:
		return nil
	default:
		return fmt.Errorf("%w: unknown position type %q", MalformedInputErr, t)
	}
}

// ValidateThresholds checks that the stop sits on the losing side of the take profit.
func (t PositionType) ValidateThresholds(stopLevel, takeProfitLevel float64) error {
	switch t {
	case PositionTypeLong:
		if stopLevel >= takeProfitLevel {
			return fmt.Errorf("%w: stop level must be less than take profit level for a long position", InvalidThresholdOrderingErr)
		}
	case PositionTypeShort:
		if stopLevel <= takeProfitLevel {
			return fmt.Errorf("%w: stop level must be greater than take profit level for a short position", InvalidThresholdOrderingErr)
		}
	default:
		return t.Validate()
	}

	return nil
}
