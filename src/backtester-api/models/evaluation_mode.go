package models

import "fmt"

type EvaluationMode string

const (
	// EvaluationModePriced scans to the end of the series and prices the exit.
	EvaluationModePriced EvaluationMode = "priced"

	// EvaluationModeFixedWindow scans a fixed number of bars and returns the signed stake.
	EvaluationModeFixedWindow EvaluationMode = "fixed_window"
)

const DefaultFixedWindowSize = 10

func (m EvaluationMode) Validate() error {
	switch m {
	case EvaluationModePriced, EvaluationModeFixedWindow:
		return nil
	default:
		return fmt.Errorf("unknown evaluation mode %q", m)
	}
}

// TracksBalance reports whether outcomes in this mode are applied to the account ledger.
func (m EvaluationMode) TracksBalance() bool {
	return m == EvaluationModePriced
}
