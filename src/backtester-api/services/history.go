package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/eventpubsub"
)

type PositionEvaluatedEvent struct {
	Outcome    *models.PositionOutcome
	NewBalance *float64
	Timestamp  time.Time
}

type BalanceResetEvent struct {
	Balance   float64
	Timestamp time.Time
}

type HistoryEntryType string

const (
	HistoryEntryEvaluation HistoryEntryType = "evaluation"
	HistoryEntryReset      HistoryEntryType = "reset"
)

type HistoryEntry struct {
	Type      HistoryEntryType        `json:"type"`
	Timestamp time.Time               `json:"timestamp"`
	Outcome   *models.PositionOutcome `json:"outcome,omitempty"`
	Balance   *float64                `json:"balance,omitempty"`
}

// EvaluationHistory keeps the most recent evaluations and resets for the lifetime of the
// process. It is fed from the event bus.
type EvaluationHistory struct {
	mutex    sync.Mutex
	entries  []HistoryEntry
	capacity int
}

func (h *EvaluationHistory) Subscribe(bus *eventpubsub.Bus) error {
	if err := bus.Subscribe(eventpubsub.PositionEvaluatedEvent, h.onPositionEvaluated); err != nil {
		return fmt.Errorf("EvaluationHistory: subscribe to %s: %w", eventpubsub.PositionEvaluatedEvent, err)
	}

	if err := bus.Subscribe(eventpubsub.BalanceResetEvent, h.onBalanceReset); err != nil {
		return fmt.Errorf("EvaluationHistory: subscribe to %s: %w", eventpubsub.BalanceResetEvent, err)
	}

	return nil
}

func (h *EvaluationHistory) Entries() []HistoryEntry {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *EvaluationHistory) onPositionEvaluated(ev PositionEvaluatedEvent) {
	h.append(HistoryEntry{
		Type:      HistoryEntryEvaluation,
		Timestamp: ev.Timestamp,
		Outcome:   ev.Outcome,
		Balance:   ev.NewBalance,
	})
}

func (h *EvaluationHistory) onBalanceReset(ev BalanceResetEvent) {
	balance := ev.Balance
	h.append(HistoryEntry{
		Type:      HistoryEntryReset,
		Timestamp: ev.Timestamp,
		Balance:   &balance,
	})
}

func (h *EvaluationHistory) append(entry HistoryEntry) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

func NewEvaluationHistory(capacity int) *EvaluationHistory {
	if capacity <= 0 {
		capacity = 1
	}

	return &EvaluationHistory{
		capacity: capacity,
	}
}
