package models

import (
	"sync"

	"github.com/shopspring/decimal"
)

const DefaultStartingBalance = 1000.0

// AccountLedger holds the simulated balance. All reads and writes go through one mutex so
// a balance check and the update that depends on it can run as a single unit.
type AccountLedger struct {
	mutex           *sync.Mutex
	startingBalance decimal.Decimal
	balance         decimal.Decimal
}

func (l *AccountLedger) GetStartingBalance() float64 {
	return l.startingBalance.InexactFloat64()
}

func (l *AccountLedger) Balance() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.balance.InexactFloat64()
}

func (l *AccountLedger) Apply(profitLoss float64) float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.apply(profitLoss)
}

func (l *AccountLedger) Reset() float64 {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.balance = l.startingBalance
	return l.balance.InexactFloat64()
}

// Transact calls fn with the current balance while holding the lock and applies the
// returned delta. Nothing is applied when fn fails.
func (l *AccountLedger) Transact(fn func(balance float64) (float64, error)) (float64, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delta, err := fn(l.balance.InexactFloat64())
	if err != nil {
		return l.balance.InexactFloat64(), err
	}

	return l.apply(delta), nil
}

func (l *AccountLedger) apply(profitLoss float64) float64 {
	l.balance = l.balance.Add(decimal.NewFromFloat(profitLoss))
	return l.balance.InexactFloat64()
}

func NewAccountLedger(startingBalance float64) *AccountLedger {
	start := decimal.NewFromFloat(startingBalance)

	return &AccountLedger{
		mutex:           &sync.Mutex{},
		startingBalance: start,
		balance:         start,
	}
}
