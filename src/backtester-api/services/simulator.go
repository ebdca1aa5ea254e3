package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
	"github.com/jiaming2012/chart-trainer/src/eventpubsub"
)

type EvaluatePositionResult struct {
	Outcome    *models.PositionOutcome
	NewBalance *float64
}

// SimulatorService owns the loaded series and the account ledger. The series is never
// mutated after construction; every balance change goes through the ledger.
type SimulatorService struct {
	series    *models.PriceSeries
	ledger    *models.AccountLedger
	evaluator *models.PositionEvaluator
	bus       *eventpubsub.Bus
	history   *EvaluationHistory
	tracer    trace.Tracer
	evaluated metric.Int64Counter
}

func (s *SimulatorService) GetMode() models.EvaluationMode {
	return s.evaluator.GetMode()
}

func (s *SimulatorService) EvaluatePosition(ctx context.Context, req *models.PositionRequest) (*EvaluatePositionResult, error) {
	ctx, span := s.tracer.Start(ctx, "EvaluatePosition")
	defer span.End()

	span.SetAttributes(
		attribute.String("position_type", string(req.Type)),
		attribute.Int("entry_index", req.EntryIndex),
		attribute.String("mode", string(s.evaluator.GetMode())),
	)

	if err := req.Validate(s.series.Len()); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("EvaluatePosition: %w", err)
	}

	var newBalance *float64
	var outcome *models.PositionOutcome

	if s.evaluator.GetMode().TracksBalance() {
		balance, err := s.ledger.Transact(func(balance float64) (float64, error) {
			if req.Amount > balance {
				return 0, fmt.Errorf("%w: bet amount %.2f exceeds balance %.2f", models.InvalidStakeErr, req.Amount, balance)
			}

			var evalErr error
			outcome, evalErr = s.evaluator.Evaluate(s.series, req)
			if evalErr != nil {
				return 0, evalErr
			}

			return outcome.ProfitLoss, nil
		})

		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("EvaluatePosition: %w", err)
		}

		newBalance = &balance
	} else {
		var err error
		outcome, err = s.evaluator.Evaluate(s.series, req)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("EvaluatePosition: %w", err)
		}
	}

	span.SetAttributes(
		attribute.String("status", string(outcome.Status)),
		attribute.Float64("profit_loss", outcome.ProfitLoss),
	)

	s.evaluated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(outcome.Status)),
		attribute.String("mode", string(outcome.Mode)),
	))

	log.WithContext(ctx).WithFields(log.Fields{
		"id":            outcome.ID.String(),
		"position_type": outcome.PositionType,
		"entry_index":   outcome.EntryIndex,
		"status":        outcome.Status,
		"profit_loss":   outcome.ProfitLoss,
	}).Info("position evaluated")

	s.bus.Publish(eventpubsub.PositionEvaluatedEvent, PositionEvaluatedEvent{
		Outcome:    outcome,
		NewBalance: newBalance,
		Timestamp:  time.Now(),
	})

	return &EvaluatePositionResult{
		Outcome:    outcome,
		NewBalance: newBalance,
	}, nil
}

func (s *SimulatorService) ChartData(start int, limit *int) ([]eventmodels.PriceBar, error) {
	return s.series.SliceFrom(start, limit)
}

func (s *SimulatorService) Summary() (*models.SeriesSummary, error) {
	return s.series.Summary()
}

func (s *SimulatorService) LastEntries(n int) ([]eventmodels.PriceBar, error) {
	return s.series.Tail(n)
}

func (s *SimulatorService) AveragePrice(start, end int) (float64, error) {
	return s.series.AverageClose(start, end)
}

func (s *SimulatorService) Balance() float64 {
	return s.ledger.Balance()
}

func (s *SimulatorService) ResetBalance() float64 {
	balance := s.ledger.Reset()

	s.bus.Publish(eventpubsub.BalanceResetEvent, BalanceResetEvent{
		Balance:   balance,
		Timestamp: time.Now(),
	})

	return balance
}

func (s *SimulatorService) History() []HistoryEntry {
	return s.history.Entries()
}

func NewSimulatorService(series *models.PriceSeries, ledger *models.AccountLedger, evaluator *models.PositionEvaluator, bus *eventpubsub.Bus, history *EvaluationHistory) (*SimulatorService, error) {
	if err := history.Subscribe(bus); err != nil {
		return nil, fmt.Errorf("NewSimulatorService: %w", err)
	}

	evaluated, err := otel.GetMeterProvider().Meter("simulator").Int64Counter(
		"positions.evaluated",
		metric.WithDescription("Number of positions evaluated"),
	)
	if err != nil {
		return nil, fmt.Errorf("NewSimulatorService: failed to create counter: %w", err)
	}

	return &SimulatorService{
		series:    series,
		ledger:    ledger,
		evaluator: evaluator,
		bus:       bus,
		history:   history,
		tracer:    otel.GetTracerProvider().Tracer("simulator"),
		evaluated: evaluated,
	}, nil
}
