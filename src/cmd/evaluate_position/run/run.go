package run

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/backtester-api/services"
	"github.com/jiaming2012/chart-trainer/src/eventmodels"
	"github.com/jiaming2012/chart-trainer/src/eventpubsub"
)

type RunArgs struct {
	CsvPath string
	Mode    models.EvaluationMode
	Window  int
	Balance float64
	Request models.PositionRequest
}

type RunResult struct {
	Outcome    *models.PositionOutcome
	NewBalance *float64
}

// Run evaluates one position offline against a fresh ledger.
func Run(ctx context.Context, args RunArgs) (*RunResult, error) {
	series, err := services.ImportPriceSeriesFromCsv(args.CsvPath)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	evaluator, err := models.NewPositionEvaluator(args.Mode, args.Window)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	ledger := models.NewAccountLedger(args.Balance)
	simulator, err := services.NewSimulatorService(series, ledger, evaluator, eventpubsub.NewBus(), services.NewEvaluationHistory(1))
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	req := args.Request
	result, err := simulator.EvaluatePosition(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	return &RunResult{
		Outcome:    result.Outcome,
		NewBalance: result.NewBalance,
	}, nil
}

func (r *RunResult) String() string {
	display := &strings.Builder{}
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(display)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Field", "Value"})

	money := func(v float64) string {
		return fmt.Sprintf("$%s", p.Sprintf("%.2f", v))
	}

	o := r.Outcome
	table.Append([]string{"id", o.ID.String()})
	table.Append([]string{"mode", string(o.Mode)})
	table.Append([]string{"position type", string(o.PositionType)})
	table.Append([]string{"status", string(o.Status)})
	table.Append([]string{"entry index", fmt.Sprintf("%d", o.EntryIndex)})
	table.Append([]string{"entry price", p.Sprintf("%.2f", o.EntryPrice)})

	if o.ExitIndex != nil {
		table.Append([]string{"exit index", fmt.Sprintf("%d", *o.ExitIndex)})
	}
	if o.ExitDate != nil {
		table.Append([]string{"exit date", o.ExitDate.Format(eventmodels.CalendarDateLayout)})
	}
	if o.ExitPrice != nil {
		table.Append([]string{"exit price", p.Sprintf("%.2f", *o.ExitPrice)})
	}
	if o.PercentageChange != nil {
		table.Append([]string{"change", fmt.Sprintf("%.2f%%", *o.PercentageChange)})
	}

	table.Append([]string{"stake", money(o.Stake)})
	table.Append([]string{"profit/loss", money(o.ProfitLoss)})

	if r.NewBalance != nil {
		table.Append([]string{"balance", money(*r.NewBalance)})
	}

	table.Render()
	return display.String()
}
