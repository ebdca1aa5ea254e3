package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jiaming2012/chart-trainer/src/backtester-api/models"
	"github.com/jiaming2012/chart-trainer/src/cmd/evaluate_position/run"
)

var runCmd = &cobra.Command{
	Use:   "go run src/cmd/evaluate_position/main.go --csv charts_data/chart.csv --type long --entry-index 0 --stop 95 --take-profit 110 --amount 50",
	Short: "Evaluate a single position against a CSV price series",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, err := cmd.Flags().GetString("csv")
		if err != nil {
			return fmt.Errorf("error getting csv: %w", err)
		}

		positionType, err := cmd.Flags().GetString("type")
		if err != nil {
			return fmt.Errorf("error getting type: %w", err)
		}

		entryIndex, err := cmd.Flags().GetInt("entry-index")
		if err != nil {
			return fmt.Errorf("error getting entry-index: %w", err)
		}

		stop, err := cmd.Flags().GetFloat64("stop")
		if err != nil {
			return fmt.Errorf("error getting stop: %w", err)
		}

		takeProfit, err := cmd.Flags().GetFloat64("take-profit")
		if err != nil {
			return fmt.Errorf("error getting take-profit: %w", err)
		}

		amount, err := cmd.Flags().GetFloat64("amount")
		if err != nil {
			return fmt.Errorf("error getting amount: %w", err)
		}

		mode, err := cmd.Flags().GetString("mode")
		if err != nil {
			return fmt.Errorf("error getting mode: %w", err)
		}

		window, err := cmd.Flags().GetInt("window")
		if err != nil {
			return fmt.Errorf("error getting window: %w", err)
		}

		balance, err := cmd.Flags().GetFloat64("balance")
		if err != nil {
			return fmt.Errorf("error getting balance: %w", err)
		}

		result, err := run.Run(cmd.Context(), run.RunArgs{
			CsvPath: csvPath,
			Mode:    models.EvaluationMode(mode),
			Window:  window,
			Balance: balance,
			Request: models.PositionRequest{
				Type:            models.PositionType(positionType),
				EntryIndex:      entryIndex,
				StopLevel:       stop,
				TakeProfitLevel: takeProfit,
				Amount:          amount,
			},
		})
		if err != nil {
			return err
		}

		fmt.Print(result.String())
		return nil
	},
}

func main() {
	runCmd.PersistentFlags().String("csv", "charts_data/chart.csv", "Path to the price series CSV.")
	runCmd.PersistentFlags().String("type", "long", "Position type: long or short.")
	runCmd.PersistentFlags().Int("entry-index", 0, "Index of the entry bar.")
	runCmd.PersistentFlags().Float64("stop", 0, "Stop-loss level.")
	runCmd.PersistentFlags().Float64("take-profit", 0, "Take-profit level.")
	runCmd.PersistentFlags().Float64("amount", 0, "Bet amount.")
	runCmd.PersistentFlags().String("mode", string(models.EvaluationModePriced), "Evaluation mode: priced or fixed_window.")
	runCmd.PersistentFlags().Int("window", models.DefaultFixedWindowSize, "Number of bars scanned in fixed_window mode.")
	runCmd.PersistentFlags().Float64("balance", models.DefaultStartingBalance, "Starting account balance.")

	runCmd.MarkPersistentFlagRequired("stop")
	runCmd.MarkPersistentFlagRequired("take-profit")
	runCmd.MarkPersistentFlagRequired("amount")

	runCmd.SilenceUsage = true

	if err := runCmd.Execute(); err != nil {
		log.Errorf("Error: %v", err)
		os.Exit(1)
	}
}
