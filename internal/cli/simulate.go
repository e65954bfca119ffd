package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateFutures string
	simulateSpot    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the evaluate-and-alert path with fixed prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		futures, err := decimal.NewFromString(simulateFutures)
		if err != nil {
			return fmt.Errorf("parse --futures: %w", err)
		}
		spot, err := decimal.NewFromString(simulateSpot)
		if err != nil {
			return fmt.Errorf("parse --spot: %w", err)
		}

		return getApp().SimulateAlert(cmd.Context(), futures, spot)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateFutures, "futures", "31200", "Simulated futures close price")
	simulateCmd.Flags().StringVar(&simulateSpot, "spot", "30000", "Simulated spot close price")
}
