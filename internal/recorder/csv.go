package recorder

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"basis-spread-alerts/internal/scanner"
)

var csvHeader = []string{"scanned_at", "exchange", "contract", "futures_price", "spot_price", "profit", "observed_at"}

// CSV appends observations to a tabular log file. The first write creates
// the file with a header; later writes append rows only. Rows are never
// mutated or deleted.
type CSV struct {
	path   string
	logger zerolog.Logger
}

// NewCSV constructs a CSV recorder for the given path.
func NewCSV(path string, logger zerolog.Logger) *CSV {
	return &CSV{path: path, logger: logger.With().Str("component", "csv_recorder").Logger()}
}

// Record appends one row per observation. An empty result writes nothing and
// succeeds.
func (c *CSV) Record(ctx context.Context, result scanner.ScanResult) error {
	if len(result.Observations) == 0 {
		c.logger.Debug().Time("scanned_at", result.ScannedAt).Msg("no observations to record")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(c.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	writeHeader := false
	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		writeHeader = true
	} else if err != nil {
		return fmt.Errorf("stat observation log: %w", err)
	}

	file, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open observation log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for _, obs := range result.Observations {
		record := []string{
			result.ScannedAt.Format(time.RFC3339),
			obs.Exchange,
			obs.Contract,
			obs.FuturesPrice.String(),
			obs.SpotPrice.String(),
			obs.Profit.String(),
			obs.ObservedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write observation row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush observation log: %w", err)
	}

	c.logger.Info().Int("rows", len(result.Observations)).Str("path", c.path).Msg("observations appended")
	return nil
}

var _ Recorder = (*CSV)(nil)
