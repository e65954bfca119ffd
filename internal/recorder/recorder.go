package recorder

import (
	"context"

	"basis-spread-alerts/internal/scanner"
)

// Recorder appends scan observations to durable storage.
type Recorder interface {
	Record(ctx context.Context, result scanner.ScanResult) error
}
