package model

import "context"

// Writer defines a generic interface for persisting a finished report.
type Writer interface {
	// Write renders or ships the report. Implementations must not mutate it.
	Write(ctx context.Context, report *Report) error

	// Name identifies the writer in logs.
	Name() string
}
