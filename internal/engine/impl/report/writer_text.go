package report

import (
	"bufio"
	"context"
	"flowtagger/internal/config"
	"flowtagger/internal/factory"
	"flowtagger/internal/model"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const (
	tagHeader   = "Count of Matches for Each Tag"
	tagColumns  = "Tag, Count"
	pairHeader  = "Count of Matches for Each Port/Protocol Combination"
	pairColumns = "Port, Protocol, Count"
	reportPerm  = 0644
	tempPattern = ".flowtagger-*.tmp"
)

func init() {
	factory.RegisterWriter("text", func(cfg *config.Config, def config.WriterDef) (model.Writer, error) {
		return NewTextWriter(cfg.TextPath(def)), nil
	})
}

// TextWriter writes the two-section plain text report to a file.
type TextWriter struct {
	path string
}

// NewTextWriter creates a text writer targeting path.
func NewTextWriter(path string) *TextWriter {
	return &TextWriter{path: path}
}

func (w *TextWriter) Name() string {
	return "text:" + w.path
}

// Path returns the report destination.
func (w *TextWriter) Path() string {
	return w.path
}

// Write renders the report into a temporary file next to the destination and renames it
// into place, so a failed write never leaves a partial report behind.
func (w *TextWriter) Write(ctx context.Context, report *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return model.NewPathError(model.ErrWriteFailure, w.path, err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := Render(tmp, report); err != nil {
		return model.NewPathError(model.ErrWriteFailure, w.path, err)
	}
	if err := tmp.Chmod(reportPerm); err != nil {
		return model.NewPathError(model.ErrWriteFailure, w.path, err)
	}
	if err := tmp.Close(); err != nil {
		return model.NewPathError(model.ErrWriteFailure, w.path, err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return model.NewPathError(model.ErrWriteFailure, w.path, err)
	}
	committed = true

	log.WithField("component", "text").Infof("Wrote %d tags and %d port/protocol rows to %s",
		len(report.TagCounts), len(report.PortProtocolCounts), w.path)
	return nil
}

// Render writes the report text to out. Rows are sorted so output is reproducible.
func Render(out io.Writer, report *model.Report) error {
	bw := bufio.NewWriter(out)

	fmt.Fprintf(bw, "%s\n\n%s\n\n", tagHeader, tagColumns)
	for _, row := range report.SortedTags() {
		fmt.Fprintf(bw, "%s, %d\n", row.Tag, row.Count)
	}
	bw.WriteString("\n\n")

	fmt.Fprintf(bw, "%s\n\n%s\n\n", pairHeader, pairColumns)
	for _, row := range report.SortedPairs() {
		fmt.Fprintf(bw, "%d, %s, %d\n", row.Port, row.Protocol, row.Count)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
