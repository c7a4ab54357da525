package report

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"flowtagger/internal/config"
	"flowtagger/internal/factory"
	"flowtagger/internal/model"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	snapshotTimeFormat = "2006-01-02_15-04-05.000"

	// maxSnapshotSuffix bounds the search for a free directory name.
	maxSnapshotSuffix = 1000
)

func init() {
	factory.RegisterWriter("snapshot", func(cfg *config.Config, def config.WriterDef) (model.Writer, error) {
		if def.Snapshot.RootPath == "" {
			return nil, fmt.Errorf("snapshot.root_path must be set")
		}
		return NewGobWriter(def.Snapshot.RootPath), nil
	})
}

// SummaryData holds the metadata for a snapshot, written next to the gob file.
type SummaryData struct {
	Source          string `json:"source"`
	Tags            int    `json:"tags"`
	PortProtocols   int    `json:"port_protocols"`
	Records         uint64 `json:"records"`
	Untagged        uint64 `json:"untagged"`
	Malformed       uint64 `json:"malformed"`
	UnknownProtocol uint64 `json:"unknown_protocol"`
	Timestamp       string `json:"timestamp"`
}

// GobWriter stores the raw report under a timestamped directory so runs can be compared later.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new snapshot writer rooted at rootPath.
func NewGobWriter(rootPath string) *GobWriter {
	return &GobWriter{rootPath: rootPath}
}

func (w *GobWriter) Name() string {
	return "snapshot:" + w.rootPath
}

// Write encodes the report to <root>/<timestamp>/report.gob and writes summary.json beside it.
func (w *GobWriter) Write(ctx context.Context, report *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}
	snapshotDir, err := w.createSnapshotDir(generated.Format(snapshotTimeFormat))
	if err != nil {
		return err
	}

	gobPath := filepath.Join(snapshotDir, "report.gob")
	if err := writeGob(gobPath, report); err != nil {
		return model.NewPathError(model.ErrWriteFailure, gobPath, err)
	}

	summary := SummaryData{
		Source:          report.Source,
		Tags:            len(report.TagCounts),
		PortProtocols:   len(report.PortProtocolCounts),
		Records:         report.Stats.Records,
		Untagged:        report.Stats.Untagged,
		Malformed:       report.Stats.Malformed,
		UnknownProtocol: report.Stats.UnknownProtocol,
		Timestamp:       generated.Format(time.RFC3339),
	}
	summaryPath := filepath.Join(snapshotDir, "summary.json")
	if err := writeSummary(summaryPath, summary); err != nil {
		return model.NewPathError(model.ErrWriteFailure, summaryPath, err)
	}

	log.WithField("component", "snapshot").Infof("Wrote snapshot of %d records to %s", report.Stats.Records, snapshotDir)
	return nil
}

// createSnapshotDir creates <root>/<base>, or <root>/<base>-N when an earlier run
// already used that name.
func (w *GobWriter) createSnapshotDir(base string) (string, error) {
	if err := os.MkdirAll(w.rootPath, 0755); err != nil {
		return "", model.NewPathError(model.ErrWriteFailure, w.rootPath, err)
	}
	for i := 0; i < maxSnapshotSuffix; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		dir := filepath.Join(w.rootPath, name)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", model.NewPathError(model.ErrWriteFailure, dir, err)
		}
	}
	return "", model.NewPathError(model.ErrWriteFailure, filepath.Join(w.rootPath, base),
		fmt.Errorf("no free snapshot directory after %d attempts", maxSnapshotSuffix))
}

func writeGob(path string, report *model.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(report); err != nil {
		return fmt.Errorf("failed to encode report to gob: %w", err)
	}
	return file.Close()
}

func writeSummary(path string, summary SummaryData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return file.Close()
}

// ReadSnapshot decodes a report previously written by GobWriter.
func ReadSnapshot(path string) (*model.Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var report model.Report
	if err := gob.NewDecoder(file).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot '%s': %w", path, err)
	}
	return &report, nil
}
