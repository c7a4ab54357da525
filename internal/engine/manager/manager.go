package manager

import (
	"context"
	"errors"
	"flowtagger/internal/config"
	"flowtagger/internal/engine/aggregator"
	_ "flowtagger/internal/engine/impl/report" // Registers report writers
	"flowtagger/internal/factory"
	"flowtagger/internal/lookup"
	"flowtagger/internal/model"
	"flowtagger/internal/observability"
	"flowtagger/pkg/flowlog"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

// cancelCheckInterval is how many lines are read between context checks.
const cancelCheckInterval = 4096

// Manager runs the load → parse → write pipeline once per Run call.
type Manager struct {
	cfg     *config.Config
	writers []model.Writer
	metrics observability.Recorder
	logger  *log.Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithWriters replaces the writers built from the configuration.
func WithWriters(writers ...model.Writer) Option {
	return func(m *Manager) {
		m.writers = writers
	}
}

// WithMetrics sets the metrics recorder. The default comes from cfg.Metrics.
func WithMetrics(r observability.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// NewManager creates a new Manager.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := &Manager{
		cfg:    cfg,
		logger: log.WithField("component", "manager"),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.writers == nil {
		writers, err := factory.Create(cfg)
		if err != nil {
			return nil, err
		}
		m.writers = writers
	}
	if m.metrics == nil {
		m.metrics = observability.New(cfg.Metrics)
	}
	return m, nil
}

// Run executes the three phases in order and returns the report that was written.
// No writer is invoked if loading or parsing fails.
func (m *Manager) Run(ctx context.Context) (report *model.Report, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		m.metrics.ObserveRun(elapsed, err)
		if exportErr := m.metrics.Export(); exportErr != nil {
			m.logger.WithError(exportErr).Warn("Failed to export metrics")
		}
		if err == nil {
			m.logger.Infof("Run completed in %s", elapsed.Round(time.Millisecond))
		}
	}()

	table, err := m.loadLookup()
	if err != nil {
		return nil, err
	}

	report, err = m.parse(ctx, table)
	if err != nil {
		return nil, err
	}

	if err := m.write(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

func (m *Manager) loadLookup() (*lookup.Table, error) {
	path := m.cfg.Paths.Lookup
	table, err := lookup.Load(path)
	if err != nil {
		return nil, err
	}
	m.metrics.SetLookupEntries(table.Len())
	m.logger.Infof("Loaded %d lookup entries from '%s'", table.Len(), path)
	return table, nil
}

func (m *Manager) parse(ctx context.Context, table *lookup.Table) (*model.Report, error) {
	path := m.cfg.Paths.Input
	reader, err := flowlog.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	m.logger.Infof("Reading flow records from '%s'...", path)

	agg := aggregator.New(table, aggregator.WithUntaggedLabel(m.cfg.Parser.UntaggedLabel))
	lines := 0
	for rec, err := range reader.Records() {
		lines++
		if lines%cancelCheckInterval == 0 {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}

		if err != nil {
			var recErr *model.RecordError
			if !errors.As(err, &recErr) || m.cfg.Parser.Strict {
				return nil, err
			}
			agg.Skip(err)
			m.metrics.RecordSkipped(err)
			if m.cfg.Parser.LogSkipped {
				m.logger.WithField("line", recErr.Line).Warnf("Skipping line: %v", recErr.Err)
			}
			continue
		}

		_, matched := agg.Process(rec)
		m.metrics.RecordProcessed(matched)
	}

	report := agg.Snapshot(path)
	stats := report.Stats
	m.logger.WithFields(log.Fields{
		"records":          stats.Records,
		"tagged":           stats.Tagged,
		"untagged":         stats.Untagged,
		"malformed":        stats.Malformed,
		"unknown_protocol": stats.UnknownProtocol,
	}).Info("Finished reading flow log")
	return report, nil
}

func (m *Manager) write(ctx context.Context, report *model.Report) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(ctx, report); err != nil {
			m.logger.WithError(err).Errorf("Writer '%s' failed", w.Name())
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases writers that hold connections.
func (m *Manager) Close() error {
	var errs []error
	for _, w := range m.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing writer '%s': %w", w.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
