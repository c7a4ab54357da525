package observability

import (
	"errors"
	"flowtagger/internal/config"
	"flowtagger/internal/model"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	log "github.com/sirupsen/logrus"
)

// Recorder receives per-run observations from the pipeline.
type Recorder interface {
	RecordProcessed(tagged bool)
	RecordSkipped(err error)
	SetLookupEntries(n int)
	ObserveRun(d time.Duration, err error)
	// Export flushes the collected metrics to their configured destinations.
	Export() error
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordProcessed(bool)            {}
func (Nop) RecordSkipped(error)             {}
func (Nop) SetLookupEntries(int)            {}
func (Nop) ObserveRun(time.Duration, error) {}
func (Nop) Export() error                   { return nil }

// PromMetrics collects run metrics in a private registry and exports them to a
// node-exporter textfile and/or a Pushgateway.
type PromMetrics struct {
	registry *prometheus.Registry

	records       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	lookupEntries prometheus.Gauge
	duration      prometheus.Gauge
	lastSuccess   prometheus.Gauge
	lastFailure   prometheus.Gauge

	textfilePath   string
	pushgatewayURL string
	job            string
}

// NewPromMetrics creates and registers the run metrics.
func NewPromMetrics(cfg config.MetricsConfig) *PromMetrics {
	m := &PromMetrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtagger_records_total",
			Help: "Flow records classified, by result.",
		}, []string{"result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowtagger_skipped_lines_total",
			Help: "Flow log lines that produced no record, by reason.",
		}, []string{"reason"}),
		lookupEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowtagger_lookup_entries",
			Help: "Distinct port/protocol keys in the lookup table.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowtagger_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowtagger_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
		lastFailure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowtagger_last_failure_timestamp_seconds",
			Help: "Unix time of the last failed run.",
		}),
		textfilePath:   cfg.TextfilePath,
		pushgatewayURL: cfg.PushgatewayURL,
		job:            cfg.Job,
	}
	if m.job == "" {
		m.job = "flowtagger"
	}

	m.registry.MustRegister(m.records, m.skipped, m.lookupEntries, m.duration, m.lastSuccess, m.lastFailure)
	return m
}

// New returns a PromMetrics when metrics are enabled and Nop otherwise.
func New(cfg config.MetricsConfig) Recorder {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewPromMetrics(cfg)
}

// Registry exposes the underlying registry.
func (m *PromMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PromMetrics) RecordProcessed(tagged bool) {
	if tagged {
		m.records.WithLabelValues("tagged").Inc()
	} else {
		m.records.WithLabelValues("untagged").Inc()
	}
}

func (m *PromMetrics) RecordSkipped(err error) {
	if errors.Is(err, model.ErrUnknownProtocol) {
		m.skipped.WithLabelValues("unknown_protocol").Inc()
		return
	}
	m.skipped.WithLabelValues("malformed").Inc()
}

func (m *PromMetrics) SetLookupEntries(n int) {
	m.lookupEntries.Set(float64(n))
}

func (m *PromMetrics) ObserveRun(d time.Duration, err error) {
	m.duration.Set(d.Seconds())
	if err != nil {
		m.lastFailure.SetToCurrentTime()
		return
	}
	m.lastSuccess.SetToCurrentTime()
}

func (m *PromMetrics) Export() error {
	var errs []error
	if m.textfilePath != "" {
		if err := prometheus.WriteToTextfile(m.textfilePath, m.registry); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics textfile: %w", err))
		} else {
			log.WithField("component", "metrics").Debugf("Wrote metrics to %s", m.textfilePath)
		}
	}
	if m.pushgatewayURL != "" {
		if err := push.New(m.pushgatewayURL, m.job).Gatherer(m.registry).Push(); err != nil {
			errs = append(errs, fmt.Errorf("failed to push metrics: %w", err))
		} else {
			log.WithField("component", "metrics").Debugf("Pushed metrics to %s", m.pushgatewayURL)
		}
	}
	return errors.Join(errs...)
}
