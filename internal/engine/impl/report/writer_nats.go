package report

import (
	"context"
	"encoding/json"
	"flowtagger/internal/config"
	"flowtagger/internal/factory"
	"flowtagger/internal/model"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("nats", func(cfg *config.Config, def config.WriterDef) (model.Writer, error) {
		if def.NATS.Subject == "" {
			return nil, fmt.Errorf("nats.subject must be set")
		}
		url := def.NATS.URL
		if url == "" {
			url = nats.DefaultURL
		}
		nc, err := nats.Connect(url, nats.Name("flowtagger"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
		}
		log.WithField("component", "nats").Infof("Connected to NATS server at %s", url)
		return NewPublisher(nc, def.NATS.Subject), nil
	})
}

// Message is the JSON document published for each report.
type Message struct {
	Source        string            `json:"source"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Stats         model.Stats       `json:"stats"`
	Tags          []model.TagCount  `json:"tags"`
	PortProtocols []model.PairCount `json:"port_protocols"`
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher publishes finished reports to a NATS subject.
type Publisher struct {
	nc      conn
	subject string
}

// NewPublisher creates a new NATS report publisher.
func NewPublisher(nc conn, subject string) *Publisher {
	return &Publisher{nc: nc, subject: subject}
}

func (p *Publisher) Name() string {
	return "nats:" + p.subject
}

// NewMessage builds the published document for report.
func NewMessage(report *model.Report) Message {
	return Message{
		Source:        report.Source,
		GeneratedAt:   report.GeneratedAt,
		Stats:         report.Stats,
		Tags:          report.SortedTags(),
		PortProtocols: report.SortedPairs(),
	}
}

// Write serializes the report to JSON, publishes it and waits for the server to acknowledge the flush.
func (p *Publisher) Write(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(NewMessage(report))
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return model.NewPathError(model.ErrWriteFailure, p.subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return model.NewPathError(model.ErrWriteFailure, p.subject, err)
	}

	log.WithField("component", "nats").Infof("Published report (%d bytes) to '%s'", len(data), p.subject)
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
