package report

import (
	"context"
	"database/sql"
	"flowtagger/internal/config"
	"flowtagger/internal/factory"
	"flowtagger/internal/model"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	log "github.com/sirupsen/logrus"
)

const (
	createTagTable = `
CREATE TABLE IF NOT EXISTS flow_tag_counts (
    Timestamp DateTime,
    Source    String,
    Tag       String,
    Count     UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Tag, Timestamp);
`
	createPairTable = `
CREATE TABLE IF NOT EXISTS flow_port_protocol_counts (
    Timestamp DateTime,
    Source    String,
    Port      UInt16,
    Protocol  LowCardinality(String),
    Count     UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Port, Protocol, Timestamp);
`
	insertTagRow  = "INSERT INTO flow_tag_counts (Timestamp, Source, Tag, Count)"
	insertPairRow = "INSERT INTO flow_port_protocol_counts (Timestamp, Source, Port, Protocol, Count)"

	connectTimeout = 10 * time.Second
)

func init() {
	factory.RegisterWriter("clickhouse", func(cfg *config.Config, def config.WriterDef) (model.Writer, error) {
		db, err := connect(def.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		w := NewClickHouseWriter(db)
		if err := w.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.WithField("component", "clickhouse").Info("Connected to ClickHouse and ensured tables exist.")
		return w, nil
	})
}

// ClickHouseWriter stores both count tables in ClickHouse, one row per bucket.
type ClickHouseWriter struct {
	db *sql.DB
}

// NewClickHouseWriter wraps an open database handle.
func NewClickHouseWriter(db *sql.DB) *ClickHouseWriter {
	return &ClickHouseWriter{db: db}
}

func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

// Close releases the connection pool.
func (w *ClickHouseWriter) Close() error {
	return w.db.Close()
}

func connect(cfg config.ClickHouseConfig) (*sql.DB, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: connectTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the count tables if they do not exist.
func (w *ClickHouseWriter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createTagTable, createPairTable} {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Write inserts the tag and port/protocol rows in a single batch.
func (w *ClickHouseWriter) Write(ctx context.Context, report *model.Report) error {
	tags := report.SortedTags()
	pairs := report.SortedPairs()
	if len(tags) == 0 && len(pairs) == 0 {
		return nil
	}

	ts := report.GeneratedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	tagStmt, err := tx.PrepareContext(ctx, insertTagRow)
	if err != nil {
		return fmt.Errorf("failed to prepare tag batch: %w", err)
	}
	defer tagStmt.Close()
	for _, row := range tags {
		if _, err := tagStmt.ExecContext(ctx, ts, report.Source, row.Tag, row.Count); err != nil {
			return fmt.Errorf("failed to append tag row to batch: %w", err)
		}
	}

	pairStmt, err := tx.PrepareContext(ctx, insertPairRow)
	if err != nil {
		return fmt.Errorf("failed to prepare port/protocol batch: %w", err)
	}
	defer pairStmt.Close()
	for _, row := range pairs {
		if _, err := pairStmt.ExecContext(ctx, ts, report.Source, row.Port, row.Protocol, row.Count); err != nil {
			return fmt.Errorf("failed to append port/protocol row to batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.WithField("component", "clickhouse").Infof("Wrote %d tag rows and %d port/protocol rows to ClickHouse", len(tags), len(pairs))
	return nil
}
