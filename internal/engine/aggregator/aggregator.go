package aggregator

import (
	"errors"
	"flowtagger/internal/model"
	"maps"
	"time"
)

// Tagger resolves a port/protocol pair to a tag.
type Tagger interface {
	Lookup(port uint16, proto string) (string, bool)
}

// Aggregator folds classified flow records into tag and port/protocol counts.
// It is not safe for concurrent use; build a fresh one per run.
type Aggregator struct {
	tagger   Tagger
	untagged string

	tagCounts  map[string]uint64
	pairCounts map[model.PortProtocol]uint64
	stats      model.Stats
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithUntaggedLabel overrides the tag given to records with no lookup entry.
func WithUntaggedLabel(label string) Option {
	return func(a *Aggregator) {
		if label != "" {
			a.untagged = label
		}
	}
}

// New creates an empty aggregator that classifies with tagger.
func New(tagger Tagger, opts ...Option) *Aggregator {
	a := &Aggregator{
		tagger:     tagger,
		untagged:   model.Untagged,
		tagCounts:  make(map[string]uint64),
		pairCounts: make(map[model.PortProtocol]uint64),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify returns the tag for rec without recording it. matched is false when
// the lookup table has no entry and the untagged label was used.
func (a *Aggregator) Classify(rec model.FlowRecord) (tag string, matched bool) {
	if tag, ok := a.tagger.Lookup(rec.DstPort, rec.Protocol); ok {
		return tag, true
	}
	return a.untagged, false
}

// Process classifies rec and increments exactly one tag bucket and one pair bucket.
func (a *Aggregator) Process(rec model.FlowRecord) (string, bool) {
	tag, matched := a.Classify(rec)

	a.tagCounts[tag]++
	a.pairCounts[rec.Key()]++

	a.stats.Records++
	if matched {
		a.stats.Tagged++
	} else {
		a.stats.Untagged++
	}
	return tag, matched
}

// Skip records a line that produced no record.
func (a *Aggregator) Skip(err error) {
	if errors.Is(err, model.ErrUnknownProtocol) {
		a.stats.UnknownProtocol++
		return
	}
	a.stats.Malformed++
}

// Stats returns the running totals.
func (a *Aggregator) Stats() model.Stats {
	return a.stats
}

// Snapshot returns a copy of the current counts.
func (a *Aggregator) Snapshot(source string) *model.Report {
	return &model.Report{
		Source:             source,
		GeneratedAt:        time.Now().UTC(),
		TagCounts:          maps.Clone(a.tagCounts),
		PortProtocolCounts: maps.Clone(a.pairCounts),
		Stats:              a.stats,
	}
}
