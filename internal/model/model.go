package model

import (
	"sort"
	"time"
)

// Untagged is the tag assigned to records that match no lookup entry.
const Untagged = "untagged"

// PortProtocol identifies a destination port and lowercase protocol name.
// It keys both the lookup table and the per-pair counts.
type PortProtocol struct {
	Port     uint16
	Protocol string
}

// FlowRecord holds the fields of a flow log line that take part in classification.
type FlowRecord struct {
	Line           int
	DstPort        uint16
	ProtocolNumber uint8
	Protocol       string
}

// Key returns the lookup key of the record.
func (r FlowRecord) Key() PortProtocol {
	return PortProtocol{Port: r.DstPort, Protocol: r.Protocol}
}

// Stats summarises a single parse pass.
type Stats struct {
	Records         uint64 `json:"records"`
	Tagged          uint64 `json:"tagged"`
	Untagged        uint64 `json:"untagged"`
	Malformed       uint64 `json:"malformed"`
	UnknownProtocol uint64 `json:"unknown_protocol"`
}

// Skipped returns the number of lines that did not produce a record.
func (s Stats) Skipped() uint64 {
	return s.Malformed + s.UnknownProtocol
}

// Report is the read-only result of a run, handed to every writer.
type Report struct {
	Source             string
	GeneratedAt        time.Time
	TagCounts          map[string]uint64
	PortProtocolCounts map[PortProtocol]uint64
	Stats              Stats
}

// TagCount is a single row of the tag section.
type TagCount struct {
	Tag   string `json:"tag"`
	Count uint64 `json:"count"`
}

// PairCount is a single row of the port/protocol section.
type PairCount struct {
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol"`
	Count    uint64 `json:"count"`
}

// SortedTags returns the tag counts ordered by tag.
func (r *Report) SortedTags() []TagCount {
	rows := make([]TagCount, 0, len(r.TagCounts))
	for tag, count := range r.TagCounts {
		rows = append(rows, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Tag < rows[j].Tag })
	return rows
}

// SortedPairs returns the port/protocol counts ordered by port, then protocol.
func (r *Report) SortedPairs() []PairCount {
	rows := make([]PairCount, 0, len(r.PortProtocolCounts))
	for key, count := range r.PortProtocolCounts {
		rows = append(rows, PairCount{Port: key.Port, Protocol: key.Protocol, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Port != rows[j].Port {
			return rows[i].Port < rows[j].Port
		}
		return rows[i].Protocol < rows[j].Protocol
	})
	return rows
}
