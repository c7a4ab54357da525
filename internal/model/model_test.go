package model

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_SortedRows(t *testing.T) {
	report := &Report{
		TagCounts: map[string]uint64{"sv_P2": 1, Untagged: 3, "email": 2},
		PortProtocolCounts: map[PortProtocol]uint64{
			{Port: 443, Protocol: "tcp"}: 1,
			{Port: 25, Protocol: "udp"}:  2,
			{Port: 25, Protocol: "tcp"}:  4,
		},
	}

	assert.Equal(t, []TagCount{
		{Tag: "email", Count: 2},
		{Tag: "sv_P2", Count: 1},
		{Tag: "untagged", Count: 3},
	}, report.SortedTags())

	assert.Equal(t, []PairCount{
		{Port: 25, Protocol: "tcp", Count: 4},
		{Port: 25, Protocol: "udp", Count: 2},
		{Port: 443, Protocol: "tcp", Count: 1},
	}, report.SortedPairs())
}

func TestErrorKinds(t *testing.T) {
	notFound := NewPathError(ErrNotFound, "/tmp/missing.csv", fs.ErrNotExist)
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.True(t, errors.Is(notFound, fs.ErrNotExist))
	assert.False(t, errors.Is(notFound, ErrWriteFailure))
	assert.Contains(t, notFound.Error(), "/tmp/missing.csv")

	var pathErr *PathError
	require.True(t, errors.As(notFound, &pathErr))
	assert.Equal(t, "/tmp/missing.csv", pathErr.Path)

	unknown := &RecordError{Source: "flows.log", Line: 7, Text: "x", Err: ErrUnknownProtocol}
	assert.True(t, errors.Is(unknown, ErrUnknownProtocol))
	assert.True(t, errors.Is(unknown, ErrMalformedRecord))
	assert.Contains(t, unknown.Error(), "flows.log:7")
}

func TestStats_Skipped(t *testing.T) {
	s := Stats{Malformed: 2, UnknownProtocol: 3}
	assert.Equal(t, uint64(5), s.Skipped())
}
