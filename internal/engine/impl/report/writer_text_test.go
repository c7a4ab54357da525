package report

import (
	"bytes"
	"context"
	"errors"
	"flowtagger/internal/model"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioReport() *model.Report {
	return &model.Report{
		Source: "flows.log",
		TagCounts: map[string]uint64{
			"sv_P1":        1,
			"sv_P2":        1,
			model.Untagged: 1,
		},
		PortProtocolCounts: map[model.PortProtocol]uint64{
			{Port: 25, Protocol: "tcp"}: 1,
			{Port: 68, Protocol: "udp"}: 1,
			{Port: 80, Protocol: "tcp"}: 1,
		},
		Stats: model.Stats{Records: 3, Tagged: 2, Untagged: 1},
	}
}

const scenarioText = `Count of Matches for Each Tag

Tag, Count

sv_P1, 1
sv_P2, 1
untagged, 1


Count of Matches for Each Port/Protocol Combination

Port, Protocol, Count

25, tcp, 1
68, udp, 1
80, tcp, 1
`

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, scenarioReport()))
	assert.Equal(t, scenarioText, buf.String())
}

func TestRender_TagRoundTrip(t *testing.T) {
	report := scenarioReport()
	report.TagCounts["email"] = 42

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, report))

	section := strings.SplitN(buf.String(), "\n\n\n", 2)[0]
	tagLines := strings.Split(section, "\n")[4:]
	assert.Len(t, tagLines, len(report.TagCounts))
	assert.Contains(t, tagLines, "email, 42")
	assert.Contains(t, tagLines, "untagged, 1")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, &model.Report{}))
	assert.Equal(t, "Count of Matches for Each Tag\n\nTag, Count\n\n\n\n"+
		"Count of Matches for Each Port/Protocol Combination\n\nPort, Protocol, Count\n\n", buf.String())
}

func TestTextWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	w := NewTextWriter(path)
	require.NoError(t, w.Write(context.Background(), scenarioReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, scenarioText, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestTextWriter_WriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "output.txt")

	err := NewTextWriter(path).Write(context.Background(), scenarioReport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrWriteFailure))
	assert.Contains(t, err.Error(), path)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTextWriter_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTextWriter(path).Write(ctx, scenarioReport())
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
