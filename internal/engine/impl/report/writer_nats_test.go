package report

import (
	"context"
	"encoding/json"
	"errors"
	"flowtagger/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subject  string
	data     []byte
	flushed  bool
	drained  bool
	flushErr error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subject, f.data = subj, data
	return nil
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error {
	f.flushed = true
	return f.flushErr
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublisher_Write(t *testing.T) {
	nc := &fakeConn{}
	p := NewPublisher(nc, "flows.report")

	require.NoError(t, p.Write(context.Background(), scenarioReport()))
	assert.Equal(t, "flows.report", nc.subject)
	assert.True(t, nc.flushed)

	var msg Message
	require.NoError(t, json.Unmarshal(nc.data, &msg))
	assert.Equal(t, "flows.log", msg.Source)
	assert.Equal(t, uint64(3), msg.Stats.Records)
	assert.Equal(t, []model.TagCount{
		{Tag: "sv_P1", Count: 1},
		{Tag: "sv_P2", Count: 1},
		{Tag: "untagged", Count: 1},
	}, msg.Tags)
	require.Len(t, msg.PortProtocols, 3)
	assert.Equal(t, model.PairCount{Port: 80, Protocol: "tcp", Count: 1}, msg.PortProtocols[2])

	require.NoError(t, p.Close())
	assert.True(t, nc.drained)
}

func TestPublisher_FlushFailure(t *testing.T) {
	p := NewPublisher(&fakeConn{flushErr: errors.New("timeout")}, "flows.report")

	err := p.Write(context.Background(), scenarioReport())
	assert.True(t, errors.Is(err, model.ErrWriteFailure))
}
