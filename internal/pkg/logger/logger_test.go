package logger

import (
	"flowtagger/internal/config"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flowtagger.log")

	l, err := New(config.LogConfig{Level: "warn", Format: "json", Output: "file", FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.WithField("component", "test").Warn("skipped line")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"skipped line"`)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	l, err := New(config.LogConfig{Level: "chatty", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(config.LogConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Output: "file"})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Output: "syslog"})
	assert.Error(t, err)
}
