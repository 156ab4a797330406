package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFormatter(t *testing.T) {
	logger, err := New(Options{SystemName: "testmanager-api", Level: "warn"})
	require.NoError(t, err)
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	logger.Info("hidden")
	logger.WithField("path", "a/b").WithField("code", 3).Warn("blob delete failed")

	line := buf.String()
	assert.Contains(t, line, "Event Source: testmanager-api")
	assert.Contains(t, line, "Event Type: WARNING")
	assert.Contains(t, line, "Message: blob delete failed, code: 3, path: a/b")
	assert.NotContains(t, line, "hidden")
}

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "api.log")
	logger, err := New(Options{Level: "bogus", Format: "json", File: file})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.Info("started")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
}
