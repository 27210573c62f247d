package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn"}, &buf)

	l.Info("hidden")
	l.Warn("shown")

	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	l := New(Options{Level: "chatty"}, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNewJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", JSON: true}, &buf)

	l.WithField("booking_id", 42).Info("sweep")

	assert.Contains(t, buf.String(), `"booking_id":42`)
	assert.Contains(t, buf.String(), `"msg":"sweep"`)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parking.log")
	var buf bytes.Buffer
	l := New(Options{Level: "info", File: path}, &buf)

	l.Info("to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}
