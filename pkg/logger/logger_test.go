package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(WARN)
	log.SetOutput(&buf)

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestPlainVariantReportsCallSite(t *testing.T) {
	var buf bytes.Buffer
	log := New(INFO)
	log.SetOutput(&buf)

	log.Info("payment verified: %s", "p-1")

	out := buf.String()
	require.Contains(t, out, "payment verified: p-1")
	assert.Contains(t, out, "logger_test.go")
}

func TestStructuredVariantReportsCallSite(t *testing.T) {
	var buf bytes.Buffer
	log := New(INFO)
	log.SetOutput(&buf)

	log.Infow("payment verified", "paymentID", "p-1", "amount", 449)

	out := buf.String()
	require.Contains(t, out, "payment verified paymentID=p-1 amount=449")
	assert.Contains(t, out, "logger_test.go")
	assert.NotContains(t, out, "logger.go:")
}

func TestStructuredVariantMarksMissingValue(t *testing.T) {
	var buf bytes.Buffer
	log := New(INFO)
	log.SetOutput(&buf)

	log.Infow("odd pairs", "paymentID")

	assert.Contains(t, buf.String(), "paymentID=MISSING")
}
