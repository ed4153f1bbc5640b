package log_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kari1998/loan-default-prediction/pkg/log"
)

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.LevelDebug},
		{"INFO", log.LevelInfo},
		{"warning", log.LevelWarn},
		{"error", log.LevelError},
		{"nonsense", log.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, log.ToLogLevel(tt.in), tt.in)
	}
}

func TestGetLoggerWithName(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, log.LevelDebug)
	defer log.SetupLogger("info")

	logger := log.GetLoggerWithName("forest").With(log.ModelNameKey, "RandomForest")
	logger.Info("training finished", log.SamplesKey, 42, "err", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "training finished")
	assert.Contains(t, out, "forest")
	assert.Contains(t, out, "RandomForest")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "boom")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, log.LevelWarn)
	defer log.SetupLogger("info")

	logger := log.GetLoggerWithName("stage")
	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf, log.LevelInfo)
	defer log.SetupLogger("info")

	log.LogError(nil, "ignored")
	log.LogError(errors.New("disk full"), "write failed")

	assert.NotContains(t, buf.String(), "ignored")
	assert.Contains(t, buf.String(), "disk full")
}
