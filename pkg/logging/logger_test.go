package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogger_IncludesBaseAndContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, ServiceName: "texflow", Environment: "test", Version: "1", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUser(ctx, "plan")
	logger.WithContext(ctx).WithError(errors.New("boom")).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "texflow", entry["service"])
	assert.Equal(t, "req-1", entry["requestId"])
	assert.Equal(t, "plan", entry["user"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_DebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo, ServiceName: "texflow", Output: &buf})
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())
}
