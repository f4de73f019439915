package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ssogate/pkg/contextkeys"
	"github.com/platinummonkey/ssogate/pkg/hierarchy"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Info("server started")

	entry := logLine(t, &buf)
	assert.Equal(t, "server started", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithFields(map[string]interface{}{
		"group_id":    int64(7),
		"provider_id": int64(1),
	}).Info("access restricted")

	entry := logLine(t, &buf)
	assert.Equal(t, float64(7), entry["group_id"])
	assert.Equal(t, float64(1), entry["provider_id"])
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("connection refused")).Error("redis unavailable")

	entry := logLine(t, &buf)
	assert.Equal(t, "connection refused", entry["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("noise")
	logger.Info("more noise")
	assert.Empty(t, buf.String())

	logger.Warn("signal")
	assert.NotEmpty(t, buf.String())
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := contextkeys.WithRequestID(context.Background(), "req-123")
	ctx = contextkeys.WithUser(ctx, &hierarchy.User{ID: 100, Username: "jdoe"})

	logger.FromContext(ctx).Info("decision made")

	entry := logLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, float64(100), entry["user_id"])
}
