package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"broadcastmotion_payments/internal/config"
)

func TestContextHandlerAddsContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := localLogger(&buf)

	ctx := WithAttrs(context.Background(), slog.String("request_id", "req-1"))
	ctx = WithAttrs(ctx, slog.String("payment_id", "p-1"))
	logger.InfoContext(ctx, "payment reconciled")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "payment reconciled", record["msg"])
	assert.Equal(t, "req-1", record["request_id"])
	assert.Equal(t, "p-1", record["payment_id"])
	assert.Equal(t, serviceName, record["service"])
}

func TestGetLoggerWithoutURLLogsLocally(t *testing.T) {
	logger, closeFn := GetLogger(config.Logs{})
	defer closeFn()
	assert.NotNil(t, logger)
}
