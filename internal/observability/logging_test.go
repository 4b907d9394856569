package observability_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medkit-core/medkit-go/internal/observability"
)

func TestRedactingHandler(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		shouldRedact bool
	}{
		{"api_key is redacted", "api_key", "secret123", true},
		{"password is redacted", "password", "mysecret", true},
		{"auth_token is redacted", "auth_token", "token123", true},
		{"authorization is redacted", "authorization", "Bearer xyz", true},
		{"private_key is redacted", "private_key", "-----BEGIN", true},
		{"patient_name is redacted", "patient_name", "Jane Roe", true},
		{"device_id not redacted", "device_id", "pump-1", false},
		{"conn_id not redacted", "conn_id", "c0ffee", false},
		{"error not redacted", "error", "something failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(observability.NewRedactingHandler(&buf, nil))

			logger.Info("test", tt.key, tt.value)
			output := buf.String()

			if tt.shouldRedact {
				assert.Contains(t, output, "[REDACTED]")
				assert.NotContains(t, output, tt.value)
			} else {
				assert.Contains(t, output, tt.value)
				assert.NotContains(t, output, "[REDACTED]")
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json with service context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{
			Level:       "info",
			Format:      "json",
			ServiceName: "medkit-proxy",
			Environment: "test",
			Output:      &buf,
		})

		logger.Info("hello", "password", "hunter2")

		out := buf.String()
		assert.Contains(t, out, `"service":"medkit-proxy"`)
		assert.Contains(t, out, `"environment":"test"`)
		assert.NotContains(t, out, "hunter2")
		assert.Same(t, logger, slog.Default())
	})

	t.Run("respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := observability.InitLogger(observability.LogConfig{
			Level:  "error",
			Format: "text",
			Output: &buf,
		})

		logger.Info("dropped")
		logger.Error("kept")

		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "kept")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, observability.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, observability.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, observability.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, observability.ParseLevel("bogus"))
}
