package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		env, level string
		want       slog.Level
	}{
		{"prod", "", slog.LevelInfo},
		{"dev", "", slog.LevelDebug},
		{"dev", "warn", slog.LevelWarn},
		{"prod", "ERROR", slog.LevelError},
		{"prod", "debug", slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			log := newWithWriter(&bytes.Buffer{}, tt.env, tt.level)
			assert.True(t, log.Enabled(context.Background(), tt.want))
			assert.False(t, log.Enabled(context.Background(), tt.want-1))
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, "prod", "").Info("extract loaded", "rows", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "extract loaded", line["msg"])
	assert.Equal(t, float64(3), line["rows"])
}
