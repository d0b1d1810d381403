package util

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, false},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		lvl, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, lvl, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	ctx := context.Background()

	dev := NewLogger("development", "")
	assert.True(t, dev.Enabled(ctx, slog.LevelDebug))

	prod := NewLogger("production", "")
	assert.False(t, prod.Enabled(ctx, slog.LevelDebug))
	assert.True(t, prod.Enabled(ctx, slog.LevelInfo))

	quiet := NewLogger("development", "error")
	assert.False(t, quiet.Enabled(ctx, slog.LevelWarn))
}
