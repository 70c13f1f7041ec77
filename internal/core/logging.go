// AngelaMos | 2026
// logging.go

package core

import (
	"io"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/fortune-api/internal/config"
)

// NewLogger builds the process logger. Unknown levels fall back to info;
// any format other than "json" writes logfmt-style text.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
