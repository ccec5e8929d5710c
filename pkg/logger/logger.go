package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

var def *slog.Logger

// Init настраивает глобальный slog. Повторный вызов переинициализирует
// логгер (удобно в тестах).
func Init(cfg Config) {
	cfg.resolve()

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	base := slog.New(h.WithAttrs(baseAttrs(cfg)))
	slog.SetDefault(base)
	def = base
}

func L() *slog.Logger {
	if def == nil {
		Init(Config{})
	}
	return def
}

func newInstanceID() string {
	hn, _ := os.Hostname()
	return hn + "-" + uuid.New().String()[:8]
}

func baseAttrs(cfg Config) []slog.Attr {
	return []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("version", cfg.Version),
		slog.String("instance_id", cfg.InstanceID),
		slog.Time("started_at", time.Now()),
	}
}
