package hooking

import (
	"context"
	"log/slog"
)

// LogHook writes every hook invocation as a structured log record.
type LogHook struct {
	logger *slog.Logger
}

// NewLogHook creates a LogHook. A nil logger means slog.Default().
func NewLogHook(logger *slog.Logger) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogHook{logger: logger}
}

// Func logs the hook context.
func (h *LogHook) Func(ctx HookCtx) {
	if ctx.Pos == nil {
		return
	}

	attrs := make([]slog.Attr, 0, 3)

	if named, ok := ctx.Domain.(Named); ok {
		attrs = append(attrs, slog.String("domain", named.Name()))
	}

	if ctx.Item != nil {
		attrs = append(attrs, slog.Any("item", ctx.Item))
	}

	if ctx.Detail != nil {
		attrs = append(attrs, slog.Any("detail", ctx.Detail))
	}

	h.logger.LogAttrs(context.Background(), ctx.Pos.Level, ctx.Pos.Name,
		attrs...)
}
