package log

import (
	"context"
	"io"
	"log/slog"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler {
	return discardHandler{}
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return colorRed
	case l >= slog.LevelWarn:
		return colorYellow
	case l >= slog.LevelInfo:
		return colorGreen
	case l >= slog.LevelDebug:
		return colorCyan
	default:
		return colorGray
	}
}

// NewTerminalHandlerWithLevel returns a text handler that prints records at
// or above lvl, naming the custom TRACE and CRIT levels.
func NewTerminalHandlerWithLevel(w io.Writer, lvl slog.Level, useColor bool) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().Format("01-02|15:04:05.000"))
			case slog.LevelKey:
				l, _ := a.Value.Any().(slog.Level)
				name := LevelAlignedString(l)
				if useColor {
					name = levelColor(l) + name + colorReset
				}
				return slog.String(slog.LevelKey, name)
			}
			return a
		},
	})
}

// NewJSONHandlerWithLevel returns a JSON handler for machine consumption.
func NewJSONHandlerWithLevel(w io.Writer, lvl slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}
