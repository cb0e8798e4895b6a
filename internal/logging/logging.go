// Package logging constructs the slog loggers used by Hubro.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmittmann/tint"
)

// LevelTrace is more verbose than debug. The resolver logs every
// discovered file at this level.
const LevelTrace = slog.Level(-8)

// LevelFatal marks errors that abort the process.
const LevelFatal = slog.Level(12)

// Options configures New.
type Options struct {
	// Name is attached to every record as the "name" attribute.
	Name string

	// Level is one of trace, debug, info, warn, error, fatal.
	Level string

	// Development selects the colored tint handler instead of JSON.
	Development bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger. Development mode logs human readable colored lines,
// production logs JSON.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(opts.Level))

	var handler slog.Handler
	if opts.Development {
		handler = tint.NewHandler(out, &tint.Options{
			AddSource:  true,
			Level:      lvl,
			TimeFormat: "2006-01-02 15:04:05.000",
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey && len(groups) == 0 {
					if l, ok := a.Value.Any().(slog.Level); ok {
						switch l {
						case LevelTrace:
							return tint.Attr(8, slog.String(a.Key, "TRC"))
						case LevelFatal:
							return tint.Attr(9, slog.String(a.Key, "FTL"))
						}
					}
				}
				return truncSource(groups, a)
			},
		})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: true,
			Level:     lvl,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey && len(groups) == 0 {
					if l, ok := a.Value.Any().(slog.Level); ok {
						a.Value = slog.StringValue(LevelName(l))
					}
				}
				return truncSource(groups, a)
			},
		})
	}

	if opts.Name != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("name", opts.Name)})
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name onto a slog level. Unknown names
// yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

// LevelName is the inverse of ParseLevel, upper cased.
func LevelName(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelFatal:
		return "FATAL"
	default:
		return l.String()
	}
}

// Trace logs at LevelTrace.
func Trace(ctx context.Context, log *slog.Logger, msg string, args ...any) {
	log.Log(ctx, LevelTrace, msg, args...)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(100)}))
}

// truncSource shortens source file paths to their last directory and file.
func truncSource(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey || len(groups) > 0 {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return a
	}
	dir, file := filepath.Split(src.File)
	src.File = filepath.Join(filepath.Base(dir), file)
	return a
}
