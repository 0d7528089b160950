// Package logging builds the process *slog.Logger on top of zerolog.
//
// Components only ever see *slog.Logger. Handler translates slog records
// into zerolog events so output is zerolog's JSON (or its console writer
// during local development).
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a logger writing to stdout at level in format.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	zl := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	return slog.New(NewHandler(zl))
}

// ParseLevel maps debug|info|warn|error to a zerolog level. Anything else
// is info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Handler is a slog.Handler that writes through a zerolog.Logger.
type Handler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	prefix string // dotted group path applied to keys
}

//nolint:gocritic // zerolog.Logger is meant to be passed by value
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return toZerolog(level) >= h.logger.GetLevel()
}

//nolint:gocritic // slog.Record is passed by value per slog.Handler
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	event := h.logger.WithLevel(toZerolog(r.Level))
	if event == nil {
		return nil
	}
	for _, a := range h.attrs {
		event = addAttr(event, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		event = addAttr(event, h.prefix, a)
		return true
	})
	event.Msg(r.Message)
	return nil
}

// WithAttrs binds attrs under the groups opened so far.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(bound, h.attrs)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		bound = append(bound, a)
	}
	return &Handler{logger: h.logger, attrs: bound, prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{logger: h.logger, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func addAttr(event *zerolog.Event, prefix string, a slog.Attr) *zerolog.Event {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return event
	}
	key := prefix + a.Key

	switch a.Value.Kind() {
	case slog.KindString:
		return event.Str(key, a.Value.String())
	case slog.KindInt64:
		return event.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return event.Uint64(key, a.Value.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, a.Value.Float64())
	case slog.KindBool:
		return event.Bool(key, a.Value.Bool())
	case slog.KindDuration:
		return event.Dur(key, a.Value.Duration())
	case slog.KindTime:
		return event.Time(key, a.Value.Time())
	case slog.KindGroup:
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = key + "."
		}
		for _, ga := range a.Value.Group() {
			event = addAttr(event, groupPrefix, ga)
		}
		return event
	default:
		if err, ok := a.Value.Any().(error); ok {
			return event.AnErr(key, err)
		}
		return event.Interface(key, a.Value.Any())
	}
}

func toZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
