package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Mode controls the handler style used when constructing a logger.
type Mode int

const (
	// ModeCLI renders log records in a terse text-oriented format.
	ModeCLI Mode = iota
	// ModeJSON renders log records as JSON.
	ModeJSON
)

// New constructs a logger targeting the provided writer using the
// requested mode. If level is nil, slog.LevelInfo is used.
func New(mode Mode, w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}
	if level == nil {
		level = slog.LevelInfo
	}

	switch mode {
	case ModeJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(&cliHandler{writer: w, level: level, mu: &sync.Mutex{}})
	}
}

// Ensure returns the provided logger or the process default if nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// ParseMode maps a config string onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "cli", "text":
		return ModeCLI, nil
	case "json":
		return ModeJSON, nil
	default:
		return ModeCLI, fmt.Errorf("unknown log format %q", value)
	}
}

// ParseLevel maps a config string onto a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}

// cliHandler writes "LEVEL time | message key=value ..." lines.
type cliHandler struct {
	writer io.Writer
	level  slog.Leveler
	mu     *sync.Mutex
	attrs  []slog.Attr
	prefix string
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *cliHandler) Handle(_ context.Context, record slog.Record) error {
	var builder strings.Builder
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	builder.WriteString(strings.ToUpper(record.Level.String()))
	builder.WriteByte(' ')
	builder.WriteString(timestamp.UTC().Format(time.RFC3339))
	builder.WriteString(" | ")
	builder.WriteString(record.Message)

	for _, attr := range h.attrs {
		writeAttr(&builder, h.prefix, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&builder, h.prefix, attr)
		return true
	})
	builder.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, builder.String())
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *cliHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func writeAttr(builder *strings.Builder, prefix string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		for _, nested := range value.Group() {
			writeAttr(builder, prefix+attr.Key+".", nested)
		}
		return
	}

	builder.WriteByte(' ')
	builder.WriteString(prefix)
	builder.WriteString(attr.Key)
	builder.WriteByte('=')
	switch value.Kind() {
	case slog.KindTime:
		builder.WriteString(value.Time().UTC().Format(time.RFC3339))
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			builder.WriteString(err.Error())
			return
		}
		builder.WriteString(fmt.Sprint(value.Any()))
	default:
		builder.WriteString(value.String())
	}
}
