// ABOUTME: Logger setup for the CLI: colorized console output or JSON
// ABOUTME: Optionally fans records out to a JSON log file with slog-multi

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"

	"github.com/2389/coven-settings/internal/config"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogger builds the console handler for cfg and, when logFile is set,
// fans out to a JSON handler appending to that file. The returned func
// closes the file.
func setupLogger(cfg config.LoggingConfig, logFile string, w io.Writer) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if cfg.Format == "json" {
		console = slog.NewJSONHandler(w, opts)
	} else {
		console = newConsoleHandler(w, level)
	}

	if logFile == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := slogmulti.Fanout(console, slog.NewJSONHandler(f, opts))
	return slog.New(handler), f.Close, nil
}

// consoleHandler writes one colorized line per record. Attributes added
// with WithAttrs are rendered once, with the group prefix in effect at
// that point, and appended to every line.
type consoleHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	preset string // pre-rendered " key=value" pairs from WithAttrs
	prefix string // dotted group path for record attributes
}

func newConsoleHandler(w io.Writer, level slog.Leveler) *consoleHandler {
	return &consoleHandler{out: w, mu: &sync.Mutex{}, level: level}
}

// levelTags is ordered from most to least severe; the first entry the
// record level reaches wins.
var levelTags = []struct {
	min   slog.Level
	tag   string
	paint *color.Color
}{
	{slog.LevelError, "ERR ", color.New(color.FgRed, color.Bold)},
	{slog.LevelWarn, "WRN ", color.New(color.FgYellow)},
	{slog.LevelInfo, "INF ", color.New(color.FgCyan)},
}

func levelTag(l slog.Level) string {
	for _, t := range levelTags {
		if l >= t.min {
			return t.paint.Sprint(t.tag)
		}
	}
	return color.MagentaString("DBG ")
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))
	line.WriteString(levelTag(r.Level))
	line.WriteString(r.Message)
	line.WriteString(h.preset)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&line, h.prefix, a)
		return true
	})
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line.String())
	return err
}

// writeAttr renders a as " prefix.key=value", flattening group values.
func writeAttr(line *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(line, inner, ga)
		}
		return
	}
	line.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
	line.WriteString(a.Value.String())
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var rendered strings.Builder
	rendered.WriteString(h.preset)
	for _, a := range attrs {
		writeAttr(&rendered, h.prefix, a)
	}
	clone := *h
	clone.preset = rendered.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
