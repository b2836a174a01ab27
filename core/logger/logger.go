package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/homeworkbot/core/buildinfo"
	coreconfig "github.com/m3rciful/homeworkbot/core/config"
)

var (
	initOnce     sync.Once
	shutdownOnce sync.Once

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar      slog.LevelVar
	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	base atomic.Pointer[slog.Logger]
)

func init() {
	// Quiet default until InitLogger runs, so packages can log from tests.
	base.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// settings is the resolved logging section of the config.
type settings struct {
	format  logFormat
	level   slog.Level
	order   []string
	sampleN int
	sampleD int
	file    string
	profile string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, level: slog.LevelInfo, order: defaultKeyOrder, sampleN: 1, sampleD: 50}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.profile = cmpOrLower(lc.Profile, "prod")

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	level := strings.TrimSpace(lc.Level)
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	// Unknown or empty names keep the info default.
	_ = s.level.UnmarshalText([]byte(level))

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		switch n, d := parseRatioSpec(spec); {
		case n == 0 && d == 0:
			s.sampleN, s.sampleD = 0, 0
		case n > 0 && d > 0:
			s.sampleN, s.sampleD = n, d
		}
	}
	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

func cmpOrLower(v, def string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
		return v
	}
	return def
}

// InitLogger configures the root structured logger. Later calls are no-ops.
// A log file that cannot be opened is reported on stderr; stdout still works.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolve(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleN, s.sampleD)
		traceOverride = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if s.file != "" {
			if f, err := openLogFile(s.file); err != nil {
				fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			} else {
				outputs = append(outputs, f)
				logClosers = append(logClosers, f)
			}
		}
		logWriter = newAsyncWriter(outputs, 64*1024)

		root := slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.order,
		}))
		base.Store(root)
		slog.SetDefault(root)

		attrs := []slog.Attr{
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
		}
		if cfg != nil {
			attrs = append(attrs, slog.String("cfg_profile", s.profile))
		}
		Info(context.Background(), "app", "startup", attrs...)
	})
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	var err error
	shutdownOnce.Do(func() {
		var errs []error
		if logWriter != nil {
			errs = append(errs, logWriter.Flush(), logWriter.Close())
		}
		for _, c := range logClosers {
			errs = append(errs, c.Close())
		}
		err = errors.Join(errs...)
	})
	return err
}

// Base returns the process-wide root logger.
func Base() *slog.Logger {
	return base.Load()
}

// Component returns the root logger scoped to a component attribute.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return Base()
	}
	return Base().With("component", name)
}

// LogEvent writes one event record. A component scopes the root logger;
// without one the logger carried by ctx is used.
func LogEvent(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if component != "" {
		logg = Component(component)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 in the environment keeps all of them.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}
