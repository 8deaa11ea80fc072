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

	"github.com/m3rciful/bookbot/core/buildinfo"
	coreconfig "github.com/m3rciful/bookbot/core/config"
)

const (
	writerQueueSize    = 1024
	defaultSampleNum   = 1
	defaultSampleDenom = 50
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	sink    *asyncWriter
	files   []io.Closer
	level   slog.LevelVar
	sampler = newRatioSampler(defaultSampleNum, defaultSampleDenom)
	// TRACE=1 in the environment disables debug sampling.
	traceAll bool

	// L is the process-wide logger; the component loggers below derive from it.
	L *slog.Logger

	DB    *slog.Logger // component=db
	TG    *slog.Logger // component=tg
	MIG   *slog.Logger // component=db.migrate
	TWire *slog.Logger // component=tg.wire
	SEED  *slog.Logger // component=db.seed
)

func init() {
	L = slog.Default()
	deriveComponents()
}

// settings is the logging section resolved to concrete values.
type settings struct {
	format     logFormat
	keyOrder   []string
	level      slog.Level
	sampleNum  int
	sampleDen  int
	filePath   string
	profile    string
	driver     string
	redisOn    bool
	configured bool
}

func resolveSettings(cfg *coreconfig.Config) settings {
	s := settings{
		format:    formatJSON,
		keyOrder:  append([]string(nil), defaultKeyOrder...),
		level:     slog.LevelInfo,
		sampleNum: defaultSampleNum,
		sampleDen: defaultSampleDenom,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.configured = true
	s.profile = strings.ToLower(firstNonEmpty(strings.TrimSpace(lc.Profile), "prod"))
	s.driver = cfg.Database.Driver
	s.redisOn = cfg.Redis.Enabled()

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.keyOrder = order
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		switch num, den := parseRatioSpec(spec); {
		case num == 0 && den == 0:
			s.sampleNum, s.sampleDen = 0, 0
		case num > 0 && den > 0:
			s.sampleNum, s.sampleDen = num, den
		}
	}

	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.filePath = filepath.Join(dir, file)
	}
	return s
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger installs the structured handler as the slog default. Only the first call has effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolveSettings(cfg)
		level.Set(s.level)
		sampler.Set(s.sampleNum, s.sampleDen)
		traceAll = envFlag("TRACE") || envFlag("LOG_TRACE")

		outputs := []io.Writer{os.Stdout}
		if s.filePath != "" {
			f, openErr := openLogFile(s.filePath)
			if openErr != nil {
				// stdout keeps working; report on stderr since logging is not up yet
				fmt.Fprintf(os.Stderr, "logger: %v\n", openErr)
			} else {
				outputs = append(outputs, f)
				files = append(files, f)
			}
		}
		sink = newAsyncWriter(outputs, writerQueueSize)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   sink,
			format:   s.format,
			keyOrder: s.keyOrder,
		}))
		slog.SetDefault(L)
		deriveComponents()
		announce(s)
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

func deriveComponents() {
	DB = Component("db")
	TG = Component("tg")
	MIG = Component("db.migrate")
	TWire = Component("tg.wire")
	SEED = Component("db.seed")
}

func announce(s settings) {
	attrs := []slog.Attr{
		slog.String("component", "app"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
	}
	if s.configured {
		attrs = append(attrs,
			slog.String("cfg_profile", s.profile),
			slog.String("driver", s.driver),
			slog.Bool("redis", s.redisOn),
		)
	}
	LogEvent(context.Background(), L, slog.LevelInfo, "startup", attrs...)
}

// Shutdown flushes pending lines and closes log files. Safe to call more than once.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Flush(), sink.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Component returns L scoped to the given component name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes one record carrying event as its first attribute.
// A nil logger falls back to the one stored in ctx.
func LogEvent(ctx context.Context, lg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if lg == nil {
		lg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	lg.LogAttrs(ctx, lvl, "", attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
func ShouldSampleDebug() bool {
	return traceAll || sampler.Allow()
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
