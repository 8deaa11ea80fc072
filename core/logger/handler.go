package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders flat records with a stable key order.
type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	asJSON := h.cfg.format == formatJSON

	fields := make(fieldSet, 16)
	ts := r.Time.UTC()
	fields["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = r.Level.String()
	if asJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.attrs {
		h.add(fields, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.add(fields, a)
		return true
	})
	fields.fromContext(ctx)

	if rid := fields.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if asJSON {
				fields.setIfAbsent("rid_full", rid)
			}
			fields["rid"] = short
		}
	}
	if fields.str("event") == "" {
		fields["event"] = firstNonEmpty(r.Message, "unknown")
	}
	if fields.str("component") == "" {
		fields["component"] = "app"
	}
	fields.clean()

	keys := orderedKeys(fields, h.cfg.keyOrder)
	var (
		line []byte
		err  error
	)
	if asJSON {
		line, err = encodeJSON(fields, keys)
	} else {
		line = encodeKV(fields, keys)
	}
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(line)
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

// add flattens groups into dotted keys; durations become *_ms integers.
func (h *structuredHandler) add(fields fieldSet, a slog.Attr) {
	walkAttr(h.prefix, a, func(key string, v slog.Value) {
		if key == "" {
			return
		}
		if d, ok := asDuration(v); ok {
			fields[msKey(key)] = RoundMS(d).Milliseconds()
			return
		}
		if val, ok := plainValue(v); ok {
			fields[key] = val
		}
	})
}

func walkAttr(prefix string, a slog.Attr, emit func(string, slog.Value)) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		emit(key, v)
		return
	}
	for _, child := range v.Group() {
		walkAttr(key, child, emit)
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

func asDuration(v slog.Value) (time.Duration, bool) {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration(), true
	case slog.KindAny:
		d, ok := v.Any().(time.Duration)
		return d, ok
	}
	return 0, false
}

// msKey maps duration keys to their millisecond form: duration -> duration_ms,
// fetch_duration -> fetch_duration_ms, wait -> wait_ms.
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func plainValue(v slog.Value) (any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return v.Bool(), true
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), true
		}
		return v.Uint64(), true
	case slog.KindFloat64:
		return v.Float64(), true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return nil, false
		case error:
			return x.Error(), true
		case string:
			return strings.TrimSpace(x), true
		case fmt.Stringer:
			return x.String(), true
		default:
			return fmt.Sprint(x), true
		}
	}
	return v.Any(), true
}

// fieldSet is one record being assembled.
type fieldSet map[string]any

func (f fieldSet) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (f fieldSet) setIfAbsent(key string, v any) {
	if _, ok := f[key]; ok || isZeroField(v) {
		return
	}
	f[key] = v
}

// fromContext fills request identifiers that the record did not set itself.
func (f fieldSet) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	f.setIfAbsent("rid", RIDFrom(ctx))
	f.setIfAbsent("user_id", UserIDFrom(ctx))
	f.setIfAbsent("update_id", UpdateIDFrom(ctx))
	f.setIfAbsent("chat_id", ChatIDFrom(ctx))
	f.setIfAbsent("handler", HandlerFrom(ctx))
}

// clean canonicalizes enum fields and drops empty values.
func (f fieldSet) clean() {
	f["level"] = normalizeLevel(f.str("level"))
	for key := range enumFields {
		if _, ok := f[key]; !ok {
			continue
		}
		if v, keep := normalizeEnum(key, f.str(key)); keep {
			f[key] = v
		} else {
			delete(f, key)
		}
	}
	for k, v := range f {
		if s, ok := v.(string); (ok && s == "") || v == nil {
			delete(f, k)
		}
	}
}

func isZeroField(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// orderedKeys lists keys named in order first, the rest sorted.
func orderedKeys(fields fieldSet, order []string) []string {
	keys := make([]string, 0, len(fields))
	placed := make(map[string]struct{}, len(fields))
	for _, k := range order {
		if _, ok := fields[k]; !ok {
			continue
		}
		if _, dup := placed[k]; dup {
			continue
		}
		placed[k] = struct{}{}
		keys = append(keys, k)
	}
	rest := make([]string, 0, len(fields)-len(keys))
	for k := range fields {
		if _, ok := placed[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func encodeJSON(fields fieldSet, keys []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

func encodeKV(fields fieldSet, keys []string) []byte {
	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(fields[k]))
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		s = fmt.Sprint(x)
	}
	if strings.IndexFunc(s, needsQuote) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
