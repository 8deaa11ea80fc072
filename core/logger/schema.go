package logger

import "strings"

// Level names as they appear in the "level" field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

var levelAliases = map[string]string{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

// enumRule restricts a field to a closed vocabulary.
// strict rules drop values outside it; lenient ones keep them lower-cased.
type enumRule struct {
	values map[string]struct{}
	strict bool
}

func newEnum(strict bool, values ...string) enumRule {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return enumRule{values: set, strict: strict}
}

var enumFields = map[string]enumRule{
	"status":  newEnum(false, "ok", "fail", "skip", "retry", "rate_limited", "cancelled"),
	"outcome": newEnum(true, "ok", "fail", "cancelled", "rate_limited"),
	"cache":   newEnum(true, "hit", "miss", "refresh"),
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if name, ok := levelAliases[strings.ToLower(level)]; ok {
		return name
	}
	return strings.ToUpper(level)
}

// normalizeEnum returns the canonical value and whether the field survives.
func normalizeEnum(key, value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", false
	}
	rule, ok := enumFields[key]
	if !ok {
		return value, true
	}
	if _, known := rule.values[value]; known {
		return value, true
	}
	return value, !rule.strict
}

// Output order for well-known keys; anything else follows alphabetically.
var (
	envelopeKeys = []string{"ts", "level", "component", "event", "status"}
	requestKeys  = []string{
		"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type",
		"handler", "workflow", "state", "op", "cb_key", "outcome", "duration_ms", "messages", "kb",
	}
	catalogKeys = []string{"count", "page", "pages", "book_id", "title", "author", "size", "cache", "payload"}
	infraKeys   = []string{
		"lang", "username", "mode", "listen", "public_url", "http_code", "driver", "db", "host", "port",
	}
	errorKeys = []string{"err", "err_code", "cause", "retryable", "attempts", "backoff_ms", "rate_limited"}

	defaultKeyOrder = concatKeys(envelopeKeys, requestKeys, catalogKeys, infraKeys, errorKeys)
)

func concatKeys(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
