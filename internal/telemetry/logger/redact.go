package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/blazar-go/pkg/token"
)

const redacted = "***REDACTED***"

// secretWords mark an attribute key as secret when they appear as one of
// its underscore, dash or dot separated words. "key" alone is not one of
// them: Redis keys are logged as "key".
var secretWords = map[string]bool{
	"auth":        true,
	"password":    true,
	"passwd":      true,
	"requirepass": true,
	"secret":      true,
	"token":       true,
	"credential":  true,
	"credentials": true,
	"bearer":      true,
	"apikey":      true,
}

// redactSensitive is the ReplaceAttr hook of every handler built by New.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			out = append(out, redactSensitive(ga))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		s := a.Value.String()
		if strings.HasPrefix(s, token.Prefix) {
			return slog.String(a.Key, RedactString(s))
		}
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// RedactString masks a client auth token, keeping its prefix and the
// first and last three characters. Other strings are returned unchanged.
func RedactString(s string) string {
	if !strings.HasPrefix(s, token.Prefix) {
		return s
	}
	body := s[len(token.Prefix):]
	if len(body) <= 6 {
		return token.Prefix + "***"
	}
	return token.Prefix + body[:3] + "..." + body[len(body)-3:]
}

// IsSensitiveKey reports whether an attribute named key holds a secret.
func IsSensitiveKey(key string) bool {
	words := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, w := range words {
		if secretWords[w] {
			return true
		}
		// api_key, private_key
		if w == "key" && i > 0 && (words[i-1] == "api" || words[i-1] == "private") {
			return true
		}
	}
	return false
}
