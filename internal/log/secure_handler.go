package log

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// MaskValue replaces every masked value.
const MaskValue = "***REDACTED***"

// secretNames are header, attribute and query parameter names whose values
// are always masked, compared case-insensitively.
var secretNames = []string{
	"authorization", "proxy-authorization", "x-api-key", "x-csrf-token", "x-xsrf-token",
	"pwd", "sig", "signature", "apikey", "api_key", "api-key", "key",
	"sid", "jsessionid", "phpsessid",
}

// secretKeywords mark a name as secret when it contains one of them.
// "key" alone is not a keyword: "primary_key" and "monkey" are harmless.
var secretKeywords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "cookie", "session",
}

// secretValues match values that are credentials whatever their name.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	regexp.MustCompile(`^[A-Za-z0-9]{32,}$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// embeddedURL finds http(s) URLs inside longer text such as error messages.
// Trailing punctuation belongs to the sentence, not the URL.
var embeddedURL = regexp.MustCompile(`https?://[^\s"'<>]*[^\s"'<>.,;:)]`)

// SecureHandler wraps an slog.Handler and masks secrets before records reach
// it: values of secret attributes, credential-looking strings, secret query
// parameters and passwords of URLs (also inside error messages), and secret
// entries of header maps.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler, or slog.Default().Handler() when nil.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, maskText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(maskAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, maskAttr(a))
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func maskAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		group := v.Group()
		masked := make([]slog.Attr, 0, len(group))
		for _, g := range group {
			masked = append(masked, maskAttr(g))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if isSensitiveValue(s) {
			return slog.String(a.Key, MaskValue)
		}
		return slog.String(a.Key, maskText(s))
	case slog.KindAny:
		switch x := v.Any().(type) {
		case map[string]string:
			return slog.Any(a.Key, SanitizeHeaders(x))
		case http.Header:
			return slog.Any(a.Key, sanitizeHTTPHeader(x))
		case error:
			return slog.String(a.Key, maskText(x.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// maskText sanitizes every URL found in s.
func maskText(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return embeddedURL.ReplaceAllStringFunc(s, func(u string) string {
		masked, _ := SanitizeURL(u)
		return masked
	})
}

// IsSensitiveKey reports whether an attribute, header or parameter name
// designates a secret.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if slices.Contains(secretNames, k) {
		return true
	}
	return slices.ContainsFunc(secretKeywords, func(kw string) bool {
		return strings.Contains(k, kw)
	})
}

func isSensitiveValue(value string) bool {
	return slices.ContainsFunc(secretValues, func(re *regexp.Regexp) bool {
		return re.MatchString(value)
	})
}

// SanitizeURL masks the password and secret query parameters of an
// absolute http(s) URL. changed is false when s is not such a URL or holds
// nothing to mask.
func SanitizeURL(s string) (masked string, changed bool) {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return s, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return s, false
	}

	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), MaskValue)
		changed = true
	}
	if u.RawQuery != "" {
		q := u.Query()
		for name, values := range q {
			if IsSensitiveKey(name) {
				for i := range values {
					values[i] = MaskValue
				}
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	if !changed {
		return s, false
	}
	// Keep the mask readable instead of percent-encoded.
	return strings.ReplaceAll(u.String(), url.QueryEscape(MaskValue), MaskValue), true
}

// SanitizeHeaders returns a copy of headers with secret values masked.
func SanitizeHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSensitiveKey(k) || isSensitiveValue(v) {
			v = MaskValue
		}
		out[k] = v
	}
	return out
}

func sanitizeHTTPHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, values := range h {
		if IsSensitiveKey(k) {
			out[k] = []string{MaskValue}
			continue
		}
		out[k] = values
	}
	return out
}

// NewSecureLogger returns a masking text logger. verbose selects the Debug
// level, otherwise Warn.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output, used by serve.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
