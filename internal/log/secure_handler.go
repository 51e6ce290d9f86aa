package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// HTTP
	"authorization":       true,
	"cookie":              true,
	"cookies":             true,
	"set-cookie":          true,
	"proxy-authorization": true,

	// Site and storage credentials
	"password":      true,
	"username":      true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"storage_token": true,

	// Node identity
	"private_key":    true,
	"privatekey":     true,
	"secret_key":     true,
	"secretkey":      true,
	"keypair":        true,
	"node_signature": true,
	"signature":      true,
}

// sensitivePatterns are value shapes that are masked regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens (web3.storage API keys are JWTs)
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),

	// NYT session cookies
	regexp.MustCompile(`(?i)\bNYT-S=`),

	// Long opaque strings such as API keys and base58 secret keys
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),

	// PEM private key markers
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// publicPatterns are long identifiers that look opaque but are public
// and needed for debugging: CIDv1 strings and SHA-256 hex digests.
var publicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ba[a-z2-7]{50,}$`),
	regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`),
	regexp.MustCompile(`^[0-9a-f]{64}$`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and masks attribute values that
// match sensitive key names or value patterns before passing the record on.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled reports whether the underlying handler handles records at level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes sanitized and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if sensitiveKeys[keyLower] || containsSensitiveKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString && isSensitiveValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

// containsSensitiveKeyword checks if the key contains a sensitive keyword.
// The bare word "key" is excluded: "pubkey", "node_pubkey" and "cache_key"
// are safe to log.
func containsSensitiveKeyword(key string) bool {
	sensitiveKeywords := []string{
		"password", "passwd", "secret", "token", "auth",
		"credential", "private", "cookie",
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range publicPatterns {
		if pattern.MatchString(value) {
			return false
		}
	}
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Format selects the log output encoding.
type Format string

const (
	// FormatText writes logfmt-style key=value lines.
	FormatText Format = "text"

	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// New creates a sanitizing logger writing to w in the given format.
// Verbose lowers the level from Warn to Debug.
func New(w io.Writer, format Format, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewSecureHandler(handler))
}

// NewSecureLogger creates a text logger with sanitization.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, FormatText, verbose)
}

// NewSecureJSONLogger creates a JSON logger with sanitization.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, FormatJSON, verbose)
}
