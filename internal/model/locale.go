package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLocale is returned by ParseLocale for editions the crawler
// does not know how to read.
var ErrUnknownLocale = errors.New("unknown locale: must be one of us, cn, es")

// Locale identifies a regional edition of the news site.
// Each value has exactly one extraction strategy registered in the locale package.
type Locale int

const (
	// LocaleUS is the English-language edition at www.nytimes.com.
	LocaleUS Locale = iota

	// LocaleCN is the Chinese edition at cn.nytimes.com.
	LocaleCN

	// LocaleES is the Spanish edition at nytimes.com/es.
	LocaleES
)

// Locales lists every supported edition in declaration order.
var Locales = []Locale{LocaleUS, LocaleCN, LocaleES}

// String returns the short lowercase code used in flags and config files.
func (l Locale) String() string {
	switch l {
	case LocaleUS:
		return "us"
	case LocaleCN:
		return "cn"
	case LocaleES:
		return "es"
	default:
		return "unknown"
	}
}

// ParseLocale converts a locale code ("us", "CN", " es ") into a Locale.
func ParseLocale(s string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "us", "en", "":
		return LocaleUS, nil
	case "cn", "zh":
		return LocaleCN, nil
	case "es":
		return LocaleES, nil
	default:
		return LocaleUS, fmt.Errorf("%w: %q", ErrUnknownLocale, s)
	}
}

// MarshalText implements encoding.TextMarshaler so locales serialize as codes.
func (l Locale) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locale) UnmarshalText(text []byte) error {
	parsed, err := ParseLocale(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
