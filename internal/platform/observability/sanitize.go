package observability

import (
	"strings"
	"unicode"
)

const (
	maxFieldRunes      = 256
	sessionKeyLogRunes = 12
)

// sanitizeString strips control runes so multi-line input cannot forge extra
// log records, then truncates to the rune limit.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = maxFieldRunes
	}
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	runes := []rune(value)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return value
}

// SanitizeRoute normalises the matched chi route pattern for log fields.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod bounds the HTTP method field.
func SanitizeMethod(method string) string {
	return sanitizeString(method, 10)
}

// SanitizeSessionKey reduces the shopper session key to a short prefix. The
// full key scopes the cart, so logs carry only enough to correlate requests.
func SanitizeSessionKey(key string) string {
	key = sanitizeString(key, maxFieldRunes)
	runes := []rune(key)
	if len(runes) > sessionKeyLogRunes {
		return string(runes[:sessionKeyLogRunes])
	}
	return key
}
