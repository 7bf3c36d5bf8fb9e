package logging

import (
	"log/slog"
	"regexp"
)

var (
	// Keeps the first 8 hex digits of a UUID-shaped bearer token.
	bearerPattern = regexp.MustCompile(`(?i)(Bearer [0-9a-f]{8})[0-9a-f-]{28}`)
	// Any other Authorization header value is redacted entirely.
	authHeaderPattern = regexp.MustCompile(`(?i)(Authorization:\s*|"Authorization":\s*\[?")([^"\n]*)`)
)

// Scrub removes credentials from s. UUID bearer tokens keep a short prefix so
// that debug output can still tell two tokens apart.
func Scrub(s string) string {
	if bearerPattern.MatchString(s) {
		return bearerPattern.ReplaceAllString(s, "$1-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
	}
	return authHeaderPattern.ReplaceAllString(s, "$1(redacted)")
}

// RedactAuthorization is a slog ReplaceAttr hook that scrubs string and
// error attribute values.
func RedactAuthorization(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(Scrub(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			a.Value = slog.StringValue(Scrub(err.Error()))
		}
	}
	return a
}
