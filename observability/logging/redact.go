package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

var dsnPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// MaskHeaders renders exporter headers with every value masked. Header names
// stay visible so operators can confirm what was set.
func MaskHeaders(key string, headers map[string]string) slog.Attr {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if strings.TrimSpace(headers[name]) != "" {
			names[i] = name + "=" + redacted
		}
	}
	return slog.String(key, strings.Join(names, ","))
}

// MaskDSN hides the password in a database DSN. URL DSNs get the
// net/url "xxxxx" mask, key=value DSNs a [REDACTED] value, and file paths
// pass through unchanged.
func MaskDSN(key, dsn string) slog.Attr {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return slog.String(key, u.Redacted())
	}
	return slog.String(key, dsnPassword.ReplaceAllString(dsn, "${1}"+redacted))
}
