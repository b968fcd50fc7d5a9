package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// deviceSummary reduces a User-Agent header to "browser version (os)".
func deviceSummary(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteString(" ")
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" (")
		b.WriteString(os)
		b.WriteString(")")
	}
	if ua.Bot() {
		b.WriteString(" [bot]")
	}
	return strings.TrimSpace(b.String())
}
