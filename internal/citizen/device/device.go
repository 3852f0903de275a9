// Package device turns raw User-Agent strings into short human-readable
// device names for audit trails and login notifications.
package device

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent derives a display name like "Chrome on Mac OS X" from a raw
// User-Agent header. Unknown or empty agents get stable fallbacks so audit
// rows never carry empty device fields.
func ParseUserAgent(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	name := fmt.Sprintf("%s on %s", browser, os)
	return strings.Join(strings.Fields(name), " ")
}
