package providers

import (
	"regexp"
	"strings"
)

var qualityToken = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k|uhd)\b`)

// ExtractQuality returns the canonical resolution tag found in a
// release name, or "" when none is present. 4k and uhd map to 2160p;
// the first match wins.
func ExtractQuality(text string) string {
	match := strings.ToLower(qualityToken.FindString(text))
	switch match {
	case "":
		return ""
	case "4k", "uhd":
		return "2160p"
	default:
		return match
	}
}
