package geocode

import (
	"regexp"
	"strings"
)

var (
	houseNumberPattern  = regexp.MustCompile(`^\s*\d+\s+([^,]+)`)
	streetSuffixPattern = regexp.MustCompile(`(?i)\b([A-Za-z0-9'.\- ]+?\s(?:Drive|Dr|Road|Rd|Street|St|Avenue|Ave|Lane|Ln|Alley|Ally|Court|Ct|Close|Boulevard|Blvd))\b`)
)

// ExtractStreet pulls a street name out of a free-form address.
// "12 Mona Road, Kingston" yields "Mona Road"; otherwise the first segment ending in a
// common street suffix is used. Returns "" when nothing looks like a street.
func ExtractStreet(displayName string) string {
	if displayName == "" {
		return ""
	}
	if m := houseNumberPattern.FindStringSubmatch(displayName); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, part := range strings.Split(displayName, ",") {
		if m := streetSuffixPattern.FindStringSubmatch(part); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
