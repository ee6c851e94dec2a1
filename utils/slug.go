package utils

import (
	"net/url"
	"strings"
)

var slugSeparators = []string{
	".", ",", ":", ";", "-", "_", "?", "!", "*", "&", "|", "/", "'", "\"",
}

var slugFoldings = map[string]string{
	"ç": "c",
	"ı": "i",
	"ğ": "g",
	"ö": "o",
	"ş": "s",
	"ü": "u",
}

// ToURLString slugifies a display name into a URL-safe lowercase identifier:
// punctuation becomes separators, Turkish characters fold to ASCII, residue
// is percent-encoded, and the parts are hyphen-joined. Returns "" when the
// input has no usable characters.
func ToURLString(str string) string {
	str = strings.ToLower(str)

	for _, sep := range slugSeparators {
		str = strings.ReplaceAll(str, sep, " ")
	}
	for from, to := range slugFoldings {
		str = strings.ReplaceAll(str, from, to)
	}

	parts := strings.Fields(str)
	encoded := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(url.QueryEscape(part))
		if part != "" {
			encoded = append(encoded, part)
		}
	}
	return strings.Join(encoded, "-")
}
