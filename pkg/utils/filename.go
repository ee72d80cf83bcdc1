package utils

import "strings"

const maxFileNameLength = 100

// SanitizeFileName makes an uploaded file name safe for use inside an
// object-storage key: anything outside [a-zA-Z0-9._-] becomes a dash.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	sanitized := strings.Trim(b.String(), "-.")
	if len(sanitized) > maxFileNameLength {
		sanitized = sanitized[:maxFileNameLength]
	}
	if sanitized == "" {
		return "file"
	}
	return sanitized
}
