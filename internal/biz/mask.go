package biz

import "strings"

// MaskID keeps the first and last rune of an identifier for log lines.
func MaskID(id string) string {
	r := []rune(id)
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 2:
		return strings.Repeat("*", len(r))
	}
	return string(r[0]) + strings.Repeat("*", len(r)-2) + string(r[len(r)-1])
}

// MaskName masks a username the same way.
func MaskName(name string) string {
	return MaskID(strings.TrimSpace(name))
}
