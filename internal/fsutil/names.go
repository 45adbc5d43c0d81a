package fsutil

import "strings"

// maxNameLen bounds names built from profile IDs.
const maxNameLen = 96

// SafeName turns a profile ID into a file name component. Runs of anything
// other than ASCII letters, digits, '.', '-' and '_' become one '_'.
// Leading and trailing dots and underscores are dropped, and an empty
// result becomes "profile".
func SafeName(id string) string {
	var b strings.Builder
	gap := false
	for _, r := range id {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
			gap = false
		case !gap:
			b.WriteByte('_')
			gap = true
		}
	}
	if out := strings.Trim(b.String(), "._"); out != "" {
		return out
	}
	return "profile"
}
