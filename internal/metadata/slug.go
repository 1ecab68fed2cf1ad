package metadata

import "strings"

// Slugify lowercases a name and replaces runs of non-alphanumeric characters
// with a single underscore, trimming leading and trailing underscores. It is
// deterministic and idempotent; slugs double as SQL identifiers.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := true // swallow leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
