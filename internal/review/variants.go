package review

import "strings"

// ParseVariantNames splits a multi-variant mutation name like
// "V600E, V600K" into its individual variants. Commas inside parentheses,
// braces, or brackets belong to a single variant's comment or exclusion
// clause and do not split.
func ParseVariantNames(name string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range name {
		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if v := strings.TrimSpace(name[start:i]); v != "" {
					out = append(out, v)
				}
				start = i + 1
			}
		}
	}
	if v := strings.TrimSpace(name[start:]); v != "" {
		out = append(out, v)
	}
	return out
}
