// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value, trimming and de-duplicating entries.
//
//	SplitList(" kafka-1:9092, kafka-2:9092,,kafka-1:9092")
//	// Returns: []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(value, ","))
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SanitizeKeySegment makes a value safe to embed in a colon-delimited store key.
// Colons, whitespace and control characters become underscores.
func SanitizeKeySegment(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ':' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return '_'
		case r < 0x20 || r == 0x7f:
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(value))
}
