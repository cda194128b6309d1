package util

import "strings"

// Words lowercases s and splits it on whitespace into a set.
func Words(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b| over the whitespace-separated words of a and b.
// Two empty strings have similarity 0.
func Jaccard(a, b string) float64 {
	wa, wb := Words(a), Words(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

// ContainsAny reports whether s contains any of the substrings, returning the
// first one found. Matching is case-insensitive.
func ContainsAny(s string, subs []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
			return sub, true
		}
	}
	return "", false
}

// CountContained returns how many of subs occur in s, case-insensitively.
func CountContained(s string, subs []string) int {
	lower := strings.ToLower(s)
	n := 0
	for _, sub := range subs {
		if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
			n++
		}
	}
	return n
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
