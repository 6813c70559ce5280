// Package reconcile maps ranking model candidates to canonical paper
// identifiers. Candidates may carry a direct id or only a path-like locator;
// both reduce to one canonical key, and matching against the store is exact
// string equality on that key.
package reconcile

import (
	"path"
	"strings"

	"github.com/trihuynhnhut0107/SciFind/internal/ranker"
)

// Key reduces a candidate to its canonical identifier. A direct id is used
// verbatim; otherwise the key is derived from the locator. Returns "" when
// the candidate carries neither.
func Key(c ranker.Candidate) string {
	if c.ID != "" {
		return c.ID
	}
	if c.FilePath != "" {
		return LocatorKey(c.FilePath)
	}
	return ""
}

// LocatorKey derives an identifier from a path-like locator: the last path
// segment, with the file extension and any trailing "v<digits>" version
// suffix stripped. "papers/1234.5678v3.pdf" derives to "1234.5678".
// Deterministic and idempotent.
func LocatorKey(locator string) string {
	name := path.Base(strings.ReplaceAll(locator, "\\", "/"))
	// Identifiers like "1234.5678" or "2101.00001v1" contain dots that are
	// part of the id; only a trailing segment shaped like a real file
	// extension (letter-led, short) is stripped.
	if ext := path.Ext(name); ext != name && isFileExt(ext) {
		name = strings.TrimSuffix(name, ext)
	}
	return stripVersion(name)
}

// isFileExt reports whether ext (including the leading dot) looks like a file
// extension: one to five alphanumeric characters starting with a letter.
func isFileExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 || ext[0] != '.' {
		return false
	}
	if !isLetter(ext[1]) {
		return false
	}
	for i := 2; i < len(ext); i++ {
		c := ext[i]
		if !isLetter(c) && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// stripVersion removes a trailing "v<digits>" suffix.
func stripVersion(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i > 0 && i < len(s) && (s[i-1] == 'v' || s[i-1] == 'V') && i-1 > 0 {
		return s[:i-1]
	}
	return s
}

// Keys derives deduplicated canonical keys from candidates, keeping
// first-seen order. Candidates with no derivable key are dropped.
func Keys(candidates []ranker.Candidate) []string {
	seen := make(map[string]struct{}, len(candidates))
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		k := Key(c)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Scores assigns each key a rank-derived score (N-rank)/N over the deduped
// key order: the first-ranked candidate scores highest, decreasing linearly.
func Scores(keys []string) map[string]float64 {
	n := len(keys)
	scores := make(map[string]float64, n)
	for i, k := range keys {
		scores[k] = float64(n-i) / float64(n)
	}
	return scores
}
