// file: internal/transfer/acceptencoding.go
package transfer

import (
	"strconv"
	"strings"
)

// qEntry is one parsed Accept-Encoding entry.
type qEntry struct {
	name string
	q    float64
}

const defaultQuality = 1.0

// parseAcceptEncoding parses comma-separated,
// whitespace-tolerant entries of the form "name" or "name;q=<float>"; a
// "*;q=<float>" entry redefines the default quality for unlisted names; a
// bare "*" (not in the default-quality form) is ignored.
func parseAcceptEncoding(header string) (entries []qEntry, wildcardQ float64) {
	wildcardQ = defaultQuality
	if header == "" {
		return nil, wildcardQ
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, q, hasQ := splitQ(part)
		if name == "*" {
			if hasQ {
				wildcardQ = q
			}
			continue // bare "*" without q= is ignored per spec
		}
		if !hasQ {
			q = defaultQuality
		}
		entries = append(entries, qEntry{name: name, q: q})
	}
	return entries, wildcardQ
}

func splitQ(part string) (name string, q float64, hasQ bool) {
	pieces := strings.SplitN(part, ";", 2)
	name = strings.TrimSpace(pieces[0])
	if len(pieces) == 1 {
		return name, 0, false
	}
	param := strings.TrimSpace(pieces[1])
	if !strings.HasPrefix(param, "q=") {
		return name, 0, false
	}
	val, err := strconv.ParseFloat(strings.TrimPrefix(param, "q="), 64)
	if err != nil {
		return name, 0, false
	}
	return name, val, true
}

// bestMatch returns the supported encoding with the highest quality,
// excluding "*", or ("", false) if none of supported appear.
func bestMatch(entries []qEntry, wildcardQ float64, supported []string) (string, bool) {
	bestName := ""
	bestQ := -1.0
	for _, s := range supported {
		q := wildcardQ
		found := false
		for _, e := range entries {
			if e.name == s {
				q = e.q
				found = true
				break
			}
		}
		_ = found
		if q > bestQ {
			bestQ = q
			bestName = s
		}
	}
	if bestName == "" || bestQ <= 0 {
		return "", false
	}
	return bestName, true
}
