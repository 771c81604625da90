// internal/utils/keys.go
package utils

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"
)

var (
	markupPattern  = regexp.MustCompile(`<[^>]*>`)
	keyCharPattern = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
)

// SanitizeKey strips whitespace, markup and every character that cannot
// appear in a provider API key. The result may be empty.
func SanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = markupPattern.ReplaceAllString(key, "")
	return keyCharPattern.ReplaceAllString(key, "")
}

// MaskKey renders a key safe for logs and reports: first and last four
// characters with the middle elided. Keys too short to mask meaningfully
// come back as "***".
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// ParseKeyLines extracts keys from line-delimited text: one key per line,
// trimmed, blanks dropped, duplicates removed with first-seen order kept.
func ParseKeyLines(text string) []string {
	var keys []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		key := strings.TrimSpace(line)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ParseCSVKeys extracts keys from the first column of CSV data. A UTF-8 BOM
// is tolerated and rows with uneven field counts are accepted. Data that does
// not parse as CSV at all falls back to plain line splitting.
func ParseCSVKeys(data []byte) []string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return ParseKeyLines(string(data))
	}

	var keys []string
	seen := make(map[string]struct{})
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		key := strings.TrimSpace(record[0])
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ClampInt bounds v to the inclusive range [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
