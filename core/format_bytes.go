package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Binary byte units
const (
	BytesPerKB uint64 = 1024
	BytesPerMB        = 1024 * BytesPerKB
	BytesPerGB        = 1024 * BytesPerMB
)

// FormatBytes renders a byte count with a binary unit, e.g. "180.0 KB".
func FormatBytes(bytes uint64) string {
	switch {
	case bytes >= BytesPerGB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(BytesPerGB))
	case bytes >= BytesPerMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(BytesPerMB))
	case bytes >= BytesPerKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(BytesPerKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// ParseBytes parses sizes such as "512", "64KB", "1.5 MB" or "2g".
func ParseBytes(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	numEnd := len(s)
	for i, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			numEnd = i
			break
		}
	}
	if numEnd == 0 {
		return 0, fmt.Errorf("invalid size %q: no number found", s)
	}

	value, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	var multiplier uint64
	switch strings.ToUpper(strings.TrimSpace(s[numEnd:])) {
	case "", "B":
		multiplier = 1
	case "K", "KB", "KIB":
		multiplier = BytesPerKB
	case "M", "MB", "MIB":
		multiplier = BytesPerMB
	case "G", "GB", "GIB":
		multiplier = BytesPerGB
	default:
		return 0, fmt.Errorf("invalid size %q: unknown unit", s)
	}
	return uint64(value * float64(multiplier)), nil
}
