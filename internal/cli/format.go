// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatDayLabel renders a day key for selection lists, marking today.
// e.g., "2024-01-01 (Today)"
func FormatDayLabel(dayKey, todayKey string) string {
	if dayKey == todayKey {
		return dayKey + " (Today)"
	}
	return dayKey
}

// FormatProgress renders an n-of-limit counter, e.g. "7 / 10".
func FormatProgress(n, limit int) string {
	return fmt.Sprintf("%d / %d", n, limit)
}

// FormatTimestamps joins per-purchase times for a compact item line.
func FormatTimestamps(ts []string) string {
	return strings.Join(ts, ", ")
}
