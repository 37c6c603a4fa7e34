// Package textutil provides text sanitation helpers shared by the analysis
// pipeline and the Telegram handlers.
package textutil

import (
	"fmt"
	"strings"
)

// TruncationNotice is appended when Sanitize cuts an oversized input.
const TruncationNotice = "\n\n[Truncado por longitud]"

// Sanitize trims surrounding whitespace and caps the text at maxChars
// characters, appending TruncationNotice when it had to cut.
func Sanitize(s string, maxChars int) string {
	if maxChars > 0 {
		if runes := []rune(s); len(runes) > maxChars {
			s = string(runes[:maxChars]) + TruncationNotice
		}
	}
	return strings.TrimSpace(s)
}

// Truncate caps s at maxChars characters with no notice.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

// Megabytes converts a byte count to megabytes rounded to two decimals,
// matching the figures shown in user-facing size messages.
func Megabytes(bytes int64) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

// FormatMegabytes renders a byte count as "12.34 MB".
func FormatMegabytes(bytes int64) string {
	return fmt.Sprintf("%.2f MB", Megabytes(bytes))
}

// NormalizeMIME lowercases a MIME type and strips any parameters
// ("text/plain; charset=utf-8" -> "text/plain").
func NormalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
