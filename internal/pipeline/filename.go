package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxBaseLength   = 50
	timestampLayout = "20060102_150405"
	fallbackBase    = "episode"
)

// SanitizeBase derives a filesystem-safe name fragment from an episode title.
func SanitizeBase(title string) string {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "-")
	runes := []rune(base)
	if len(runes) > maxBaseLength {
		runes = runes[:maxBaseLength]
	}
	for i, r := range runes {
		if !safeRune(r) {
			runes[i] = '_'
		}
	}
	if len(runes) == 0 {
		return fallbackBase
	}
	return string(runes)
}

func safeRune(r rune) bool {
	return r >= 'a' && r <= 'z' ||
		r >= 'A' && r <= 'Z' ||
		r >= '0' && r <= '9' ||
		r == '_' || r == '-'
}

// NewFilename builds {base}_{timestamp}_{random}{suffix}.{ext}. The random
// part keeps names distinct between runs started in the same second.
func NewFilename(base string, now time.Time, suffix, ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s_%s_%s%s.%s", base, now.Format(timestampLayout), random, suffix, ext)
}
