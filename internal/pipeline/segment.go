package pipeline

import "hypercast/internal/models"

// DefaultSegmentLength is the per-request character limit of the speech service.
const DefaultSegmentLength = 4096

// Split cuts text into segments of at most limit characters. It breaks at the
// last space that fits, dropping that space, so joining the segments with a
// single space gives back the text. A run of limit characters with no space is
// cut hard at the limit.
func Split(text string, limit int) []models.Segment {
	if limit <= 0 {
		limit = DefaultSegmentLength
	}

	runes := []rune(text)
	var segments []models.Segment
	for len(runes) > 0 {
		if len(runes) <= limit {
			segments = append(segments, models.Segment{Index: len(segments), Text: string(runes)})
			break
		}

		cut := lastSpace(runes[:limit+1])
		var chunk []rune
		if cut <= 0 {
			chunk, runes = runes[:limit], runes[limit:]
		} else {
			chunk, runes = runes[:cut], runes[cut+1:]
		}
		segments = append(segments, models.Segment{Index: len(segments), Text: string(chunk)})
	}
	return segments
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
