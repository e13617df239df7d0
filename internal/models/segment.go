package models

// Segment is a bounded slice of episode text synthesized on its own.
// Index is the position in the original text; it alone decides playback order.
type Segment struct {
	Index     int
	Text      string
	AudioPath string
}
