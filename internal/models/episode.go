package models

import "time"

// PubDateLayout is the fixed RFC 1123 form used for pub_date, always in GMT.
const PubDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// DefaultDuration is reported when an artifact's length could not be measured.
const DefaultDuration = "00:00:00"

// Episode is one finished, published audio episode.
type Episode struct {
	ID          int64     `db:"id"`
	Filename    string    `db:"filename"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	PubDate     string    `db:"pub_date"`
	Duration    *string   `db:"duration"`
	CreatedAt   time.Time `db:"created_at"`
}

// DurationOrDefault returns the stored duration, or 00:00:00 when absent.
func (e Episode) DurationOrDefault() string {
	if e.Duration == nil || *e.Duration == "" {
		return DefaultDuration
	}
	return *e.Duration
}

// FormatPubDate renders t in the pub_date layout.
func FormatPubDate(t time.Time) string {
	return t.UTC().Format(PubDateLayout)
}
