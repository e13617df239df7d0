package handlers

import (
	"net/http"
	"strings"
)

func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	rss, err := h.feed.Render(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Error generating feed")
		http.Error(w, "Error generating RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write(rss)
}

// serveAudioType labels episode files as audio/mpeg; the platform MIME table
// does not always know .mp3.
func serveAudioType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(strings.ToLower(r.URL.Path), ".mp3") {
			w.Header().Set("Content-Type", "audio/mpeg")
		}
		next.ServeHTTP(w, r)
	})
}
