package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions wires middleware and the static directory into the router.
type RouterOptions struct {
	Auth      func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
	StaticDir string
}

func NewRouter(h *Handlers, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/create", h.CreateForm).Methods(http.MethodGet)

	var create http.Handler = http.HandlerFunc(h.CreateEpisode)
	if opts.Auth != nil {
		create = opts.Auth(create)
	}
	if opts.RateLimit != nil {
		create = opts.RateLimit(create)
	}
	r.Handle("/create", create).Methods(http.MethodPost)

	r.HandleFunc("/feed", h.GetRSSFeed).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if opts.StaticDir != "" {
		static := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.PathPrefix("/static/").Handler(serveAudioType(static)).Methods(http.MethodGet, http.MethodHead)
	}

	return r
}
