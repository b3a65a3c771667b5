package handlers

import (
	"net/http"

	"recruitpro/pkg/config"
)

// Routes returns the site's handler with the mode gate and request logging
// applied
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.HomeHandler)
	mux.HandleFunc("/about", s.AboutHandler)
	mux.HandleFunc("/blog", s.BlogHandler)
	mux.HandleFunc("/events", s.EventsHandler)
	mux.HandleFunc("/news", s.NewsHandler)
	mux.HandleFunc("/team", s.TeamHandler)
	mux.HandleFunc("/coming-soon", s.ComingSoonHandler)
	mux.HandleFunc("/maintenance", s.MaintenanceHandler)

	mux.HandleFunc(AjaxPath, s.AjaxHandler)
	mux.HandleFunc("/ajax", s.AjaxHandler)

	mux.HandleFunc("/api/state", s.ServerStateHandler)
	mux.HandleFunc("/api/countdown", s.CountdownHandler)
	if s.hub != nil {
		mux.HandleFunc("/ws/countdown", s.hub.WSHandler)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if s.static != nil {
		files := http.StripPrefix(config.StaticPrefix, http.FileServer(http.FS(s.static)))
		mux.Handle(config.StaticPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			files.ServeHTTP(w, r)
		}))
	}

	return LogRequests(s.ModeGate(mux))
}
