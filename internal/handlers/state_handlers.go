package handlers

import (
	"net/http"
	"time"

	"recruitpro/internal/countdown"
	"recruitpro/internal/state"
	"recruitpro/internal/types"
)

// CountdownResponse is the body of /api/countdown
type CountdownResponse struct {
	Target   string          `json:"target"`
	TargetAt *time.Time      `json:"targetAt,omitempty"`
	Units    countdown.Units `json:"units"`
	Padded   [4]string       `json:"padded"`
}

// ServerStateHandler returns the global server state
func (s *Server) ServerStateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := state.GetServerState()
	if s.hub != nil {
		snapshot.CountdownClients = s.hub.ClientCount()
	}
	sendJSON(w, http.StatusOK, snapshot)
}

// CountdownHandler returns the time left until a countdown target
func (s *Server) CountdownHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target := r.URL.Query().Get("target")
	if target == "" {
		target = types.TargetLaunch
	}
	at, ok := state.Target(target)
	if !ok {
		sendError(w, "Unknown countdown target", http.StatusBadRequest)
		return
	}

	units := countdown.Compute(at, s.now())
	resp := CountdownResponse{
		Target: target,
		Units:  units,
		Padded: units.Pad(),
	}
	if !at.IsZero() {
		utc := at.UTC()
		resp.TargetAt = &utc
	}
	sendJSON(w, http.StatusOK, resp)
}
