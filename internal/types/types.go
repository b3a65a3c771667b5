package types

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"recruitpro/internal/countdown"
)

// AJAX actions
const (
	ActionNewsletterSignup       = "recruitpro_newsletter_signup"
	ActionComingSoonSubscription = "recruitpro_coming_soon_subscription"
	ActionMaintenanceNewsletter  = "recruitpro_maintenance_newsletter"
)

// Countdown targets
const (
	TargetLaunch      = "launch"
	TargetMaintenance = "maintenance"
)

// AjaxRequest represents a form submission to an AJAX action
type AjaxRequest struct {
	Action string `json:"action"`
	Email  string `json:"email"`
	Nonce  string `json:"nonce"`
	Source string `json:"source,omitempty"`
}

// ResponseData carries the human-readable outcome
type ResponseData struct {
	Message string `json:"message"`
}

// Response represents an AJAX response envelope
type Response struct {
	Success bool         `json:"success"`
	Data    ResponseData `json:"data"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string           `json:"type"` // "tick", "expired" or "error"
	Target  string           `json:"target,omitempty"`
	Units   *countdown.Units `json:"units,omitempty"`
	At      time.Time        `json:"at"`
	Message string           `json:"message,omitempty"`
}

// WSClient represents a WebSocket client connection
type WSClient struct {
	Conn   *websocket.Conn
	Mu     sync.Mutex
	Target string

	// Finished is set once the final "expired" message went out
	Finished bool
}

// StateSnapshot is the public view of the server state
type StateSnapshot struct {
	Mode             string    `json:"mode"`
	LaunchAt         time.Time `json:"launchAt,omitzero"`
	MaintenanceUntil time.Time `json:"maintenanceUntil,omitzero"`
	FeedRefreshedAt  time.Time `json:"feedRefreshedAt,omitzero"`
	FeedsOK          int       `json:"feedsOk"`
	FeedsFailed      int       `json:"feedsFailed"`
	CountdownClients int       `json:"countdownClients"`
	StartedAt        time.Time `json:"startedAt"`
}
