package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"recruitpro/internal/subscribe"
	"recruitpro/internal/types"
)

const maxAjaxBody = 64 << 10

// User-facing messages
const (
	msgBadNonce     = "Security check failed. Please refresh the page and try again."
	msgInvalidEmail = "Please enter a valid email address."
	msgDuplicate    = "This email address is already subscribed."
	msgSaveFailed   = "We could not save your subscription. Please try again later."
)

type ajaxAction struct {
	list    string
	source  string
	success string
}

var ajaxActions = map[string]ajaxAction{
	types.ActionNewsletterSignup: {
		list:    subscribe.ListNewsletter,
		source:  "newsletter",
		success: "Thank you for subscribing to our newsletter!",
	},
	types.ActionComingSoonSubscription: {
		list:    subscribe.ListComingSoon,
		source:  "coming_soon",
		success: "Thanks! We will let you know as soon as we launch.",
	},
	types.ActionMaintenanceNewsletter: {
		list:    subscribe.ListMaintenance,
		source:  "maintenance",
		success: "Thanks! We will email you when the site is back online.",
	},
}

// AjaxHandler dispatches subscription form posts by their action field.
// Rejections the visitor can fix are answered with status 200 and
// success=false.
func (s *Server) AjaxHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeAjaxRequest(w, r)
	if err != nil {
		sendError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	action, ok := ajaxActions[req.Action]
	if !ok {
		sendError(w, "Unknown action", http.StatusBadRequest)
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"action": req.Action,
		"list":   action.list,
	})

	if err := s.nonces.Verify(req.Nonce, req.Action); err != nil {
		log.WithError(err).Warn("Rejected subscription with bad nonce")
		sendError(w, msgBadNonce, http.StatusOK)
		return
	}

	source := action.source
	if req.Source != "" {
		source = req.Source
	}
	_, err = s.subs.Subscribe(r.Context(), action.list, req.Email, subscribe.Meta{
		Source: source,
		IP:     clientIP(r),
	})
	switch {
	case errors.Is(err, subscribe.ErrInvalidEmail):
		log.Info("Rejected invalid email")
		sendError(w, msgInvalidEmail, http.StatusOK)
		return
	case errors.Is(err, subscribe.ErrDuplicate):
		log.Info("Rejected duplicate subscription")
		sendError(w, msgDuplicate, http.StatusOK)
		return
	case err != nil:
		log.WithError(err).Error("Failed to save subscription")
		sendError(w, msgSaveFailed, http.StatusInternalServerError)
		return
	}

	count, err := s.subs.Count(r.Context(), action.list)
	if err != nil {
		log.WithError(err).Warn("Failed to count subscribers")
	}
	log.WithField("subscribers", count).Info("Subscription accepted")
	sendSuccess(w, action.success)
}

// decodeAjaxRequest reads a JSON body or a URL-encoded/multipart form
func decodeAjaxRequest(w http.ResponseWriter, r *http.Request) (types.AjaxRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAjaxBody)

	var req types.AjaxRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxAjaxBody); err != nil {
			return req, err
		}
		req = formRequest(r)
	default:
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req = formRequest(r)
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action == "" {
		// Actions may also arrive in the query string
		req.Action = strings.TrimSpace(r.URL.Query().Get("action"))
	}
	return req, nil
}

func formRequest(r *http.Request) types.AjaxRequest {
	nonceValue := r.PostFormValue("nonce")
	if nonceValue == "" {
		nonceValue = r.PostFormValue("_wpnonce")
	}
	return types.AjaxRequest{
		Action: r.PostFormValue("action"),
		Email:  r.PostFormValue("email"),
		Nonce:  nonceValue,
		Source: r.PostFormValue("source"),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// formData mints the hidden fields of a subscription form
func (s *Server) formData(action, heading, button string) FormData {
	token, err := s.nonces.Create(action)
	if err != nil {
		logrus.WithError(err).WithField("action", action).Error("Failed to create nonce")
	}
	return FormData{
		AjaxURL: AjaxPath,
		Action:  action,
		Nonce:   token,
		Source:  ajaxActions[action].source,
		Heading: heading,
		Button:  button,
	}
}
