package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"recruitpro/internal/state"
	"recruitpro/pkg/config"
)

// Paths that keep working while the site is closed
var alwaysOpen = []string{
	config.StaticPrefix,
	"/ajax",
	AjaxPath,
	"/ws/",
	"/api/",
	"/healthz",
}

func isAlwaysOpen(path string) bool {
	for _, prefix := range alwaysOpen {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ModeGate serves the coming-soon or maintenance page in place of every
// page while the site is not live
func (s *Server) ModeGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mode := state.GetMode()
		if mode == config.ModeLive || isAlwaysOpen(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		switch mode {
		case config.ModeComingSoon:
			s.ComingSoonHandler(w, r)
		case config.ModeMaintenance:
			if !allowGet(w, r) {
				return
			}
			s.renderMaintenance(w, r, http.StatusServiceUnavailable)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogRequests traces and logs one line per request. Websocket upgrades are
// passed through unwrapped so the connection can be hijacked.
func LogRequests(next http.Handler) http.Handler {
	tracer := otel.Tracer("recruitpro/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			return
		}
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", rec.status))

		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		entry := logrus.WithFields(fields)
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	})
}
