package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/solscope/service/metrics"
	natspkg "github.com/brojonat/solscope/service/nats"
	"github.com/brojonat/solscope/service/solana"
)

// sseKeepaliveInterval is how often a comment line is written to idle streams.
var sseKeepaliveInterval = 10 * time.Second

// handleStreamActivity handles SSE streaming of activity reports.
// If address path parameter is empty, streams all addresses. Otherwise, streams one address.
func handleStreamActivity(subscriber natspkg.Subscriber, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		label := "all"
		if address != "" {
			if _, err := solana.ParseAddress(address); err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			label = address
		}

		// Create ephemeral subscription for this connection
		events, err := subscriber.Subscribe(r.Context(), address)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe",
				"address", label,
				"error", err,
			)
			writeError(w, "failed to subscribe", http.StatusServiceUnavailable)
			return
		}

		// Streams outlive the server's write timeout.
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			logger.DebugContext(r.Context(), "could not clear write deadline", "error", err)
		}

		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flush := func() {
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}

		if m != nil {
			m.RecordSSEConnectionChange(label, 1)
			defer m.RecordSSEConnectionChange(label, -1)
		}

		logger.DebugContext(r.Context(), "SSE client connected",
			"address", label,
			"remote_addr", r.RemoteAddr,
		)

		// Send initial connection event
		fmt.Fprintf(w, "event: connected\ndata: {\"address\":\"%s\"}\n\n", label)
		flush()

		keepalive := time.NewTicker(sseKeepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				fmt.Fprintf(w, ": keepalive\n\n")
				flush()

			case event := <-events:
				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(r.Context(), "failed to marshal event",
						"error", err,
					)
					continue
				}

				fmt.Fprintf(w, "event: activity\ndata: %s\n\n", string(data))
				flush()

				if m != nil {
					m.RecordSSEEventSent(label, "activity")
				}

				logger.DebugContext(r.Context(), "sent activity event",
					"address", event.Address,
					"kind", event.Kind,
				)

			case <-r.Context().Done():
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"address", label,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}
