package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/illmade-knight/go-sentiment-flow/pkg/messagepipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	relayedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentiment_relayed_events_total",
		Help: "Number of events forwarded to the streaming buffer.",
	})
	rejectedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentiment_rejected_events_total",
		Help: "Number of inbound payloads rejected for lacking a locatable event.",
	})
)

// Handler accepts event envelopes over HTTP and publishes the nested event to
// the streaming buffer.
type Handler struct {
	publisher messagepipeline.SimplePublisher
	logger    zerolog.Logger
}

// NewHandler creates the relay's HTTP handler.
func NewHandler(publisher messagepipeline.SimplePublisher, logger zerolog.Logger) (*Handler, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	return &Handler{
		publisher: publisher,
		logger:    logger.With().Str("component", "RelayHandler").Logger(),
	}, nil
}

// Register attaches the handler to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/events", h.ServeEvent)
}

// ServeEvent extracts the nested event from the request body and forwards it.
// A payload with no locatable event, or with a malformed body field, gets a
// 400; a delivery failure gets a 502 so the platform retries.
func (h *Handler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read request body.")
		writeMessage(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	event, err := ExtractEvent(payload)
	if err != nil {
		rejectedEvents.Inc()
		h.logger.Error().Err(err).Bytes("payload", payload).Msg("Rejecting payload with no locatable event.")
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.publisher.Publish(r.Context(), event, nil); err != nil {
		h.logger.Error().Err(err).Bytes("payload", payload).Msg("Failed to forward event to the streaming buffer.")
		writeMessage(w, http.StatusBadGateway, "failed to forward event")
		return
	}

	relayedEvents.Inc()
	h.logger.Info().Msg("Event successfully forwarded to the streaming buffer.")
	writeMessage(w, http.StatusOK, "event forwarded")
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
