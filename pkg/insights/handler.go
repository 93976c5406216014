package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Handler serves the aggregation results over HTTP. Each request triggers a
// fresh full-bucket scan; the response is the complete time series, not
// paginated.
type Handler struct {
	scanner *Scanner
	sink    AggregateSink // Optional; nil disables the BigQuery export.
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHandler creates the HTTP handler for aggregation runs. sink may be nil.
func NewHandler(scanner *Scanner, sink AggregateSink, requestTimeout time.Duration, logger zerolog.Logger) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Minute
	}
	return &Handler{
		scanner: scanner,
		sink:    sink,
		timeout: requestTimeout,
		logger:  logger.With().Str("component", "InsightsHandler").Logger(),
	}
}

// Register attaches the handler to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/insights", h.ServeAggregates)
}

// ServeAggregates runs an aggregation and writes the result as a JSON array.
func (h *Handler) ServeAggregates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	aggregates, err := h.scanner.Aggregate(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Aggregation run failed.")
		writeMessage(w, http.StatusInternalServerError, "aggregation failed")
		return
	}

	if h.sink != nil {
		h.export(ctx, aggregates)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Encode an empty run as [] rather than null.
	if aggregates == nil {
		aggregates = []HourlyAggregate{}
	}
	if err := json.NewEncoder(w).Encode(aggregates); err != nil {
		h.logger.Error().Err(err).Msg("Failed to write aggregation response.")
	}
}

// export streams the run's aggregates to the sink. A sink failure never
// affects the HTTP response; the aggregates were already computed.
func (h *Handler) export(ctx context.Context, aggregates []HourlyAggregate) {
	items := make([]*HourlyAggregate, len(aggregates))
	for i := range aggregates {
		items[i] = &aggregates[i]
	}
	if err := h.sink.InsertBatch(ctx, items); err != nil {
		h.logger.Error().Err(err).Msg("Failed to export aggregates to sink.")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
