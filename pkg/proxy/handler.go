package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var histogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "proxy_requests",
	Help:    "A histogram of proxied request round-trip times (roughly the remote endpoint's response times)",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
}, []string{"code"})

type Handler struct {
	executor *Executor
}

func NewHandler(executor *Executor) *Handler {
	return &Handler{executor: executor}
}

// ServeHTTP handles POST /proxy. A missing or non-string url is the only
// client error; everything else, including a remote 5xx or an unreachable
// host, comes back 200 with the normalized result.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload struct {
		URL     any               `json:"url"`
		Method  string            `json:"method"`
		Headers []HeaderEntry     `json:"headers"`
		Params  map[string]string `json:"params"`
		Body    any               `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	target, ok := payload.URL.(string)
	if !ok || target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "URL is required"})
		return
	}

	slog.Info("proxying request", "method", payload.Method, "url", target)

	start := time.Now()
	result := h.executor.Execute(Invocation{
		URL:     target,
		Method:  payload.Method,
		Headers: payload.Headers,
		Params:  payload.Params,
		Body:    payload.Body,
	})
	histogram.WithLabelValues(strconv.Itoa(result.Status)).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
