// Package metrics registers Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InferenceRequests counts outbound inference calls by path
	// ("text", "image", "describe") and outcome ("ok", "transport",
	// "malformed", "incomplete").
	InferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbot_inference_requests_total",
		Help: "Outbound inference API calls by path and outcome.",
	}, []string{"path", "outcome"})

	// InferenceFallbacks counts image analyses that went through the
	// describe-then-analyze fallback.
	InferenceFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foodbot_inference_fallbacks_total",
		Help: "Image analyses retried via the describe-then-analyze fallback.",
	})

	// InferenceDuration observes the wall time of inference round-trips.
	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "foodbot_inference_duration_seconds",
		Help:    "Duration of inference API round-trips.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// UpdatesHandled counts processed Telegram updates by kind.
	UpdatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foodbot_updates_handled_total",
		Help: "Processed Telegram updates by kind.",
	}, []string{"kind"})
)

// Handler exposes the default registry for the ops listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
