package services

import "github.com/prometheus/client_golang/prometheus"

// Chat exchange outcomes.
const (
	outcomeSuccess    = "success"
	outcomeReplayed   = "replayed"
	outcomeInProgress = "in_progress"
	outcomeNotFound   = "not_found"
	outcomeInvalid    = "invalid"
	outcomeError      = "error"
)

var (
	charactersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "characters_created_total",
			Help: "Total number of characters created.",
		},
	)

	chatExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_exchanges_total",
			Help: "Total number of chat exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// generationLat covers only the generator call, not persistence.
	generationLat = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_generation_duration_seconds",
			Help:    "Duration of reply generation in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(charactersCreated, chatExchanges, generationLat)
}
