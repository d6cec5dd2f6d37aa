// Package metrics : метрики конвейера скачивания документов
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemoteCalls : обращения к источнику по операции (metadata, file, preview) и исходу
	RemoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studydrive_remote_calls_total",
		Help: "Number of calls to the source service by operation and outcome",
	}, []string{"op", "outcome"})

	// FetchSequences : завершённые последовательности скачивания по итоговому состоянию
	FetchSequences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studydrive_fetch_sequences_total",
		Help: "Number of finished fetch sequences by terminal state",
	}, []string{"state"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studydrive_fetch_duration_seconds",
		Help:    "Duration of a complete fetch sequence",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	FetchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studydrive_fetches_in_flight",
		Help: "Fetch sequences currently running in this process",
	})

	// Downloads : выданные токены скачивания
	Downloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studydrive_download_tokens_issued_total",
		Help: "Number of download tokens issued",
	})
)
