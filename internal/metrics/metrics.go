package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "teledrop"

var (
	// FilesReceived counts completed transfers by source path:
	// "bot_api" for small files, "mtproto" for large ones.
	FilesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_received_total",
			Help:      "Total number of files saved to the download store",
		},
		[]string{"source"},
	)

	DownloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes written to the download store",
		},
		[]string{"source"},
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of file transfers in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"source", "status"},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_websocket_connections",
			Help:      "Number of dashboard sessions currently connected",
		},
	)
)
