package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickerbrief_reports_total",
		Help: "Report requests by outcome.",
	}, []string{"outcome"})

	reportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickerbrief_report_duration_seconds",
		Help:    "End-to-end report generation latency.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	streamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tickerbrief_stream_clients",
		Help: "Currently connected SSE clients.",
	})
)
