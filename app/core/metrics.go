package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teamloop/teamloop/pkg/metrics"
)

type Metrics struct {
	apiResponseTime *prometheus.HistogramVec
	apiErrorCounter *prometheus.CounterVec

	realtimeConnections   *prometheus.GaugeVec
	realtimeEvents        *prometheus.CounterVec
	realtimeBroadcasts    *prometheus.CounterVec
	realtimeRelayFailures *prometheus.CounterVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:       metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:       metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		realtimeConnections:   metrics.NewGaugeVec("realtime_connections", nil),
		realtimeEvents:        metrics.NewCounterVec("realtime_events", []string{"event"}),
		realtimeBroadcasts:    metrics.NewCounterVec("realtime_broadcast_deliveries", nil),
		realtimeRelayFailures: metrics.NewCounterVec("realtime_relay_failures", nil),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

// Metrics 实现 realtime.Observer，网关通过它上报连接与广播指标

func (m *Metrics) ConnectionOpened() {
	m.realtimeConnections.WithLabelValues().Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.realtimeConnections.WithLabelValues().Dec()
}

func (m *Metrics) EventReceived(event string) {
	m.realtimeEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) BroadcastDelivered(count int) {
	m.realtimeBroadcasts.WithLabelValues().Add(float64(count))
}

func (m *Metrics) RelayFailed() {
	m.realtimeRelayFailures.WithLabelValues().Inc()
}
