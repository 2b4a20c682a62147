// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for dispatched calls
type Metrics struct {
	framesTotal  *prometheus.CounterVec
	frameBytes   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	callDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		framesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsgate_rpc_frames_total",
				Help: "Entity frames handled by transport, wire type and direction",
			},
			[]string{"transport", "type", "direction"},
		),
		frameBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsgate_rpc_frame_bytes_total",
				Help: "Entity frame bytes by transport, wire type and direction",
			},
			[]string{"transport", "type", "direction"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newsgate_rpc_errors_total",
				Help: "Failed calls by method and error kind",
			},
			[]string{"transport", "method", "kind"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newsgate_rpc_call_duration_seconds",
				Help:    "Call handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport", "method"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.framesTotal,
		m.frameBytes,
		m.errorsTotal,
		m.callDuration,
	)
	return m
}

// Registry exposes the collectors, for tests and custom exporters
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) recordFrame(transportName, typeID, direction string, size int) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(transportName, typeID, direction).Inc()
	m.frameBytes.WithLabelValues(transportName, typeID, direction).Add(float64(size))
}

func (m *Metrics) recordError(transportName, method, kind string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(transportName, method, kind).Inc()
}

func (m *Metrics) recordCall(transportName, method string, took time.Duration) {
	if m == nil {
		return
	}
	m.callDuration.WithLabelValues(transportName, method).Observe(took.Seconds())
}
