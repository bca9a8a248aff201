// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

package waypoint

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "waypoint"

// Rebuild outcomes.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// metrics holds the Prometheus collectors of a Service. A nil *metrics records nothing.
type metrics struct {
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	requests        *prometheus.CounterVec
	endpoints       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &metrics{
		rebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rebuilds_total",
			Help:      "Total number of router rebuilds by outcome",
		}, []string{"outcome"}),

		rebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Router rebuild duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total number of routed requests by outcome",
		}, []string{"outcome"}),

		endpoints: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "endpoints",
			Help:      "Number of terminals registered in the live router",
		}),
	}
}

func (m *metrics) observeRebuild(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(outcome).Inc()
	m.rebuildDuration.Observe(elapsed.Seconds())
}

func (m *metrics) observeRequest(handled bool) {
	if m == nil {
		return
	}
	if handled {
		m.requests.WithLabelValues("handled").Inc()
		return
	}
	m.requests.WithLabelValues("unhandled").Inc()
}

func (m *metrics) setEndpoints(n int) {
	if m == nil {
		return
	}
	m.endpoints.Set(float64(n))
}
