// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashboard"

var (
	RealtimeUpstreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "upstream_channels",
		Help:      "Open upstream broker subscriptions, one per (table, filter).",
	})

	RealtimeSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "local_subscribers",
		Help:      "Local consumers attached to upstream channels.",
	})

	RealtimeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "events_total",
		Help:      "Row change events by table and type.",
	}, []string{"table", "type"})

	RealtimeDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "dropped_total",
		Help:      "Events dropped because a subscriber buffer was full.",
	}, []string{"table"})

	RealtimeResubscribes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "realtime",
		Name:      "resubscribes_total",
		Help:      "Upstream resubscriptions after loss.",
	}, []string{"table"})

	ChatTokens = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "stream_tokens_total",
		Help:      "Content fragments received from chat streams.",
	})

	ChatStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chat",
		Name:      "streams_total",
		Help:      "Chat streams by outcome.",
	}, []string{"outcome"}) // completed | dropped | error

	SignupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "signup",
		Name:      "provisions_total",
		Help:      "Signup provisioning runs by outcome.",
	}, []string{"outcome"}) // ok | compensated | compensation_failed

	QueueTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "call_queue",
		Name:      "transitions_total",
		Help:      "Call queue status transitions.",
	}, []string{"from", "to"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncview",
		Name:      "fetch_duration_seconds",
		Help:      "Snapshot fetch latency of synchronized lists.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"entity"})
)
