// Package metrics exposes Prometheus instrumentation for the engine.
// Scraped via the API server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_influence_updates_accepted_total",
		Help: "Influence mutations accepted by the territorial authority.",
	})
	UpdatesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_influence_updates_rejected_total",
		Help: "Influence mutations rejected for invalid arguments.",
	})
	ControlFlips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_control_flips_total",
		Help: "Territories whose dominant faction changed.",
	})
	ContestTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_contest_transitions_total",
		Help: "Territories entering or leaving contested status.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_events_dropped_total",
		Help: "Territorial events dropped because the dispatch queue was full.",
	})
	ExtractionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_extractions_started_total",
		Help: "Extraction attempts started.",
	})
	ExtractionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_extractions_completed_total",
		Help: "Extractions that ran to completion (success or failed roll).",
	})
	ExtractionsCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_extractions_canceled_total",
		Help: "Extractions canceled before completion.",
	})
	BroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_broadcast_drops_total",
		Help: "Messages dropped on slow websocket subscribers.",
	})
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_persist_failures_total",
		Help: "Persistence flushes that failed after retries.",
	})
	AIDecisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warfront_ai_decisions_total",
		Help: "Decisions emitted by faction AI behaviors.",
	})
)
