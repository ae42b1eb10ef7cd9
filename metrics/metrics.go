// Package metrics declares the engine's gauges/counters, the same way
// chaindata_fetcher.go declares checkpointGauge, handledBlockNumberGauge,
// txsInsertionTimeGauge, traceAPIErrorCounter, etc. at package scope using
// github.com/rcrowley/go-metrics.
package metrics

import "github.com/rcrowley/go-metrics"

var (
	HeadBlockGauge        = metrics.NewRegisteredGauge("torii/engine/headBlock", nil)
	TickDurationGauge     = metrics.NewRegisteredGauge("torii/engine/tickDurationMs", nil)
	BackoffSecondsGauge   = metrics.NewRegisteredGauge("torii/engine/backoffSeconds", nil)
	TickErrorCounter      = metrics.NewRegisteredCounter("torii/engine/tickErrors", nil)
	EventsProcessedMeter  = metrics.NewRegisteredMeter("torii/engine/eventsProcessed", nil)
	TaskQueueDepthGauge   = metrics.NewRegisteredGauge("torii/task/queueDepth", nil)
	TaskInFlightGauge     = metrics.NewRegisteredGauge("torii/task/inFlight", nil)
	SubscriberCountGauge  = metrics.NewRegisteredGauge("torii/broker/subscribers", nil)
	SlowSubscriberCounter = metrics.NewRegisteredCounter("torii/broker/slowSubscribersEvicted", nil)
	MetadataFetchMeter    = metrics.NewRegisteredMeter("torii/metadata/fetches", nil)
	MetadataFailureMeter  = metrics.NewRegisteredMeter("torii/metadata/failures", nil)
)
