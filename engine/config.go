package engine

import "time"

// Flags is the closed set of indexing feature toggles from spec.md §6.
type Flags struct {
	// Transactions fetches and processes full transaction bodies.
	Transactions bool
	// RawEvents is carried in the configuration but no stage reads it:
	// raw-event rows are written only by processor.EventEmittedProcessor,
	// whatever this flag says.
	RawEvents bool
	// PendingBlocks polls the mempool's pending block once the engine has
	// caught up to the chain tip.
	PendingBlocks bool
}

// Config is the engine's numeric and feature configuration, per spec.md §6.
type Config struct {
	Flags Flags

	PollingInterval    time.Duration
	BatchChunkSize     int
	BlocksChunkSize    uint64
	EventsChunkSize    uint64
	MaxConcurrentTasks int
	WorldBlock         uint64

	// SubscriptionChannelSize bounds each subscriber's sink depth
	// (recommended 64-256, per spec.md §6).
	SubscriptionChannelSize int
}

// DefaultConfig returns the numeric defaults spec.md §6 lists.
func DefaultConfig() Config {
	return Config{
		PollingInterval:         500 * time.Millisecond,
		BatchChunkSize:          1024,
		BlocksChunkSize:         10240,
		EventsChunkSize:         1024,
		MaxConcurrentTasks:      100,
		SubscriptionChannelSize: 128,
	}
}

const (
	minBackoff = time.Second
	maxBackoff = 60 * time.Second
)
