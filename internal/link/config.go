package link

import "time"

// Config defines the initiator's exchange timeouts. The defaults mirror the
// device firmware contract: short simple actions, longer chunk acks, and a
// generous window for ActionOpen, which may erase flash before replying.
type Config struct {
	DefaultTimeout time.Duration
	ChunkTimeout   time.Duration
	XferTimeout    time.Duration
	SyncTimeout    time.Duration
	SyncTries      int
	// ChunkResends bounds resends of one chunk after a dropped ack. Resends
	// are idempotent on the responder.
	ChunkResends int
}

func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 250 * time.Millisecond,
		ChunkTimeout:   500 * time.Millisecond,
		XferTimeout:    10 * time.Second,
		SyncTimeout:    500 * time.Millisecond,
		SyncTries:      3,
		ChunkResends:   2,
	}
}
