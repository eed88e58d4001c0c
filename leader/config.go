package leader

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config holds the tunables for the election service. QuorumSize is
// deliberately absent: it is derived from the peer list's length at
// construction time, never configured directly.
type Config struct {
	// UpdatePollingRate is how long to sleep after a successful leader
	// ping before re-checking leadership state.
	UpdatePollingRate time.Duration

	// RandomWaitBeforeProposing bounds the uniform jitter applied before
	// proposing leadership, to avoid dueling proposers.
	RandomWaitBeforeProposing time.Duration

	// LeaderPingResponseWait is the deadline for a single leader ping,
	// and for the identity probe used to resolve a suspected leader.
	LeaderPingResponseWait time.Duration

	// ProposerUUID is this node's stable identity. It must be unique
	// across the cluster and should be persisted across restarts.
	ProposerUUID uuid.UUID
}

// Option customizes a Config built by New.
type Option func(*Config)

func WithUpdatePollingRate(d time.Duration) Option {
	return func(c *Config) { c.UpdatePollingRate = d }
}

func WithRandomWaitBeforeProposing(d time.Duration) Option {
	return func(c *Config) { c.RandomWaitBeforeProposing = d }
}

func WithLeaderPingResponseWait(d time.Duration) Option {
	return func(c *Config) { c.LeaderPingResponseWait = d }
}

const (
	defaultUpdatePollingRate         = 100 * time.Millisecond
	defaultRandomWaitBeforeProposing = 200 * time.Millisecond
	defaultLeaderPingResponseWait    = 5 * time.Second
)

func defaultConfig(proposerUUID uuid.UUID) Config {
	return Config{
		UpdatePollingRate:         defaultUpdatePollingRate,
		RandomWaitBeforeProposing: defaultRandomWaitBeforeProposing,
		LeaderPingResponseWait:    defaultLeaderPingResponseWait,
		ProposerUUID:              proposerUUID,
	}
}

func (c Config) validate() error {
	if c.ProposerUUID == uuid.Nil {
		return fmt.Errorf("leader: ProposerUUID must not be the nil UUID")
	}
	if c.UpdatePollingRate <= 0 {
		return fmt.Errorf("leader: UpdatePollingRate must be positive")
	}
	if c.RandomWaitBeforeProposing <= 0 {
		return fmt.Errorf("leader: RandomWaitBeforeProposing must be positive")
	}
	if c.LeaderPingResponseWait <= 0 {
		return fmt.Errorf("leader: LeaderPingResponseWait must be positive")
	}
	return nil
}
