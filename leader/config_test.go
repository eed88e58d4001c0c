package leader

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := defaultConfig(uuid.New())
	assert.NoError(t, cfg.validate())
}

func TestConfig_ValidateRejectsNilUUID(t *testing.T) {
	cfg := defaultConfig(uuid.Nil)
	assert.Error(t, cfg.validate())
}

func TestConfig_ValidateRejectsNonPositiveDurations(t *testing.T) {
	base := defaultConfig(uuid.New())

	cfg := base
	cfg.UpdatePollingRate = 0
	assert.Error(t, cfg.validate())

	cfg = base
	cfg.RandomWaitBeforeProposing = -time.Second
	assert.Error(t, cfg.validate())

	cfg = base
	cfg.LeaderPingResponseWait = 0
	assert.Error(t, cfg.validate())
}

func TestOptions_OverrideDefaults(t *testing.T) {
	cfg := defaultConfig(uuid.New())
	WithUpdatePollingRate(7 * time.Second)(&cfg)
	WithRandomWaitBeforeProposing(3 * time.Second)(&cfg)
	WithLeaderPingResponseWait(9 * time.Second)(&cfg)

	assert.Equal(t, 7*time.Second, cfg.UpdatePollingRate)
	assert.Equal(t, 3*time.Second, cfg.RandomWaitBeforeProposing)
	assert.Equal(t, 9*time.Second, cfg.LeaderPingResponseWait)
}
