package leader

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/atlaspaxos/leaderelection/paxos/paxosfake"
)

func TestIdentityCache_PutThenGet(t *testing.T) {
	self := uuid.New()
	cache := newIdentityCache(self)

	peer := paxosfake.NewPeer(uuid.New())
	id := uuid.New()

	assert.NoError(t, cache.putIfAbsent(id, peer))

	got, ok := cache.get(id)
	assert.True(t, ok)
	assert.Equal(t, peer, got)
}

func TestIdentityCache_RepeatedBindOfSamePeerIsFine(t *testing.T) {
	self := uuid.New()
	cache := newIdentityCache(self)

	peer := paxosfake.NewPeer(uuid.New())
	id := uuid.New()

	assert.NoError(t, cache.putIfAbsent(id, peer))
	assert.NoError(t, cache.putIfAbsent(id, peer))
}

func TestIdentityCache_ConflictingBindIsFatal(t *testing.T) {
	self := uuid.New()
	cache := newIdentityCache(self)

	id := uuid.New()
	peerA := paxosfake.NewPeer(uuid.New())
	peerB := paxosfake.NewPeer(uuid.New())

	assert.NoError(t, cache.putIfAbsent(id, peerA))
	assert.Error(t, cache.putIfAbsent(id, peerB))
}

func TestIdentityCache_ClaimingSelfUUIDIsFatal(t *testing.T) {
	self := uuid.New()
	cache := newIdentityCache(self)

	peer := paxosfake.NewPeer(uuid.New())
	assert.Error(t, cache.putIfAbsent(self, peer))
}
