package leader

import (
	"sync"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/paxos"
)

// identityCache maps a peer's self-reported UUID to the transport handle
// that reported it. The mapping is injective and never includes this
// node's own UUID. Binding is putIfAbsent — the first claim for a UUID
// wins; a later, different claim is a fatal misconfiguration, not
// silently overwritten.
type identityCache struct {
	mut    sync.RWMutex
	self   uuid.UUID
	byUUID map[uuid.UUID]paxos.Peer
}

func newIdentityCache(self uuid.UUID) *identityCache {
	return &identityCache{
		self:   self,
		byUUID: map[uuid.UUID]paxos.Peer{},
	}
}

func (c *identityCache) get(id uuid.UUID) (paxos.Peer, bool) {
	c.mut.RLock()
	defer c.mut.RUnlock()
	p, ok := c.byUUID[id]
	return p, ok
}

// putIfAbsent records that peer claims identity id. It fails fatally if
// id is this node's own UUID, or if id is already bound to a different
// peer than the one given.
func (c *identityCache) putIfAbsent(id uuid.UUID, peer paxos.Peer) error {
	if id == c.self {
		return &paxos.MisconfigurationError{ClaimedUUID: id, SelfClaim: true}
	}

	c.mut.Lock()
	defer c.mut.Unlock()

	if existing, ok := c.byUUID[id]; ok {
		if existing != peer {
			return &paxos.MisconfigurationError{ClaimedUUID: id}
		}
		return nil
	}
	c.byUUID[id] = peer
	return nil
}
