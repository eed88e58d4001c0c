package paxos

import (
	"context"

	"github.com/google/uuid"
)

// Peer is the full capability set of every cluster member, whether it
// is reached in-process (self) or over a transport (remote). Callers
// route to the right implementation through this interface rather than
// through inheritance; see peernet.Local and peernet.RPCPeer.
type Peer interface {
	// UUID returns the identity this peer was configured under (the
	// address book entry). It never blocks and never fails. GetUUID, in
	// contrast, asks the peer over the wire what it believes its own
	// identity is; the two can disagree if the cluster is misconfigured.
	UUID() uuid.UUID

	Prepare(ctx context.Context, seq SeqNum, n ProposalNumber) (PrepareResult, error)
	Accept(ctx context.Context, seq SeqNum, n ProposalNumber, v Value) (AcceptResult, error)
	Learn(ctx context.Context, seq SeqNum, v Value) error
	GetLearnedValuesSince(ctx context.Context, from SeqNum) ([]Value, error)
	LatestSequencePreparedOrAccepted(ctx context.Context) (SeqNum, error)

	// Ping reports whether the peer believes itself to be the leader for
	// its own greatest-learned value.
	Ping(ctx context.Context) (bool, error)

	// GetUUID asks the peer, over its transport, what its own identity
	// is. Used to resolve a suspected leader's UUID to a concrete Peer
	// and to detect UUID misconfiguration.
	GetUUID(ctx context.Context) (uuid.UUID, error)
}
