package simtest

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/paxos"
)

// ErrNodeDown is returned by every method on a killed node's peer.
var ErrNodeDown = errors.New("simtest: node is down")

// switchablePeer lets a test kill and revive a node without tearing
// down and rebuilding the whole cluster's peer lists (which every other
// node's Proposer/Verifier/Service already captured a reference to).
type switchablePeer struct {
	node *Node
	real paxos.Peer
}

var _ paxos.Peer = (*switchablePeer)(nil)

func (p *switchablePeer) UUID() uuid.UUID { return p.node.UUID }

func (p *switchablePeer) Prepare(ctx context.Context, seq paxos.SeqNum, n paxos.ProposalNumber) (paxos.PrepareResult, error) {
	if p.node.down {
		return paxos.PrepareResult{}, ErrNodeDown
	}
	return p.real.Prepare(ctx, seq, n)
}

func (p *switchablePeer) Accept(ctx context.Context, seq paxos.SeqNum, n paxos.ProposalNumber, v paxos.Value) (paxos.AcceptResult, error) {
	if p.node.down {
		return paxos.AcceptResult{}, ErrNodeDown
	}
	return p.real.Accept(ctx, seq, n, v)
}

func (p *switchablePeer) Learn(ctx context.Context, seq paxos.SeqNum, v paxos.Value) error {
	if p.node.down {
		return ErrNodeDown
	}
	return p.real.Learn(ctx, seq, v)
}

func (p *switchablePeer) GetLearnedValuesSince(ctx context.Context, from paxos.SeqNum) ([]paxos.Value, error) {
	if p.node.down {
		return nil, ErrNodeDown
	}
	return p.real.GetLearnedValuesSince(ctx, from)
}

func (p *switchablePeer) LatestSequencePreparedOrAccepted(ctx context.Context) (paxos.SeqNum, error) {
	if p.node.down {
		return paxos.NoLogEntry, ErrNodeDown
	}
	return p.real.LatestSequencePreparedOrAccepted(ctx)
}

func (p *switchablePeer) Ping(ctx context.Context) (bool, error) {
	if p.node.down {
		return false, ErrNodeDown
	}
	return p.real.Ping(ctx)
}

func (p *switchablePeer) GetUUID(ctx context.Context) (uuid.UUID, error) {
	if p.node.down {
		return uuid.Nil, ErrNodeDown
	}
	return p.real.GetUUID(ctx)
}
