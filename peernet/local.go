// Package peernet supplies the two paxos.Peer implementations a node
// needs: Local, a zero-cost wrapper around this process's own
// Acceptor/Learner (no RPC, no executor needed), and RPCPeer, a
// net/rpc-based client for every other cluster member. Pool supplies the
// per-peer executor isolation paxos.CollectUntil requires.
package peernet

import (
	"context"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/paxos"
)

// Local implements paxos.Peer over this process's own Acceptor and
// Learner, calling straight through with no serialization and no network
// hop. A node always includes itself in its acceptor/learner/proposer
// peer lists via a Local, never via an RPCPeer.
type Local struct {
	uuid      uuid.UUID
	acceptor  paxos.Acceptor
	learner   paxos.Learner
	isLeading func() bool
}

// NewLocal builds the self peer. isLeading is called by Ping and should
// report whether the owning node currently holds a live leadership token
// for its own greatest learned value; it may be nil until the owning
// leader-election service has finished constructing itself, in which
// case Ping reports false.
func NewLocal(id uuid.UUID, acceptor paxos.Acceptor, learner paxos.Learner, isLeading func() bool) *Local {
	return &Local{uuid: id, acceptor: acceptor, learner: learner, isLeading: isLeading}
}

func (l *Local) UUID() uuid.UUID { return l.uuid }

func (l *Local) Prepare(_ context.Context, seq paxos.SeqNum, n paxos.ProposalNumber) (paxos.PrepareResult, error) {
	return l.acceptor.Prepare(seq, n)
}

func (l *Local) Accept(_ context.Context, seq paxos.SeqNum, n paxos.ProposalNumber, v paxos.Value) (paxos.AcceptResult, error) {
	return l.acceptor.Accept(seq, n, v)
}

func (l *Local) Learn(_ context.Context, seq paxos.SeqNum, v paxos.Value) error {
	return l.learner.Learn(seq, v)
}

func (l *Local) GetLearnedValuesSince(_ context.Context, from paxos.SeqNum) ([]paxos.Value, error) {
	return l.learner.GetLearnedValuesSince(from), nil
}

func (l *Local) LatestSequencePreparedOrAccepted(_ context.Context) (paxos.SeqNum, error) {
	return l.acceptor.LatestSequencePreparedOrAccepted(), nil
}

func (l *Local) Ping(_ context.Context) (bool, error) {
	if l.isLeading == nil {
		return false, nil
	}
	return l.isLeading(), nil
}

// GetUUID always reports the local process's own identity honestly.
func (l *Local) GetUUID(_ context.Context) (uuid.UUID, error) {
	return l.uuid, nil
}
