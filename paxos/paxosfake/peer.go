// Package paxosfake provides hand-written test doubles for paxos.Peer: a
// struct with public fields recording what it was called with, backed by
// a real in-memory Acceptor/Learner pair rather than a mock framework.
package paxosfake

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/paxos"
)

// Peer is a fully functional in-memory paxos.Peer: Prepare/Accept/Learn
// really run against a real Acceptor/Learner over a MemDurableLog, so
// tests exercise the genuine Paxos state machine, not a stub. Delay and
// Err let a test inject latency or failure on every subsequent call.
type Peer struct {
	mut sync.Mutex

	id       uuid.UUID
	acceptor paxos.Acceptor
	learner  paxos.Learner

	Leading      bool      // returned by Ping
	ReportedUUID uuid.UUID // returned by GetUUID; defaults to id

	Delay    func(method string) // if set, called (and awaited) before every method runs
	Err      error                // if set, every method fails with this instead of running
	NumCalls map[string]int
}

// NewPeer builds a fake peer with a fresh backing log.
func NewPeer(id uuid.UUID) *Peer {
	log := paxos.NewMemDurableLog()
	return &Peer{
		id:           id,
		acceptor:     paxos.NewAcceptor(log),
		learner:      paxos.NewLearner(log),
		ReportedUUID: id,
		NumCalls:     map[string]int{},
	}
}

var _ paxos.Peer = (*Peer)(nil)

func (p *Peer) UUID() uuid.UUID { return p.id }

func (p *Peer) record(ctx context.Context, method string) error {
	p.mut.Lock()
	p.NumCalls[method]++
	delay, err := p.Delay, p.Err
	p.mut.Unlock()

	if delay != nil {
		delay(method)
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Peer) Prepare(ctx context.Context, seq paxos.SeqNum, n paxos.ProposalNumber) (paxos.PrepareResult, error) {
	if err := p.record(ctx, "Prepare"); err != nil {
		return paxos.PrepareResult{}, err
	}
	return p.acceptor.Prepare(seq, n)
}

func (p *Peer) Accept(ctx context.Context, seq paxos.SeqNum, n paxos.ProposalNumber, v paxos.Value) (paxos.AcceptResult, error) {
	if err := p.record(ctx, "Accept"); err != nil {
		return paxos.AcceptResult{}, err
	}
	return p.acceptor.Accept(seq, n, v)
}

func (p *Peer) Learn(ctx context.Context, seq paxos.SeqNum, v paxos.Value) error {
	if err := p.record(ctx, "Learn"); err != nil {
		return err
	}
	return p.learner.Learn(seq, v)
}

func (p *Peer) GetLearnedValuesSince(ctx context.Context, from paxos.SeqNum) ([]paxos.Value, error) {
	if err := p.record(ctx, "GetLearnedValuesSince"); err != nil {
		return nil, err
	}
	return p.learner.GetLearnedValuesSince(from), nil
}

func (p *Peer) LatestSequencePreparedOrAccepted(ctx context.Context) (paxos.SeqNum, error) {
	if err := p.record(ctx, "LatestSequencePreparedOrAccepted"); err != nil {
		return paxos.NoLogEntry, err
	}
	return p.acceptor.LatestSequencePreparedOrAccepted(), nil
}

func (p *Peer) Ping(ctx context.Context) (bool, error) {
	if err := p.record(ctx, "Ping"); err != nil {
		return false, err
	}
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.Leading, nil
}

func (p *Peer) GetUUID(ctx context.Context) (uuid.UUID, error) {
	if err := p.record(ctx, "GetUUID"); err != nil {
		return uuid.Nil, err
	}
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.ReportedUUID, nil
}

// CallCount reports how many times method was invoked.
func (p *Peer) CallCount(method string) int {
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.NumCalls[method]
}
