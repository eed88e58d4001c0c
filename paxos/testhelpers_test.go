package paxos

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memPeer is a real, in-memory Peer (backed by a genuine Acceptor and
// Learner) used across this package's tests for CollectUntil, the
// verifier, and the proposer. It is kept local because these tests are in
// package paxos itself, and importing paxosfake (which imports paxos)
// from here would be an import cycle.
type memPeer struct {
	mut sync.Mutex

	id           uuid.UUID
	reportedUUID uuid.UUID // what GetUUID answers; defaults to id
	acceptor     Acceptor
	learner      Learner

	fail  error
	block chan struct{} // if non-nil, every call waits for it to close first
}

func newMemPeer() *memPeer {
	log := NewMemDurableLog()
	id := uuid.New()
	return &memPeer{
		id:           id,
		reportedUUID: id,
		acceptor:     NewAcceptor(log),
		learner:      NewLearner(log),
	}
}

func (p *memPeer) setFail(err error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	p.fail = err
}

func (p *memPeer) hang() {
	p.mut.Lock()
	defer p.mut.Unlock()
	p.block = make(chan struct{})
}

func (p *memPeer) release() {
	p.mut.Lock()
	ch := p.block
	p.mut.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (p *memPeer) wait(ctx context.Context) error {
	p.mut.Lock()
	ch, err := p.block, p.fail
	p.mut.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (p *memPeer) UUID() uuid.UUID { return p.id }

func (p *memPeer) Prepare(ctx context.Context, seq SeqNum, n ProposalNumber) (PrepareResult, error) {
	if err := p.wait(ctx); err != nil {
		return PrepareResult{}, err
	}
	return p.acceptor.Prepare(seq, n)
}

func (p *memPeer) Accept(ctx context.Context, seq SeqNum, n ProposalNumber, v Value) (AcceptResult, error) {
	if err := p.wait(ctx); err != nil {
		return AcceptResult{}, err
	}
	return p.acceptor.Accept(seq, n, v)
}

func (p *memPeer) Learn(ctx context.Context, seq SeqNum, v Value) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.learner.Learn(seq, v)
}

func (p *memPeer) GetLearnedValuesSince(ctx context.Context, from SeqNum) ([]Value, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.learner.GetLearnedValuesSince(from), nil
}

func (p *memPeer) LatestSequencePreparedOrAccepted(ctx context.Context) (SeqNum, error) {
	if err := p.wait(ctx); err != nil {
		return NoLogEntry, err
	}
	return p.acceptor.LatestSequencePreparedOrAccepted(), nil
}

func (p *memPeer) Ping(ctx context.Context) (bool, error) {
	if err := p.wait(ctx); err != nil {
		return false, err
	}
	return false, nil
}

func (p *memPeer) GetUUID(ctx context.Context) (uuid.UUID, error) {
	if err := p.wait(ctx); err != nil {
		return uuid.Nil, err
	}
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.reportedUUID, nil
}

var _ Peer = (*memPeer)(nil)
