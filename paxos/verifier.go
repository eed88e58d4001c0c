package paxos

import (
	"context"
	"sync"
	"time"

	"github.com/atlaspaxos/leaderelection/internal/keycond"
)

// LatestRoundStatus is the coalescing verifier's answer for one seq.
type LatestRoundStatus int

const (
	Latest LatestRoundStatus = iota + 1
	NotLatest
	VerifierNoQuorum
)

// LatestRoundVerifier answers "is seq still the latest round?" by asking a
// quorum of acceptors for their own idea of the latest prepared/accepted
// seq.
type LatestRoundVerifier interface {
	IsLatestRound(ctx context.Context, seq SeqNum) (LatestRoundStatus, error)
}

// quorumVerifier is one fresh wave: it asks every acceptor peer for
// LatestSequencePreparedOrAccepted and answers Latest iff no acceptor in
// the responding quorum reports a seq greater than the one being checked.
type quorumVerifier struct {
	acceptors   []Peer
	executorFor ExecutorFor
	deadline    time.Duration
}

// NewQuorumLatestRoundVerifier builds the uncoalesced, one-wave-per-call
// verifier. Wrap it with NewCoalescingLatestRoundVerifier to get
// batching behavior across concurrent callers.
func NewQuorumLatestRoundVerifier(acceptors []Peer, executorFor ExecutorFor, deadline time.Duration) LatestRoundVerifier {
	return &quorumVerifier{
		acceptors:   acceptors,
		executorFor: executorFor,
		deadline:    deadline,
	}
}

func (v *quorumVerifier) IsLatestRound(ctx context.Context, seq SeqNum) (LatestRoundStatus, error) {
	state := CollectUntil(
		ctx,
		v.acceptors,
		v.executorFor,
		v.deadline,
		func(ctx context.Context, p Peer) (SeqNum, error) {
			return p.LatestSequencePreparedOrAccepted(ctx)
		},
		AtLeastQuorum[SeqNum],
	)

	if !state.HasQuorum() {
		return VerifierNoQuorum, nil
	}

	for _, reported := range state.Responses {
		if reported > seq {
			return NotLatest, nil
		}
	}
	return Latest, nil
}

// waveResult is the outcome of one in-flight or completed wave, shared by
// pointer with every caller that joined it.
type waveResult struct {
	done   bool
	status LatestRoundStatus
	err    error
}

// CoalescingLatestRoundVerifier batches concurrent callers asking about
// the same seq into a single in-flight RPC wave. Waves are never cached
// across calls: once a wave finishes, the next caller for that seq
// starts a fresh one.
type CoalescingLatestRoundVerifier struct {
	mut      sync.Mutex
	cond     *keycond.KeyCond[SeqNum]
	inFlight map[SeqNum]*waveResult
	base     LatestRoundVerifier
}

var _ LatestRoundVerifier = (*CoalescingLatestRoundVerifier)(nil)

// NewCoalescingLatestRoundVerifier wraps base with wave coalescing.
func NewCoalescingLatestRoundVerifier(base LatestRoundVerifier) *CoalescingLatestRoundVerifier {
	v := &CoalescingLatestRoundVerifier{
		inFlight: map[SeqNum]*waveResult{},
		base:     base,
	}
	v.cond = keycond.New[SeqNum](&v.mut)
	return v
}

func (v *CoalescingLatestRoundVerifier) IsLatestRound(ctx context.Context, seq SeqNum) (LatestRoundStatus, error) {
	v.mut.Lock()

	wave, inFlight := v.inFlight[seq]
	if !inFlight {
		wave = &waveResult{}
		v.inFlight[seq] = wave
		v.mut.Unlock()

		status, err := v.base.IsLatestRound(ctx, seq)

		v.mut.Lock()
		wave.done, wave.status, wave.err = true, status, err
		delete(v.inFlight, seq)
		v.cond.Signal(seq)
		v.mut.Unlock()

		return status, err
	}

	for !wave.done {
		if err := v.cond.Wait(ctx, seq); err != nil {
			v.mut.Unlock()
			return 0, err
		}
	}
	v.mut.Unlock()

	return wave.status, wave.err
}

// NumInFlightWaves reports how many distinct seqs currently have a wave in
// flight. Exposed for tests asserting the "one wave per seq" property.
func (v *CoalescingLatestRoundVerifier) NumInFlightWaves() int {
	v.mut.Lock()
	defer v.mut.Unlock()
	return len(v.inFlight)
}
