package paxos

import (
	"context"
	"time"
)

// Executor runs work for one peer. Implementations own the isolation
// guarantee: a slow or blocked peer's requests must never stall
// requests to any other peer. See peernet.Pool for the production
// implementation (one bounded worker goroutine per peer).
type Executor interface {
	Go(fn func())
}

// GoExecutor is the trivial Executor: every call gets its own goroutine.
// It provides no back-pressure, but it does provide the isolation
// guarantee, which is all CollectUntil requires.
type GoExecutor struct{}

func (GoExecutor) Go(fn func()) { go fn() }

// ExecutorFor selects the per-peer Executor to run a request on. Passing
// a function rather than a static map lets callers key executors however
// they like (by UUID, by peer identity, ...).
type ExecutorFor func(p Peer) Executor

// SameExecutorForAll returns an ExecutorFor that always uses e; handy for
// tests and for GoExecutor{}.
func SameExecutorForAll(e Executor) ExecutorFor {
	return func(Peer) Executor { return e }
}

// PeerResult pairs a peer with the outcome of one request sent to it.
type PeerResult[T any] struct {
	Peer  Peer
	Value T
}

// QuorumState is the running tally CollectUntil hands to the predicate and
// returns to the caller: the responses collected so far, keyed by
// responding peer, plus which peers have failed or not yet responded.
type QuorumState[T any] struct {
	Responses map[Peer]T
	Failed    map[Peer]error
	Total     int
}

// NumResponded reports how many peers have answered successfully.
func (s QuorumState[T]) NumResponded() int {
	return len(s.Responses)
}

// HasQuorum reports whether at least floor(Total/2)+1 peers answered.
func (s QuorumState[T]) HasQuorum() bool {
	return s.NumResponded() >= QuorumSize(s.Total)
}

// AllResponded reports whether every peer has either answered or failed.
func (s QuorumState[T]) AllResponded() bool {
	return len(s.Responses)+len(s.Failed) >= s.Total
}

// CollectUntil is the Network Client (C4) fanned out through the Quorum
// Checker (C5): it dispatches request to every peer on its own executor,
// accumulates successful responses, and returns as soon as either the
// predicate holds over the current state, every peer has responded or
// failed, or the deadline elapses. Requests still outstanding at that
// point are cancelled (via ctx) but never awaited.
func CollectUntil[T any](
	ctx context.Context,
	peers []Peer,
	executorFor ExecutorFor,
	deadline time.Duration,
	request func(ctx context.Context, p Peer) (T, error),
	predicate func(QuorumState[T]) bool,
) QuorumState[T] {
	reqCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type update struct {
		peer  Peer
		value T
		err   error
	}
	updates := make(chan update, len(peers))

	for _, p := range peers {
		p := p
		executorFor(p).Go(func() {
			v, err := request(reqCtx, p)
			select {
			case updates <- update{peer: p, value: v, err: err}:
			case <-reqCtx.Done():
			}
		})
	}

	state := QuorumState[T]{
		Responses: map[Peer]T{},
		Failed:    map[Peer]error{},
		Total:     len(peers),
	}

	if predicate(state) {
		return state
	}

	for {
		select {
		case u := <-updates:
			if u.err != nil {
				state.Failed[u.peer] = u.err
			} else {
				state.Responses[u.peer] = u.value
			}

			if predicate(state) || state.AllResponded() {
				return state
			}

		case <-reqCtx.Done():
			return state
		}
	}
}

// AtLeastQuorum is the standard predicate: stop as soon as a majority of
// all peers (including self) has responded.
func AtLeastQuorum[T any](state QuorumState[T]) bool {
	return state.HasQuorum()
}

// AnyResponseMatches builds a predicate that stops the wave the moment any
// response satisfies match; used for the suspected-leader UUID probe.
func AnyResponseMatches[T any](match func(T) bool) func(QuorumState[T]) bool {
	return func(state QuorumState[T]) bool {
		for _, v := range state.Responses {
			if match(v) {
				return true
			}
		}
		return false
	}
}
