package paxos

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Proposer drives a two-phase Paxos round against a fixed set of remote
// acceptors and learners. A single Proposer is only ever used by one node,
// but Propose is safe to call concurrently: ballots are generated with an
// atomic counter so two concurrent calls never collide.
type Proposer interface {
	UUID() uuid.UUID

	// Propose drives seq to a chosen value, adopting the highest-ballot
	// value that any promising acceptor reports as already accepted, or
	// payload if none does. It returns the value
	// that ended up chosen (which may differ from payload) or wraps
	// ErrRoundFailure.
	Propose(ctx context.Context, seq SeqNum, payload []byte) (Value, error)

	// ProposeAnonymously behaves like Propose but always proposes
	// NoLeaderUUID as the leader, used by StepDown to relinquish
	// leadership without electing anyone in particular.
	ProposeAnonymously(ctx context.Context, seq SeqNum, payload []byte) (Value, error)
}

type proposerImpl struct {
	uuid   uuid.UUID
	ballot int64 // atomic, last ballot number issued

	acceptors   []Peer
	learners    []Peer
	executorFor ExecutorFor
	deadline    time.Duration
}

// ProposerConfig configures a Proposer.
type ProposerConfig struct {
	UUID          uuid.UUID
	Acceptors     []Peer
	Learners      []Peer
	ExecutorFor   ExecutorFor
	RoundDeadline time.Duration
}

// NewProposer builds a Proposer from cfg.
func NewProposer(cfg ProposerConfig) Proposer {
	return &proposerImpl{
		uuid:        cfg.UUID,
		acceptors:   cfg.Acceptors,
		learners:    cfg.Learners,
		executorFor: cfg.ExecutorFor,
		deadline:    cfg.RoundDeadline,
	}
}

func (p *proposerImpl) UUID() uuid.UUID {
	return p.uuid
}

func (p *proposerImpl) Propose(ctx context.Context, seq SeqNum, payload []byte) (Value, error) {
	return p.propose(ctx, seq, Value{Round: seq, LeaderUUID: p.uuid, Payload: payload})
}

func (p *proposerImpl) ProposeAnonymously(ctx context.Context, seq SeqNum, payload []byte) (Value, error) {
	return p.propose(ctx, seq, Value{Round: seq, LeaderUUID: NoLeaderUUID, Payload: payload})
}

func (p *proposerImpl) nextBallot() ProposalNumber {
	n := atomic.AddInt64(&p.ballot, 1)
	return ProposalNumber{Number: n, ProposerUUID: p.uuid}
}

func (p *proposerImpl) propose(ctx context.Context, seq SeqNum, wanted Value) (Value, error) {
	ballot := p.nextBallot()

	accepted, hasAccepted, acceptedVal, err := p.runPreparePhase(ctx, seq, ballot)
	if err != nil {
		return Value{}, &RoundFailureError{Seq: seq, Ballot: ballot, Cause: err}
	}
	if !accepted {
		return Value{}, &RoundFailureError{Seq: seq, Ballot: ballot, Cause: ErrRoundFailure}
	}

	valueToPropose := wanted
	if hasAccepted {
		// Safety rule: a value already accepted by even one acceptor
		// might already be chosen; we must not risk overwriting it.
		valueToPropose = acceptedVal
	}

	accepted, err = p.runAcceptPhase(ctx, seq, ballot, valueToPropose)
	if err != nil {
		return Value{}, &RoundFailureError{Seq: seq, Ballot: ballot, Cause: err}
	}
	if !accepted {
		return Value{}, &RoundFailureError{Seq: seq, Ballot: ballot, Cause: ErrRoundFailure}
	}

	p.notifyLearners(ctx, seq, valueToPropose)

	return valueToPropose, nil
}

// runPreparePhase returns whether quorum promised, whether any promise
// carried a previously-accepted value, and if so the highest-ballot one.
func (p *proposerImpl) runPreparePhase(
	ctx context.Context, seq SeqNum, ballot ProposalNumber,
) (quorum bool, hasAccepted bool, acceptedVal Value, err error) {
	state := CollectUntil(
		ctx,
		p.acceptors,
		p.executorFor,
		p.deadline,
		func(ctx context.Context, peer Peer) (PrepareResult, error) {
			return peer.Prepare(ctx, seq, ballot)
		},
		AtLeastQuorum[PrepareResult],
	)

	if !state.HasQuorum() {
		return false, false, Value{}, ErrNoQuorum
	}

	var highest ProposalNumber
	for _, resp := range state.Responses {
		if !resp.Promised {
			return false, false, Value{}, nil
		}
		if resp.HasAccepted && resp.AcceptedNum.GreaterThan(highest) {
			highest = resp.AcceptedNum
			hasAccepted = true
			acceptedVal = resp.AcceptedVal
		}
	}

	return true, hasAccepted, acceptedVal, nil
}

func (p *proposerImpl) runAcceptPhase(
	ctx context.Context, seq SeqNum, ballot ProposalNumber, v Value,
) (bool, error) {
	state := CollectUntil(
		ctx,
		p.acceptors,
		p.executorFor,
		p.deadline,
		func(ctx context.Context, peer Peer) (AcceptResult, error) {
			return peer.Accept(ctx, seq, ballot, v)
		},
		AtLeastQuorum[AcceptResult],
	)

	if !state.HasQuorum() {
		return false, nil
	}
	for _, resp := range state.Responses {
		if !resp.Accepted {
			return false, nil
		}
	}
	return true, nil
}

// notifyLearners is best-effort: it waits, up to the round deadline, for
// every learner to answer and ignores failures; a learner that misses the
// notification will pick the value up through catch-up instead.
func (p *proposerImpl) notifyLearners(ctx context.Context, seq SeqNum, v Value) {
	CollectUntil(
		ctx,
		p.learners,
		p.executorFor,
		p.deadline,
		func(ctx context.Context, learner Peer) (struct{}, error) {
			return struct{}{}, learner.Learn(ctx, seq, v)
		},
		func(state QuorumState[struct{}]) bool { return state.AllResponded() },
	)
}
