// Package leader implements the Leader Election Service orchestrator
// and its event recorder: the main observe/ping/catch-up/propose loop
// built on top of package paxos and package peernet.
package leader

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/paxos"
)

// ErrMisconfigured wraps a *paxos.MisconfigurationError so callers can
// errors.Is against a stable sentinel in addition to errors.As-ing the
// concrete type for its fields.
var ErrMisconfigured = errors.New("leader: fatal cluster misconfiguration")

// Deps are the collaborators a Service is built from. All fields are
// required; Acceptors and Learners should each include Self exactly
// once (as the distinguished local, non-RPC peer — see peernet.Local).
type Deps struct {
	Self        paxos.Peer
	Acceptors   []paxos.Peer
	Learners    []paxos.Peer
	Learner     paxos.Learner
	Proposer    paxos.Proposer
	Verifier    paxos.LatestRoundVerifier
	ExecutorFor paxos.ExecutorFor
}

// Service is the election orchestrator: it owns the peer lists, the peer
// identity cache, and the single lock serializing local proposal
// decisions.
type Service struct {
	proposeMu sync.Mutex

	deps Deps
	cfg  Config

	cache    *identityCache
	recorder *EventRecorder

	randMu sync.Mutex
	rand   *rand.Rand
}

// New builds a Service. It validates cfg (after applying opts) and
// rejects a Deps with no acceptors, since a quorum can never form.
func New(deps Deps, opts ...Option) (*Service, error) {
	cfg := defaultConfig(deps.Self.UUID())
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(deps.Acceptors) == 0 {
		return nil, fmt.Errorf("leader: at least one acceptor (including self) is required")
	}

	id := cfg.ProposerUUID
	seed := int64(binary.BigEndian.Uint64(id[:8]))

	return &Service{
		deps:     deps,
		cfg:      cfg,
		cache:    newIdentityCache(cfg.ProposerUUID),
		recorder: newEventRecorder(),
		rand:     rand.New(rand.NewSource(seed)),
	}, nil
}

// GetUUID returns this node's stable identity.
func (s *Service) GetUUID() string {
	return s.cfg.ProposerUUID.String()
}

// Acceptors returns a copy of the acceptor peer list this service was
// built with, for callers such as health checks that need it.
func (s *Service) Acceptors() []paxos.Peer {
	out := make([]paxos.Peer, len(s.deps.Acceptors))
	copy(out, s.deps.Acceptors)
	return out
}

// Ping reports whether this node is the leader for its own greatest
// learned value. It never blocks on the network: peernet.Local wires
// this method directly into the RPC surface remote nodes call.
func (s *Service) Ping() bool {
	greatest, ok := s.deps.Learner.GetGreatestLearnedValue()
	return ok && greatest.LeaderUUID == s.cfg.ProposerUUID
}

// BlockOnBecomingLeader blocks until this node holds a confirmed
// leadership token, or ctx is cancelled. It never returns a partial or
// stale token: NoQuorum is retried immediately, NotLeading drives one
// iteration of ProposeOrWait before re-observing.
func (s *Service) BlockOnBecomingLeader(ctx context.Context) (*Token, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		state := s.determineLeadershipState(ctx)
		switch state.Status {
		case Leading:
			return &Token{value: *state.GreatestLearned}, nil

		case NoQuorum:
			s.recorder.NoQuorumObserved()
			continue

		case NotLeading:
			s.recorder.NotLeadingObserved()
			if err := s.proposeOrWait(ctx, state.GreatestLearned); err != nil {
				return nil, err
			}
		}
	}
}

// GetCurrentTokenIfLeading is a non-blocking snapshot of BlockOnBecomingLeader.
func (s *Service) GetCurrentTokenIfLeading(ctx context.Context) *Token {
	state := s.determineLeadershipState(ctx)
	if state.Status != Leading {
		return nil
	}
	return &Token{value: *state.GreatestLearned}
}

// IsStillLeading re-validates token against a fresh quorum wave. Per I4,
// a token is fresh only while its seq is still the greatest learned
// value everywhere a quorum can see.
func (s *Service) IsStillLeading(ctx context.Context, token *Token) (Status, error) {
	status, err := s.deps.Verifier.IsLatestRound(ctx, token.value.Round)
	if err != nil {
		return NoQuorum, err
	}

	switch status {
	case paxos.Latest:
		local, ok := s.deps.Learner.GetGreatestLearnedValue()
		if !ok || local.Round != token.value.Round {
			return NotLeading, nil
		}
		return Leading, nil
	case paxos.VerifierNoQuorum:
		return NoQuorum, nil
	default:
		return NotLeading, nil
	}
}

// StepDown relinquishes leadership if currently held: it proposes an
// anonymous value at the next seq. Returns false, ErrServiceUnavailable-
// wrapped if quorum cannot be reached; false, nil if this node was not
// leading to begin with.
func (s *Service) StepDown(ctx context.Context) (bool, error) {
	state := s.determineLeadershipState(ctx)
	if state.Status != Leading {
		return false, nil
	}

	s.proposeMu.Lock()
	defer s.proposeMu.Unlock()

	seq := paxos.NextSeq(state.GreatestLearned)
	v, err := s.deps.Proposer.ProposeAnonymously(ctx, seq, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", paxos.ErrServiceUnavailable, err)
	}
	s.recorder.SteppedDown(v)
	return true, nil
}

func (s *Service) determineLeadershipState(ctx context.Context) LeadershipState {
	greatest, ok := s.deps.Learner.GetGreatestLearnedValue()
	var ptr *paxos.Value
	if ok {
		ptr = &greatest
	}
	return LeadershipState{
		GreatestLearned: ptr,
		Status:          s.determineLeadershipStatus(ctx, ptr),
	}
}

// determineLeadershipStatus reports NotLeading unless the value's leader
// is us, it matches our own local latest, and the quorum verifier
// agrees it is still the latest round.
func (s *Service) determineLeadershipStatus(ctx context.Context, value *paxos.Value) Status {
	if value == nil || value.LeaderUUID != s.cfg.ProposerUUID {
		return NotLeading
	}

	local, ok := s.deps.Learner.GetGreatestLearnedValue()
	if !ok || !local.Equal(*value) {
		return NotLeading
	}

	status, err := s.deps.Verifier.IsLatestRound(ctx, value.Round)
	if err != nil {
		return NoQuorum
	}
	switch status {
	case paxos.Latest:
		return Leading
	case paxos.VerifierNoQuorum:
		return NoQuorum
	default:
		return NotLeading
	}
}

// proposeOrWait pings the suspected leader, else catches up, else
// jitters and proposes.
func (s *Service) proposeOrWait(ctx context.Context, greatestLearned *paxos.Value) error {
	if greatestLearned != nil {
		leader, err := s.resolveSuspectedLeader(ctx, greatestLearned.LeaderUUID)
		if err != nil {
			s.recorder.Misconfigured(err)
			return err
		}

		if leader != nil {
			if s.pingSuspectedLeader(ctx, leader, greatestLearned.LeaderUUID) {
				return s.sleep(ctx, s.cfg.UpdatePollingRate)
			}
		}
	}

	learned, err := s.updateLearnedStateFromPeers(ctx, greatestLearned)
	if err != nil {
		s.recorder.NoQuorumObserved()
	}
	if learned {
		return nil
	}

	jitter := time.Duration(s.nextJitter(int64(s.cfg.RandomWaitBeforeProposing)))
	if err := s.sleep(ctx, jitter); err != nil {
		return err
	}

	s.proposeLeadershipAfter(ctx, greatestLearned)
	return nil
}

// pingSuspectedLeader issues a one-shot ping: only ever the single
// resolved leader, never a multi-peer probe.
func (s *Service) pingSuspectedLeader(ctx context.Context, leaderPeer paxos.Peer, leaderUUID uuid.UUID) bool {
	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.LeaderPingResponseWait)
	defer cancel()

	leading, err := leaderPeer.Ping(pingCtx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.recorder.PingTimeout(leaderUUID)
		return false
	case err != nil:
		s.recorder.PingFailed(leaderUUID, err)
		return false
	case !leading:
		s.recorder.PingReturnedFalse(leaderUUID)
		return false
	default:
		return true
	}
}

// resolveSuspectedLeader does a cache lookup, else a UUID probe over
// every acceptor, binding every response (not just a match) so a
// misconfigured peer is caught even if it never becomes the node we
// were looking for.
func (s *Service) resolveSuspectedLeader(ctx context.Context, leaderUUID uuid.UUID) (paxos.Peer, error) {
	if leaderUUID == paxos.NoLeaderUUID {
		return nil, nil
	}
	if p, ok := s.cache.get(leaderUUID); ok {
		return p, nil
	}

	state := paxos.CollectUntil(
		ctx,
		s.deps.Acceptors,
		s.deps.ExecutorFor,
		s.cfg.LeaderPingResponseWait,
		func(ctx context.Context, p paxos.Peer) (uuid.UUID, error) { return p.GetUUID(ctx) },
		paxos.AnyResponseMatches(func(id uuid.UUID) bool { return id == leaderUUID }),
	)

	var found paxos.Peer
	for peer, id := range state.Responses {
		if peer.UUID() == s.cfg.ProposerUUID {
			// Self always answers its own probe honestly; it is never a
			// candidate for the identity cache or for impersonation checks.
			continue
		}
		if err := s.cache.putIfAbsent(id, peer); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMisconfigured, err)
		}
		if id == leaderUUID {
			found = peer
		}
	}
	return found, nil
}

// updateLearnedStateFromPeers fetches learned-since from every learner
// and applies each value locally, reporting whether anything new was
// learned.
func (s *Service) updateLearnedStateFromPeers(ctx context.Context, from *paxos.Value) (bool, error) {
	since := paxos.NoLogEntry
	if from != nil {
		since = from.Round
	}

	state := paxos.CollectUntil(
		ctx,
		s.deps.Learners,
		s.deps.ExecutorFor,
		s.cfg.LeaderPingResponseWait,
		func(ctx context.Context, p paxos.Peer) ([]paxos.Value, error) {
			return p.GetLearnedValuesSince(ctx, since)
		},
		paxos.AtLeastQuorum[[]paxos.Value],
	)
	if !state.HasQuorum() {
		return false, paxos.ErrNoQuorum
	}

	learnedAny := false
	for _, values := range state.Responses {
		for _, v := range values {
			if _, known := s.deps.Learner.GetLearnedValue(v.Round); known {
				continue
			}
			if err := s.deps.Learner.Learn(v.Round, v); err != nil {
				continue
			}
			learnedAny = true
		}
	}
	return learnedAny, nil
}

// proposeLeadershipAfter re-checks staleness under the exclusive propose
// lock, against the local learner only (not the quorum verifier — this
// is a cheap guard, not a safety check), then proposes. RoundFailure is
// swallowed and only recorded: recoverable failures are absorbed inside
// the loop rather than propagated to the caller.
func (s *Service) proposeLeadershipAfter(ctx context.Context, v *paxos.Value) {
	s.proposeMu.Lock()
	defer s.proposeMu.Unlock()

	local, ok := s.deps.Learner.GetGreatestLearnedValue()
	var localPtr *paxos.Value
	if ok {
		localPtr = &local
	}
	if !paxos.EqualValuePtr(v, localPtr) {
		return
	}

	seq := paxos.NextSeq(v)
	s.recorder.ProposalAttempt(seq)

	chosen, err := s.deps.Proposer.Propose(ctx, seq, nil)
	if err != nil {
		s.recorder.ProposalFailed(seq, err)
		return
	}
	s.recorder.ProposalSucceeded(chosen)
}

func (s *Service) nextJitter(boundNanos int64) int64 {
	if boundNanos <= 0 {
		return 0
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Int63n(boundNanos)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
