package leader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/atlaspaxos/leaderelection/paxos"
	"github.com/atlaspaxos/leaderelection/paxos/paxosfake"
	"github.com/atlaspaxos/leaderelection/peernet"
)

// newHarness wires a Service the way simtest.New does, but keeps direct
// handles to the fakes so tests can poke at them (learn values behind the
// Service's back, inject delay/error, inspect call counts).
type harness struct {
	selfID   uuid.UUID
	self     *peernet.Local
	learner  paxos.Learner
	acceptor paxos.Acceptor
	peers    []*paxosfake.Peer
	svc      *Service
}

func newHarness(t *testing.T, numFakePeers int, opts ...Option) *harness {
	t.Helper()

	selfID := uuid.New()
	log := paxos.NewMemDurableLog()
	acceptor := paxos.NewAcceptor(log)
	learner := paxos.NewLearner(log)
	self := peernet.NewLocal(selfID, acceptor, learner, nil)

	fakePeers := make([]*paxosfake.Peer, numFakePeers)
	for i := range fakePeers {
		fakePeers[i] = paxosfake.NewPeer(uuid.New())
	}

	all := make([]paxos.Peer, 0, numFakePeers+1)
	all = append(all, self)
	for _, p := range fakePeers {
		all = append(all, p)
	}

	proposer := paxos.NewProposer(paxos.ProposerConfig{
		UUID:          selfID,
		Acceptors:     all,
		Learners:      all,
		ExecutorFor:   paxos.SameExecutorForAll(paxos.GoExecutor{}),
		RoundDeadline: time.Second,
	})
	baseVerifier := paxos.NewQuorumLatestRoundVerifier(all, paxos.SameExecutorForAll(paxos.GoExecutor{}), time.Second)
	verifier := paxos.NewCoalescingLatestRoundVerifier(baseVerifier)

	allOpts := append([]Option{
		WithUpdatePollingRate(5 * time.Millisecond),
		WithRandomWaitBeforeProposing(5 * time.Millisecond),
		WithLeaderPingResponseWait(50 * time.Millisecond),
	}, opts...)

	svc, err := New(Deps{
		Self:        self,
		Acceptors:   all,
		Learners:    all,
		Learner:     learner,
		Proposer:    proposer,
		Verifier:    verifier,
		ExecutorFor: paxos.SameExecutorForAll(paxos.GoExecutor{}),
	}, allOpts...)
	assert.NoError(t, err)

	return &harness{
		selfID:   selfID,
		self:     self,
		learner:  learner,
		acceptor: acceptor,
		peers:    fakePeers,
		svc:      svc,
	}
}

func TestService_BlockOnBecomingLeaderWinsAloneWithNoContention(t *testing.T) {
	h := newHarness(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tok, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.NoError(t, err)
	if assert.NotNil(t, tok) {
		assert.Equal(t, paxos.SeqNum(0), tok.Value().Round)
		assert.Equal(t, h.selfID, tok.Value().LeaderUUID)
	}
}

func TestService_PingReflectsSelfLeadership(t *testing.T) {
	h := newHarness(t, 2)
	assert.False(t, h.svc.Ping())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.NoError(t, err)

	assert.True(t, h.svc.Ping())
}

func TestService_IsStillLeadingReportsNoQuorumWhenPeersUnreachable(t *testing.T) {
	h := newHarness(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tok, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.NoError(t, err)

	for _, p := range h.peers {
		p.Err = errors.New("simulated network failure")
	}

	status, err := h.svc.IsStillLeading(ctx, tok)
	assert.NoError(t, err)
	assert.Equal(t, NoQuorum, status)
}

func TestService_IsStillLeadingConfirmsFreshToken(t *testing.T) {
	h := newHarness(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tok, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.NoError(t, err)

	status, err := h.svc.IsStillLeading(ctx, tok)
	assert.NoError(t, err)
	assert.Equal(t, Leading, status)
}

func TestService_StepDownWhenNotLeadingIsANoop(t *testing.T) {
	h := newHarness(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := h.svc.StepDown(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestService_StepDownRelinquishesHeldLeadership(t *testing.T) {
	h := newHarness(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tok, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.NoError(t, err)

	ok, err := h.svc.StepDown(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)

	status, err := h.svc.IsStillLeading(ctx, tok)
	assert.NoError(t, err)
	assert.NotEqual(t, Leading, status)
	assert.False(t, h.svc.Ping())
}

// A remote peer that falsely claims another peer's UUID must surface as
// ErrMisconfigured out of BlockOnBecomingLeader's suspected-leader
// resolution, never silently accepted.
func TestService_DetectsImpersonatingPeerDuringSuspectedLeaderResolution(t *testing.T) {
	h := newHarness(t, 2)

	otherLeader := uuid.New()
	assert.NoError(t, h.learner.Learn(0, paxos.Value{Round: 0, LeaderUUID: otherLeader}))

	// Both fakes claim to be the same (wrong) UUID: neither is really
	// otherLeader, but two distinct peers claiming one UUID is itself a
	// misconfiguration regardless of whether either one matches.
	conflicting := uuid.New()
	h.peers[0].ReportedUUID = conflicting
	h.peers[1].ReportedUUID = conflicting

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestService_SuspectedLeaderPingShortCircuitsReproposal(t *testing.T) {
	h := newHarness(t, 2)

	leaderPeer := h.peers[0]
	assert.NoError(t, h.learner.Learn(0, paxos.Value{Round: 0, LeaderUUID: leaderPeer.UUID()}))
	leaderPeer.Leading = true

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// proposeOrWait should ping leaderPeer, see Leading==true, and sleep
	// rather than propose; BlockOnBecomingLeader keeps observing NotLeading
	// for us (we are not the elected leader) until ctx expires.
	_, err := h.svc.BlockOnBecomingLeader(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, leaderPeer.CallCount("Prepare"), "a live suspected leader must prevent this node from proposing")
}
