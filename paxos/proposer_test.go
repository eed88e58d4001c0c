package paxos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestProposer(self uuid.UUID, acceptors []Peer) Proposer {
	return NewProposer(ProposerConfig{
		UUID:          self,
		Acceptors:     acceptors,
		Learners:      acceptors,
		ExecutorFor:   SameExecutorForAll(GoExecutor{}),
		RoundDeadline: time.Second,
	})
}

func TestProposer_ProposeChoosesOwnValueWhenUncontested(t *testing.T) {
	peers := []Peer{newMemPeer(), newMemPeer(), newMemPeer()}
	self := uuid.New()
	p := newTestProposer(self, peers)

	chosen, err := p.Propose(context.Background(), 0, []byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, self, chosen.LeaderUUID)
	assert.Equal(t, []byte("hello"), chosen.Payload)

	for _, peer := range peers {
		v, ok := peer.(*memPeer).learner.GetLearnedValue(0)
		assert.True(t, ok)
		assert.True(t, v.Equal(chosen))
	}
}

func TestProposer_ProposeAdoptsAlreadyAcceptedValue(t *testing.T) {
	peers := []Peer{newMemPeer(), newMemPeer(), newMemPeer()}

	// The new proposer's first ballot also has Number 1, so order the two
	// UUIDs to make it outrank the prior ballot on the tiebreak.
	otherLeader, self := uuid.New(), uuid.New()
	if otherLeader.String() > self.String() {
		otherLeader, self = self, otherLeader
	}

	priorBallot := ProposalNumber{Number: 1, ProposerUUID: otherLeader}
	priorValue := Value{Round: 0, LeaderUUID: otherLeader, Payload: []byte("first")}
	for _, peer := range peers {
		mp := peer.(*memPeer)
		_, err := mp.acceptor.Prepare(0, priorBallot)
		assert.NoError(t, err)
		_, err = mp.acceptor.Accept(0, priorBallot, priorValue)
		assert.NoError(t, err)
	}

	p := newTestProposer(self, peers)
	chosen, err := p.Propose(context.Background(), 0, []byte("second"))
	assert.NoError(t, err)

	assert.Equal(t, otherLeader, chosen.LeaderUUID)
	assert.Equal(t, []byte("first"), chosen.Payload)
}

func TestProposer_ProposeFailsWithoutQuorum(t *testing.T) {
	down1, down2 := newMemPeer(), newMemPeer()
	down1.hang()
	down2.hang()
	defer down1.release()
	defer down2.release()

	peers := []Peer{down1, down2, newMemPeer()}
	p := NewProposer(ProposerConfig{
		UUID:          uuid.New(),
		Acceptors:     peers,
		Learners:      peers,
		ExecutorFor:   SameExecutorForAll(GoExecutor{}),
		RoundDeadline: 30 * time.Millisecond,
	})

	_, err := p.Propose(context.Background(), 0, nil)
	assert.Error(t, err)

	var roundErr *RoundFailureError
	assert.ErrorAs(t, err, &roundErr)
}

func TestProposer_ProposeAnonymouslyUsesNoLeaderUUID(t *testing.T) {
	peers := []Peer{newMemPeer(), newMemPeer(), newMemPeer()}
	p := newTestProposer(uuid.New(), peers)

	chosen, err := p.ProposeAnonymously(context.Background(), 0, nil)
	assert.NoError(t, err)
	assert.Equal(t, NoLeaderUUID, chosen.LeaderUUID)
	assert.True(t, chosen.IsAnonymous())
}

func TestProposer_BallotsAreMonotonicAcrossRounds(t *testing.T) {
	peers := []Peer{newMemPeer(), newMemPeer(), newMemPeer()}
	self := uuid.New()
	p := newTestProposer(self, peers).(*proposerImpl)

	b1 := p.nextBallot()
	b2 := p.nextBallot()
	assert.True(t, b2.GreaterThan(b1))
}
