package paxos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrRoundFailure means a Paxos round could not reach quorum: it was
// rejected by higher ballots, or the deadline elapsed. Callers recover by
// proposing again with a higher ballot.
var ErrRoundFailure = errors.New("paxos: round failed to reach quorum")

// ErrNoQuorum means a read-path quorum check (verifier, catch-up) could
// not collect enough responses before its deadline.
var ErrNoQuorum = errors.New("paxos: could not reach a quorum of peers")

// ErrLogCorrupted means the durable log detected damage it cannot repair.
// It is unrecoverable and surfaces on the next durable operation.
var ErrLogCorrupted = errors.New("paxos: durable log is corrupted")

// ErrServiceUnavailable means stepping down could not achieve quorum.
var ErrServiceUnavailable = errors.New("paxos: service unavailable, could not reach quorum")

// RoundFailureError wraps ErrRoundFailure with the ballot and seq that
// failed, so callers and the event recorder have something concrete to log.
type RoundFailureError struct {
	Seq    SeqNum
	Ballot ProposalNumber
	Cause  error
}

func (e *RoundFailureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("paxos: round %d failed at ballot %v: %v", e.Seq, e.Ballot, e.Cause)
	}
	return fmt.Sprintf("paxos: round %d failed at ballot %v", e.Seq, e.Ballot)
}

func (e *RoundFailureError) Unwrap() error {
	return ErrRoundFailure
}

// MisconfigurationError reports a fatal cluster configuration problem: two
// distinct peers claiming the same UUID, or a peer claiming this node's own
// UUID. It is never recovered internally; the caller must re-raise it.
type MisconfigurationError struct {
	ClaimedUUID uuid.UUID
	// SelfClaim is true when a remote peer claimed our own UUID.
	SelfClaim bool
}

func (e *MisconfigurationError) Error() string {
	if e.SelfClaim {
		return fmt.Sprintf("paxos: remote peer claims our own UUID %s; check cluster configuration", e.ClaimedUUID)
	}
	return fmt.Sprintf("paxos: two distinct peers claim UUID %s; check cluster configuration", e.ClaimedUUID)
}
