// Package paxos implements the acceptor/learner/proposer core of a
// single-decree-per-round Paxos protocol used to elect a leader: a
// monotonically increasing sequence number, one Paxos instance per
// sequence, and a value carrying the elected leader's identity.
package paxos

import (
	"cmp"

	"github.com/google/uuid"
)

// SeqNum identifies one Paxos round. NoLogEntry means "no round has
// occurred yet"; the first real round is SeqNum(0).
type SeqNum int64

// NoLogEntry is the sentinel meaning "nothing learned or proposed yet".
const NoLogEntry SeqNum = -1

// NextSeq returns the round that should be proposed after value, treating
// a nil value as NoLogEntry.
func NextSeq(value *Value) SeqNum {
	if value == nil {
		return NoLogEntry + 1
	}
	return value.Round + 1
}

// ProposalNumber is a Paxos ballot: (Number, ProposerUUID). Number is
// strictly increasing per proposer; ProposerUUID breaks ties across
// proposers so no two distinct proposers ever produce an equal ballot.
type ProposalNumber struct {
	Number       int64
	ProposerUUID uuid.UUID
}

// Zero reports whether this is the zero-value ballot, i.e. "no ballot".
func (p ProposalNumber) Zero() bool {
	return p.Number == 0 && p.ProposerUUID == uuid.Nil
}

// Compare orders ballots by Number, then by ProposerUUID as a tiebreaker.
func Compare(a, b ProposalNumber) int {
	if a.Number != b.Number {
		return cmp.Compare(a.Number, b.Number)
	}
	return cmp.Compare(a.ProposerUUID.String(), b.ProposerUUID.String())
}

// GreaterThan reports whether a strictly outranks b.
func (p ProposalNumber) GreaterThan(other ProposalNumber) bool {
	return Compare(p, other) > 0
}

// NoLeaderUUID is the reserved leader identity used by an anonymous value,
// e.g. the one StepDown proposes to relinquish leadership. It never equals
// any real proposer's UUID.
var NoLeaderUUID = uuid.Nil

// Value is the payload chosen for a given round: who becomes leader, plus
// an opaque application payload. Values are immutable after construction.
type Value struct {
	Round      SeqNum
	LeaderUUID uuid.UUID
	Payload    []byte
}

// Equal reports whether two values are identical in round, leader and
// payload content.
func (v Value) Equal(other Value) bool {
	if v.Round != other.Round || v.LeaderUUID != other.LeaderUUID {
		return false
	}
	if len(v.Payload) != len(other.Payload) {
		return false
	}
	for i := range v.Payload {
		if v.Payload[i] != other.Payload[i] {
			return false
		}
	}
	return true
}

// IsAnonymous reports whether this value carries no real leader, as
// produced by StepDown.
func (v Value) IsAnonymous() bool {
	return v.LeaderUUID == NoLeaderUUID
}

// EqualValuePtr compares two possibly-nil value pointers by value equality.
func EqualValuePtr(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// QuorumSize returns floor(n/2)+1 for a cluster of n members (including
// self), the smallest majority.
func QuorumSize(n int) int {
	return n/2 + 1
}
