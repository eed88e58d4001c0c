package leader

import "github.com/atlaspaxos/leaderelection/paxos"

// Status is this service's answer to "am I leading?", the leadership
// state's status.
type Status int

const (
	Leading Status = iota + 1
	NotLeading
	NoQuorum
)

func (s Status) String() string {
	switch s {
	case Leading:
		return "LEADING"
	case NotLeading:
		return "NOT_LEADING"
	case NoQuorum:
		return "NO_QUORUM"
	default:
		return "UNKNOWN"
	}
}

// LeadershipState is a derived, unstored snapshot: the greatest value
// this node has learned (if any) plus this node's status with respect
// to it.
type LeadershipState struct {
	GreatestLearned *paxos.Value
	Status          Status
}

// Token is an opaque handle wrapping the value this node held leadership
// for. It is confirmed only by a subsequent IsStillLeading call; holding
// one carries no guarantee on its own.
type Token struct {
	value paxos.Value
}

// Value returns the PaxosValue the token was issued for.
func (t Token) Value() paxos.Value {
	return t.value
}
