package paxos

import "sync"

// Acceptor is the Paxos Phase 1b/2b state machine over a DurableLog. All
// state changes are durable before Prepare/Accept reply, and calls for the
// same seq are serialized.
type Acceptor interface {
	Prepare(seq SeqNum, n ProposalNumber) (PrepareResult, error)
	Accept(seq SeqNum, n ProposalNumber, v Value) (AcceptResult, error)

	// LatestSequencePreparedOrAccepted returns the greatest seq this
	// acceptor has ever promised or accepted for, or NoLogEntry.
	LatestSequencePreparedOrAccepted() SeqNum
}

// PrepareResult is the acceptor's answer to Prepare: either a promise
// (optionally carrying a previously-accepted ballot/value), or a Nack
// naming the ballot that outranked the request.
type PrepareResult struct {
	Promised    bool
	HasAccepted bool
	AcceptedNum ProposalNumber
	AcceptedVal Value
	NackedByNum ProposalNumber
}

// AcceptResult is the acceptor's answer to Accept.
type AcceptResult struct {
	Accepted    bool
	NackedByNum ProposalNumber
}

type acceptorImpl struct {
	mut sync.Mutex
	log DurableLog

	// latestSeq tracks the greatest seq ever prepared or accepted,
	// independent of the durable log's own bookkeeping, so
	// LatestSequencePreparedOrAccepted stays O(1).
	latestSeq SeqNum
}

// NewAcceptor builds an Acceptor over the given durable log.
func NewAcceptor(log DurableLog) Acceptor {
	return &acceptorImpl{
		log:       log,
		latestSeq: log.GreatestSeqWithRecord(),
	}
}

func (a *acceptorImpl) Prepare(seq SeqNum, n ProposalNumber) (PrepareResult, error) {
	a.mut.Lock()
	defer a.mut.Unlock()

	rec, _ := a.log.Read(seq)

	if !n.GreaterThan(rec.Promise.PromisedNum) {
		return PrepareResult{NackedByNum: rec.Promise.PromisedNum}, nil
	}

	rec.Promise.PromisedNum = n
	if err := a.log.WriteAndFlush(seq, rec); err != nil {
		return PrepareResult{}, err
	}
	a.bumpLatestSeq(seq)

	return PrepareResult{
		Promised:    true,
		HasAccepted: rec.Promise.HasAccepted,
		AcceptedNum: rec.Promise.AcceptedNum,
		AcceptedVal: rec.Promise.AcceptedValue,
	}, nil
}

func (a *acceptorImpl) Accept(seq SeqNum, n ProposalNumber, v Value) (AcceptResult, error) {
	a.mut.Lock()
	defer a.mut.Unlock()

	rec, _ := a.log.Read(seq)

	if n.Zero() || Compare(n, rec.Promise.PromisedNum) < 0 {
		return AcceptResult{NackedByNum: rec.Promise.PromisedNum}, nil
	}

	rec.Promise.PromisedNum = n
	rec.Promise.AcceptedNum = n
	rec.Promise.AcceptedValue = v
	rec.Promise.HasAccepted = true

	if err := a.log.WriteAndFlush(seq, rec); err != nil {
		return AcceptResult{}, err
	}
	a.bumpLatestSeq(seq)

	return AcceptResult{Accepted: true}, nil
}

func (a *acceptorImpl) LatestSequencePreparedOrAccepted() SeqNum {
	a.mut.Lock()
	defer a.mut.Unlock()
	return a.latestSeq
}

func (a *acceptorImpl) bumpLatestSeq(seq SeqNum) {
	if seq > a.latestSeq {
		a.latestSeq = seq
	}
}
