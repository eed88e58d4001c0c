package paxos

import (
	"fmt"
	"sync"
)

// Learner stores and serves chosen values per round. Learn is idempotent;
// a second Learn at the same seq with a different value is a fatal
// invariant violation (I2/I3), since that would mean two values were
// chosen for the same round.
type Learner interface {
	Learn(seq SeqNum, v Value) error
	GetLearnedValue(seq SeqNum) (Value, bool)
	GetGreatestLearnedValue() (Value, bool)

	// GetLearnedValuesSince returns every learned entry with seq >= from,
	// ordered by seq, for catch-up.
	GetLearnedValuesSince(from SeqNum) []Value
}

type learnerImpl struct {
	mut      sync.Mutex
	log      DurableLog
	greatest SeqNum // greatest seq with a learned value, or NoLogEntry
}

// NewLearner builds a Learner over the given durable log.
func NewLearner(log DurableLog) Learner {
	l := &learnerImpl{
		log:      log,
		greatest: NoLogEntry,
	}
	l.recoverGreatest()
	return l
}

func (l *learnerImpl) recoverGreatest() {
	for seq := l.log.GreatestSeqWithRecord(); seq > NoLogEntry; seq-- {
		if rec, ok := l.log.Read(seq); ok && rec.HasLearned {
			l.greatest = seq
			return
		}
	}
}

func (l *learnerImpl) Learn(seq SeqNum, v Value) error {
	l.mut.Lock()
	defer l.mut.Unlock()

	rec, _ := l.log.Read(seq)
	if rec.HasLearned {
		if !rec.LearnedValue.Equal(v) {
			return fmt.Errorf("paxos: two different values learned for seq %d: %+v vs %+v",
				seq, rec.LearnedValue, v)
		}
		return nil
	}

	rec.HasLearned = true
	rec.LearnedValue = v
	if err := l.log.WriteAndFlush(seq, rec); err != nil {
		return err
	}

	if seq > l.greatest {
		l.greatest = seq
	}
	return nil
}

func (l *learnerImpl) GetLearnedValue(seq SeqNum) (Value, bool) {
	l.mut.Lock()
	defer l.mut.Unlock()

	rec, ok := l.log.Read(seq)
	if !ok || !rec.HasLearned {
		return Value{}, false
	}
	return rec.LearnedValue, true
}

func (l *learnerImpl) GetGreatestLearnedValue() (Value, bool) {
	l.mut.Lock()
	defer l.mut.Unlock()

	if l.greatest == NoLogEntry {
		return Value{}, false
	}
	rec, ok := l.log.Read(l.greatest)
	if !ok || !rec.HasLearned {
		return Value{}, false
	}
	return rec.LearnedValue, true
}

func (l *learnerImpl) GetLearnedValuesSince(from SeqNum) []Value {
	l.mut.Lock()
	defer l.mut.Unlock()

	var values []Value
	for seq := from; seq <= l.greatest; seq++ {
		rec, ok := l.log.Read(seq)
		if !ok || !rec.HasLearned {
			continue
		}
		values = append(values, rec.LearnedValue)
	}
	return values
}
