package leader

import (
	"github.com/google/uuid"
	logging "github.com/op/go-logging"

	"github.com/atlaspaxos/leaderelection/paxos"
)

var logger = logging.MustGetLogger("leader")

// EventRecorder is a pure observability sink: it is invoked at every
// branch of the election state machine, has no effect on control flow,
// and never panics out to its caller.
type EventRecorder struct{}

func newEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) ProposalAttempt(seq paxos.SeqNum) {
	logger.Debugf("attempting proposal for seq %d", seq)
}

func (r *EventRecorder) ProposalFailed(seq paxos.SeqNum, err error) {
	logger.Warningf("proposal for seq %d failed: %v", seq, err)
}

func (r *EventRecorder) ProposalSucceeded(v paxos.Value) {
	logger.Infof("won round %d for leader %s", v.Round, v.LeaderUUID)
}

func (r *EventRecorder) PingTimeout(leader uuid.UUID) {
	logger.Warningf("ping to suspected leader %s timed out", leader)
}

func (r *EventRecorder) PingReturnedFalse(leader uuid.UUID) {
	logger.Debugf("suspected leader %s no longer believes it is leading", leader)
}

func (r *EventRecorder) PingFailed(leader uuid.UUID, err error) {
	logger.Warningf("ping to suspected leader %s failed: %v", leader, err)
}

func (r *EventRecorder) NoQuorumObserved() {
	logger.Warning("observed NO_QUORUM while determining leadership status")
}

func (r *EventRecorder) NotLeadingObserved() {
	logger.Debug("observed NOT_LEADING while determining leadership status")
}

func (r *EventRecorder) SteppedDown(v paxos.Value) {
	logger.Infof("stepped down at seq %d", v.Round)
}

func (r *EventRecorder) Misconfigured(err error) {
	logger.Errorf("fatal cluster misconfiguration: %v", err)
}
