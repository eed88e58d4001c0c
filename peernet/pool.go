package peernet

import (
	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/internal/waitgroup"
	"github.com/atlaspaxos/leaderelection/paxos"
)

// Pool is the production paxos.ExecutorFor: one bounded worker goroutine
// per peer, so a stuck or slow peer only ever backs up work addressed to
// that peer and never blocks a request to any other. Peer membership is
// fixed for the life of a Pool rather than reconciled dynamically, since
// cluster membership changes are out of scope here.
type Pool struct {
	workers map[uuid.UUID]*worker
	wg      *waitgroup.WaitGroup
}

type worker struct {
	tasks chan func()
	done  chan struct{}
}

// queueDepth bounds how many outstanding requests a Pool will buffer for
// one peer before Go blocks the caller; CollectUntil never enqueues more
// than one request per peer per wave, so this only matters when a peer
// is slow across back-to-back waves.
const queueDepth = 8

// NewPool starts one worker per peer in peers and returns a Pool ready to
// use as an ExecutorFor. Call Shutdown when the owning node stops.
func NewPool(peers []paxos.Peer) *Pool {
	p := &Pool{
		workers: make(map[uuid.UUID]*worker, len(peers)),
		wg:      waitgroup.New(),
	}
	for _, peer := range peers {
		w := &worker{
			tasks: make(chan func(), queueDepth),
			done:  make(chan struct{}),
		}
		p.workers[peer.UUID()] = w
		p.wg.Go(func() { w.run() })
	}
	return p
}

func (w *worker) run() {
	defer close(w.done)
	for fn := range w.tasks {
		fn()
	}
}

// Go implements paxos.Executor for a single worker.
func (w *worker) Go(fn func()) {
	select {
	case w.tasks <- fn:
	case <-w.done:
	}
}

// ExecutorFor implements paxos.ExecutorFor. A peer with no matching
// worker (never registered with NewPool) runs unisolated via GoExecutor;
// this should not happen for any peer list built from a Pool's own
// construction arguments.
func (p *Pool) ExecutorFor(peer paxos.Peer) paxos.Executor {
	if w, ok := p.workers[peer.UUID()]; ok {
		return w
	}
	return paxos.GoExecutor{}
}

// Shutdown stops every worker once its queue drains and waits for them
// to exit.
func (p *Pool) Shutdown() {
	for _, w := range p.workers {
		close(w.tasks)
	}
	p.wg.Wait()
}
