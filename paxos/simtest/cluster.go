// Package simtest builds a small in-process cluster of fully wired
// leader-election nodes (real Acceptor/Learner/Proposer/Verifier/Service
// instances, connected through peernet.Local rather than real sockets)
// for exercising election scenarios end to end without a network.
package simtest

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/leader"
	"github.com/atlaspaxos/leaderelection/paxos"
	"github.com/atlaspaxos/leaderelection/peernet"
)

// Node is one cluster member: its own storage, its own Service, and the
// Local peer handle the rest of the cluster addresses it through.
type Node struct {
	UUID    uuid.UUID
	Log     *paxos.MemDurableLog
	Learner paxos.Learner
	Local   *peernet.Local
	Service *leader.Service

	down bool // when true, this node's Local peer fails every call
}

// Cluster is a fixed-membership set of Nodes, all sharing one
// paxos.ExecutorFor (a real peernet.Pool, so tests exercise genuine
// per-peer isolation).
type Cluster struct {
	Nodes []*Node
	pool  *peernet.Pool
}

// New builds n nodes, each with the full peer list (including itself) as
// both acceptors and learners: a node is its own peer.
func New(n int, opts ...leader.Option) *Cluster {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}

	nodes := make([]*Node, n)
	peers := make([]paxos.Peer, n)
	for i := 0; i < n; i++ {
		log := paxos.NewMemDurableLog()
		acceptor := paxos.NewAcceptor(log)
		learner := paxos.NewLearner(log)

		node := &Node{UUID: ids[i], Log: log, Learner: learner}
		nodes[i] = node

		local := peernet.NewLocal(ids[i], acceptor, learner, func() bool {
			if node.Service == nil {
				return false
			}
			return node.Service.Ping()
		})
		node.Local = local
		peers[i] = &switchablePeer{node: node, real: local}
	}

	pool := peernet.NewPool(peers)

	for i := 0; i < n; i++ {
		proposer := paxos.NewProposer(paxos.ProposerConfig{
			UUID:          ids[i],
			Acceptors:     peers,
			Learners:      peers,
			ExecutorFor:   pool.ExecutorFor,
			RoundDeadline: time.Second,
		})
		baseVerifier := paxos.NewQuorumLatestRoundVerifier(peers, pool.ExecutorFor, time.Second)
		verifier := paxos.NewCoalescingLatestRoundVerifier(baseVerifier)

		svc, err := leader.New(leader.Deps{
			Self:        peers[i],
			Acceptors:   peers,
			Learners:    peers,
			Learner:     nodes[i].Learner,
			Proposer:    proposer,
			Verifier:    verifier,
			ExecutorFor: pool.ExecutorFor,
		}, opts...)
		if err != nil {
			panic(err) // programmer error building test fixtures
		}
		nodes[i].Service = svc
	}

	return &Cluster{Nodes: nodes, pool: pool}
}

// Kill makes node behave as if crashed: every RPC to it fails.
func (c *Cluster) Kill(node *Node) {
	node.down = true
}

// Revive undoes Kill.
func (c *Cluster) Revive(node *Node) {
	node.down = false
}

// Shutdown stops the shared executor pool.
func (c *Cluster) Shutdown() {
	c.pool.Shutdown()
}
