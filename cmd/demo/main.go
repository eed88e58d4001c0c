// Command demo runs a small in-process leader-election cluster and
// narrates it: cold start election, a leader crash and replacement, and
// a voluntary step-down, printing each transition as it happens.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atlaspaxos/leaderelection/leader"
	"github.com/atlaspaxos/leaderelection/paxos/simtest"
)

const numNodes = 5

func main() {
	fmt.Printf("Starting leader-election cluster with %d nodes...\n\n", numNodes)

	cluster := simtest.New(numNodes,
		leader.WithRandomWaitBeforeProposing(20*time.Millisecond),
		leader.WithUpdatePollingRate(10*time.Millisecond),
		leader.WithLeaderPingResponseWait(200*time.Millisecond),
	)
	defer cluster.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	live := append([]*simtest.Node{}, cluster.Nodes...)

	fmt.Println("=== cold start: every node races for round 0 ===")
	winner, tok := electOne(ctx, live)
	fmt.Printf("elected: node %s at round %d\n\n", short(winner.UUID), tok.Value().Round)

	fmt.Println("=== leader crash: killing the elected node ===")
	cluster.Kill(winner)
	live = without(live, winner)
	survivor, newTok := electOne(ctx, live)
	fmt.Printf("elected: node %s at round %d\n\n", short(survivor.UUID), newTok.Value().Round)

	fmt.Println("=== step down: the new leader relinquishes leadership ===")
	ok, err := survivor.Service.StepDown(ctx)
	if err != nil {
		log.Fatalf("step down failed: %v", err)
	}
	fmt.Printf("stepped down: %v\n\n", ok)

	fmt.Println("=== re-election after step down ===")
	nextWinner, nextTok := electOne(ctx, live)
	fmt.Printf("elected: node %s at round %d\n", short(nextWinner.UUID), nextTok.Value().Round)
}

// electOne races BlockOnBecomingLeader across candidates and returns
// whichever one wins first, cancelling the rest so they stop competing
// before the caller moves on to the next step of the demo.
func electOne(ctx context.Context, candidates []*simtest.Node) (*simtest.Node, *leader.Token) {
	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		node *simtest.Node
		tok  *leader.Token
		err  error
	}
	results := make(chan outcome, len(candidates))
	for _, node := range candidates {
		node := node
		go func() {
			tok, err := node.Service.BlockOnBecomingLeader(roundCtx)
			results <- outcome{node: node, tok: tok, err: err}
		}()
	}

	first := <-results
	if first.err != nil {
		log.Fatalf("election failed: %v", first.err)
	}
	return first.node, first.tok
}

func without(nodes []*simtest.Node, excluded *simtest.Node) []*simtest.Node {
	out := make([]*simtest.Node, 0, len(nodes)-1)
	for _, n := range nodes {
		if n != excluded {
			out = append(out, n)
		}
	}
	return out
}

func short(s fmt.Stringer) string {
	full := s.String()
	if len(full) > 8 {
		return full[:8]
	}
	return full
}
