package peernet

import (
	"context"
	"net"
	"net/rpc"
	"time"

	"github.com/google/uuid"

	"github.com/atlaspaxos/leaderelection/paxos"
)

// Service is registered under the name "Paxos" with a net/rpc server and
// dispatches incoming calls straight to a Local peer, one exported
// method per paxos.Peer method.
type Service struct {
	Local *Local
}

type PrepareArgs struct {
	Seq paxos.SeqNum
	N   paxos.ProposalNumber
}

type PrepareReply struct {
	Result paxos.PrepareResult
}

func (s *Service) Prepare(args *PrepareArgs, reply *PrepareReply) error {
	res, err := s.Local.Prepare(context.Background(), args.Seq, args.N)
	reply.Result = res
	return err
}

type AcceptArgs struct {
	Seq paxos.SeqNum
	N   paxos.ProposalNumber
	V   paxos.Value
}

type AcceptReply struct {
	Result paxos.AcceptResult
}

func (s *Service) Accept(args *AcceptArgs, reply *AcceptReply) error {
	res, err := s.Local.Accept(context.Background(), args.Seq, args.N, args.V)
	reply.Result = res
	return err
}

type LearnArgs struct {
	Seq paxos.SeqNum
	V   paxos.Value
}

type LearnReply struct{}

func (s *Service) Learn(args *LearnArgs, reply *LearnReply) error {
	return s.Local.Learn(context.Background(), args.Seq, args.V)
}

type LearnedSinceArgs struct {
	From paxos.SeqNum
}

type LearnedSinceReply struct {
	Values []paxos.Value
}

func (s *Service) LearnedSince(args *LearnedSinceArgs, reply *LearnedSinceReply) error {
	values, err := s.Local.GetLearnedValuesSince(context.Background(), args.From)
	reply.Values = values
	return err
}

type LatestSeqArgs struct{}

type LatestSeqReply struct {
	Seq paxos.SeqNum
}

func (s *Service) LatestSeq(args *LatestSeqArgs, reply *LatestSeqReply) error {
	seq, err := s.Local.LatestSequencePreparedOrAccepted(context.Background())
	reply.Seq = seq
	return err
}

type PingArgs struct{}

type PingReply struct {
	Leading bool
}

func (s *Service) Ping(args *PingArgs, reply *PingReply) error {
	leading, err := s.Local.Ping(context.Background())
	reply.Leading = leading
	return err
}

type GetUUIDArgs struct{}

type GetUUIDReply struct {
	UUID uuid.UUID
}

func (s *Service) GetUUID(args *GetUUIDArgs, reply *GetUUIDReply) error {
	id, err := s.Local.GetUUID(context.Background())
	reply.UUID = id
	return err
}

// RPCPeer implements paxos.Peer against a remote node over net/rpc,
// using a plain Args/Reply struct pair per method. A peer with no
// *rpc.Client yet (never dialed, or a previous dial failed) dials on the
// next call; a dial failure is returned as that call's error, which
// CollectUntil treats as an ordinary per-peer failure.
type RPCPeer struct {
	id     uuid.UUID
	addr   string
	client *rpc.Client
}

// NewRPCPeer builds a peer for the node with the given UUID reachable at
// addr. It does not dial immediately; Dial (or a lazy dial on first call)
// establishes the connection so that a peer which is down at
// construction time does not block startup.
func NewRPCPeer(id uuid.UUID, addr string) *RPCPeer {
	return &RPCPeer{id: id, addr: addr}
}

func (p *RPCPeer) UUID() uuid.UUID { return p.id }

// Dial connects to the remote node. Safe to call again after a failed
// call to re-establish a dropped connection.
func (p *RPCPeer) Dial() error {
	conn, err := net.DialTimeout("tcp", p.addr, defaultDialTimeout)
	if err != nil {
		return err
	}
	p.client = rpc.NewClient(conn)
	return nil
}

// call issues one RPC, honoring ctx's deadline/cancellation even though
// net/rpc itself has no context support: it races the synchronous Call
// against ctx.Done and abandons (but does not await) the call on timeout.
func (p *RPCPeer) call(ctx context.Context, method string, args, reply any) error {
	if p.client == nil {
		if err := p.Dial(); err != nil {
			return err
		}
	}

	call := p.client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case resp := <-call.Done:
		return resp.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RPCPeer) Prepare(ctx context.Context, seq paxos.SeqNum, n paxos.ProposalNumber) (paxos.PrepareResult, error) {
	var reply PrepareReply
	err := p.call(ctx, "Paxos.Prepare", &PrepareArgs{Seq: seq, N: n}, &reply)
	return reply.Result, err
}

func (p *RPCPeer) Accept(ctx context.Context, seq paxos.SeqNum, n paxos.ProposalNumber, v paxos.Value) (paxos.AcceptResult, error) {
	var reply AcceptReply
	err := p.call(ctx, "Paxos.Accept", &AcceptArgs{Seq: seq, N: n, V: v}, &reply)
	return reply.Result, err
}

func (p *RPCPeer) Learn(ctx context.Context, seq paxos.SeqNum, v paxos.Value) error {
	var reply LearnReply
	return p.call(ctx, "Paxos.Learn", &LearnArgs{Seq: seq, V: v}, &reply)
}

func (p *RPCPeer) GetLearnedValuesSince(ctx context.Context, from paxos.SeqNum) ([]paxos.Value, error) {
	var reply LearnedSinceReply
	err := p.call(ctx, "Paxos.LearnedSince", &LearnedSinceArgs{From: from}, &reply)
	return reply.Values, err
}

func (p *RPCPeer) LatestSequencePreparedOrAccepted(ctx context.Context) (paxos.SeqNum, error) {
	var reply LatestSeqReply
	err := p.call(ctx, "Paxos.LatestSeq", &LatestSeqArgs{}, &reply)
	return reply.Seq, err
}

func (p *RPCPeer) Ping(ctx context.Context) (bool, error) {
	var reply PingReply
	err := p.call(ctx, "Paxos.Ping", &PingArgs{}, &reply)
	return reply.Leading, err
}

func (p *RPCPeer) GetUUID(ctx context.Context) (uuid.UUID, error) {
	var reply GetUUIDReply
	err := p.call(ctx, "Paxos.GetUUID", &GetUUIDArgs{}, &reply)
	return reply.UUID, err
}

var _ paxos.Peer = (*RPCPeer)(nil)
var _ paxos.Peer = (*Local)(nil)

// defaultDialTimeout bounds how long RPCPeer's lazy dial blocks a
// caller before CollectUntil's own deadline would have cancelled it
// anyway.
const defaultDialTimeout = 2 * time.Second
