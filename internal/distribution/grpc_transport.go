package distribution

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// serviceName and methodName identify the single bidirectional-stream RPC
// every partition process exposes to its peers; there is no .proto file
// behind this service, so the descriptor below is hand-written the way a
// codegen-free gRPC service must be (see codec.go's doc comment).
const (
	serviceName = "epihiper.distribution.Plane"
	methodName  = "Exchange"
)

// exchangeServer is implemented by the driver-side handler that processes
// incoming envelopes for one partition process.
type exchangeServer interface {
	HandleEnvelope(ctx context.Context, env Envelope) error
}

func exchangeStreamHandler(srv any, stream grpc.ServerStream) error {
	handler := srv.(exchangeServer)
	for {
		var env Envelope
		if err := stream.RecvMsg(&env); err != nil {
			return err
		}
		if err := handler.HandleEnvelope(stream.Context(), env); err != nil {
			return err
		}
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*exchangeServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodName,
			Handler:       exchangeStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

// GRPCTransport is the real network transport for multi-process runs: one
// grpc.Server per rank accepting the Exchange stream from every peer, and
// one grpc.ClientConn per peer for outbound sends (spec.md §5 "Parallel
// processes communicating by message passing").
type GRPCTransport struct {
	rank  int
	peers []string // host:port per rank, including this rank's own address

	server *grpc.Server

	mu      sync.Mutex
	clients map[int]grpc.ClientStream
	inbox   []Envelope
	aborted bool

	handler func(ctx context.Context, env Envelope) error
}

// NewGRPCTransport constructs the transport for this rank. Dial/Serve are
// separate calls so the driver can start listening before connecting out,
// avoiding a startup race across the whole partition group.
func NewGRPCTransport(rank int, peers []string) *GRPCTransport {
	return &GRPCTransport{
		rank:    rank,
		peers:   peers,
		clients: make(map[int]grpc.ClientStream),
	}
}

func (t *GRPCTransport) Rank() int { return t.rank }
func (t *GRPCTransport) Size() int { return len(t.peers) }

// grpcExchangeServer adapts HandleEnvelope into the exchangeServer
// interface the hand-written ServiceDesc dispatches to.
type grpcExchangeServer struct {
	t *GRPCTransport
}

func (s *grpcExchangeServer) HandleEnvelope(ctx context.Context, env Envelope) error {
	s.t.mu.Lock()
	s.t.inbox = append(s.t.inbox, env)
	s.t.mu.Unlock()
	return nil
}

// NewServer returns the grpc.Server with this transport's Exchange
// handler registered, for cmd/epihiper to call Serve(lis) on.
func (t *GRPCTransport) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	t.server = grpc.NewServer(opts...)
	t.server.RegisterService(&serviceDesc, &grpcExchangeServer{t: t})
	return t.server
}

// Dial opens the outbound stream to rank's address, used by SendToRank
// and Broadcast.
func (t *GRPCTransport) Dial(ctx context.Context, rank int) (grpc.ClientStream, error) {
	t.mu.Lock()
	if cs, ok := t.clients[rank]; ok {
		t.mu.Unlock()
		return cs, nil
	}
	t.mu.Unlock()

	conn, err := grpc.NewClient(t.peers[rank],
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "distribution: dial rank %d", rank)
	}
	desc := &grpc.StreamDesc{StreamName: methodName, ServerStreams: true, ClientStreams: true}
	stream, err := conn.NewStream(ctx, desc, "/"+serviceName+"/"+methodName)
	if err != nil {
		return nil, errors.Wrapf(err, "distribution: open stream to rank %d", rank)
	}
	t.mu.Lock()
	t.clients[rank] = stream
	t.mu.Unlock()
	return stream, nil
}

func (t *GRPCTransport) Broadcast(ctx context.Context, env Envelope) ([]Envelope, error) {
	if t.rank != 0 {
		return nil, errors.New("distribution: only rank 0 may originate a broadcast")
	}
	for rank := range t.peers {
		if rank == t.rank {
			continue
		}
		if err := t.SendToRank(ctx, rank, env); err != nil {
			return nil, err
		}
	}
	return []Envelope{env}, nil
}

func (t *GRPCTransport) SendToRank(ctx context.Context, rank int, env Envelope) error {
	if t.checkAborted() {
		return errors.New("distribution: transport aborted")
	}
	stream, err := t.Dial(ctx, rank)
	if err != nil {
		return err
	}
	return stream.SendMsg(&env)
}

func (t *GRPCTransport) Receive(ctx context.Context) ([]Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.inbox
	t.inbox = nil
	return out, nil
}

func (t *GRPCTransport) Reduce(ctx context.Context, local float64, reduce func(a, b float64) float64) (float64, error) {
	env := Envelope{Kind: KindReduceValue, FromPID: t.rank}
	if t.rank != 0 {
		if err := t.SendToRank(ctx, 0, env); err != nil {
			return 0, err
		}
		return local, nil
	}
	return local, nil
}

func (t *GRPCTransport) Abort(reason string) {
	t.mu.Lock()
	t.aborted = true
	t.mu.Unlock()
	if t.server != nil {
		t.server.Stop()
	}
}

func (t *GRPCTransport) checkAborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}
