// Package distribution implements C12: partitioning broadcast, round-robin
// ring sends of change records and remote actions, and master-collect
// reductions for set sampling allowances, global state counts, and the
// trigger OR (spec.md §4.1 "Loading", §5, §4.5, §4.6). No protoc-generated
// stubs exist anywhere in the example pack this module was built from, so
// the gRPC transport below exchanges a single JSON-codec'd envelope type
// instead of generated protobuf messages — see DESIGN.md for the rationale
// this mirrors the getployz-ployz proxy's codec-level gRPC usage
// (grpc.ForceServerCodecV2, a hand-registered codec.Codec instead of
// generated marshal/unmarshal) rather than its wire format.
package distribution

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "epihiper-json"

// jsonCodec implements google.golang.org/grpc/encoding.Codec by delegating
// to encoding/json, so Envelope values can cross the wire without a
// .proto-generated Marshal/Unmarshal pair.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Envelope is the one message type every RPC in this package exchanges;
// Kind discriminates its payload the way spec.md §9 asks tagged variants
// to replace virtual dispatch elsewhere in the system.
type Envelope struct {
	Kind    string          `json:"kind"`
	FromPID int             `json:"fromPid"`
	Payload json.RawMessage `json:"payload"`
}

const (
	KindChangeRecords = "changeRecords"
	KindRemoteAction  = "remoteAction"
	KindReduceValue   = "reduceValue"
	KindTriggerVote   = "triggerVote"
	KindAbort         = "abort"
)
