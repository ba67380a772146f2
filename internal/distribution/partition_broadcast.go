package distribution

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// BoundaryPayload is what rank 0 computes and broadcasts at load time so
// every partition agrees on node ownership before the first tick (spec.md
// §5 "Collective broadcast of configuration and partition boundaries").
type BoundaryPayload struct {
	NumParts   int     `json:"numParts"`
	Boundaries []int64 `json:"boundaries"`
}

// BroadcastBoundaries sends boundaries from rank 0 to the whole group and
// returns the payload every rank should build its Partition from.
func BroadcastBoundaries(ctx context.Context, t Transport, boundaries []int64) (BoundaryPayload, error) {
	payload := BoundaryPayload{NumParts: len(boundaries), Boundaries: boundaries}
	raw, err := json.Marshal(payload)
	if err != nil {
		return BoundaryPayload{}, err
	}
	if t.Rank() == 0 {
		_, err := t.Broadcast(ctx, Envelope{Kind: "partitionBoundaries", FromPID: 0, Payload: raw})
		if err != nil {
			return BoundaryPayload{}, err
		}
		return payload, nil
	}
	envs, err := t.Receive(ctx)
	if err != nil {
		return BoundaryPayload{}, err
	}
	for _, env := range envs {
		if env.Kind != "partitionBoundaries" {
			continue
		}
		var got BoundaryPayload
		if err := json.Unmarshal(env.Payload, &got); err != nil {
			return BoundaryPayload{}, err
		}
		return got, nil
	}
	return BoundaryPayload{}, errors.New("distribution: no partition boundaries received")
}
