package traits

import (
	"encoding/json"
	"fmt"
	"os"
)

type wireFeature struct {
	Name      string `json:"name"`
	NumStates int    `json:"numStates"`
}

type wireSchema struct {
	Features []wireFeature `json:"features"`
}

// LoadSchema reads the trait-schema JSON document named by the
// model-scenario's "traits" field and builds a Codec from its declared
// features, in the order they appear in the document (spec.md §6 "Trait
// schema").
func LoadSchema(path string) (*Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("traits: open: %w", err)
	}
	defer f.Close()

	var w wireSchema
	if err := json.NewDecoder(f).Decode(&w); err != nil {
		return nil, fmt.Errorf("traits: decode: %w", err)
	}

	features := make([]Feature, 0, len(w.Features))
	seen := make(map[string]bool, len(w.Features))
	for _, wf := range w.Features {
		if wf.Name == "" {
			return nil, fmt.Errorf("traits: feature with empty name")
		}
		if wf.NumStates < 1 {
			return nil, fmt.Errorf("traits: feature %q needs numStates >= 1, got %d", wf.Name, wf.NumStates)
		}
		if seen[wf.Name] {
			return nil, fmt.Errorf("traits: duplicate feature name %q", wf.Name)
		}
		seen[wf.Name] = true
		features = append(features, Feature{Name: wf.Name, NumStates: wf.NumStates})
	}

	return NewCodec(features), nil
}
