package network

import (
	"encoding/json"
	"math"
	"strings"
)

func jsonUnmarshalTrim(s string, v any) error {
	return json.Unmarshal([]byte(strings.TrimSpace(s)), v)
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func float64ToBits(f float64) uint64 { return math.Float64bits(f) }
func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }
