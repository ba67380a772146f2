package network

// Preamble is the JSON header line described in spec.md §6: schema,
// encoding, counts, and per-field presence flags for a contact-network
// file.
type Preamble struct {
	Schema              string    `json:"schema"`
	Encoding            string    `json:"encoding"` // "text" | "binary"
	NumberOfNodes       int64     `json:"numberOfNodes"`
	NumberOfEdges       int64     `json:"numberOfEdges"`
	SizeofPID           int       `json:"sizeofPID"`
	TimeResolution      float64   `json:"timeResolution"`
	AccumulationTime    float64   `json:"accumulationTime"`
	HasLocationIDField  bool      `json:"hasLocationIDField"`
	HasActiveField      bool      `json:"hasActiveField"`
	HasWeightField      bool      `json:"hasWeightField"`
	SizeofActivity      int       `json:"sizeofActivity"`
	ActivityEncoding    []string  `json:"activityEncoding"`
	SizeofEdgeTrait     int       `json:"sizeofEdgeTrait"`
	EdgeTraitEncoding   []string  `json:"edgeTraitEncoding"`
	Partition           *PartInfo `json:"partition,omitempty"`
	SourceOnlyNodes     []int64   `json:"sourceOnlyNodes,omitempty"`
}

// PartInfo records a previously computed partitioning in a file's
// preamble. Nothing in this module reads it back: the simulator and the
// partitioner recompute boundaries from the edges on every run.
type PartInfo struct {
	NumParts    int     `json:"numParts"`
	Boundaries  []int64 `json:"boundaries"` // beyondLocal per partition, ascending
}
