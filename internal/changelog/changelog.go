// Package changelog implements C10: the per-partition change buffer, its
// flush to the global change CSV, and the remote-interest map consumed by
// C12's broadcast (spec.md §4.7). It generalizes the teacher's CSVLogger
// (csv_logger.go), which accumulates rows into a bytes.Buffer and appends
// them to one file per logger instance, into a per-tick buffer keyed by
// the StateChange metadata fields spec.md §4.7 names.
package changelog

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

// Record is one mutated node's post-state, recorded when a state
// transition fires with metadata flag StateChange (spec.md §3 "Change
// record", §4.7).
type Record struct {
	Tick           int64
	NodeID         int64
	ExitState      int
	HasContactNode bool
	ContactNodeID  int64
	HasLocationID  bool
	LocationID     int64
}

// Buffer accumulates Records for the current tick on one partition.
type Buffer struct {
	pid     int
	records []Record
}

// NewBuffer returns an empty change buffer for partition pid.
func NewBuffer(pid int) *Buffer {
	return &Buffer{pid: pid}
}

// Append records one state transition, per spec.md §4.7 "(tick, pid,
// exit_state, contact_pid [, locationId]) rows emitted when a state
// transition is recorded with metadata flag StateChange".
func (b *Buffer) Append(r Record) {
	b.records = append(b.records, r)
}

// Len reports how many records are pending flush.
func (b *Buffer) Len() int { return len(b.records) }

// Records returns the pending records without clearing the buffer, for
// tests and for C12 to inspect before a flush.
func (b *Buffer) Records() []Record { return b.records }

// Flush writes every pending record as a CSV row to w in the fixed column
// order `tick,pid,exit_state,contact_pid[,locationId]` and clears the
// buffer, per spec.md §6 "Per-tick change CSV".
func (b *Buffer) Flush(w io.Writer) error {
	var buf bytes.Buffer
	for _, r := range b.records {
		contact := "-1"
		if r.HasContactNode {
			contact = fmt.Sprintf("%d", r.ContactNodeID)
		}
		if r.HasLocationID {
			fmt.Fprintf(&buf, "%d,%d,%d,%s,%d\n", r.Tick, r.NodeID, r.ExitState, contact, r.LocationID)
		} else {
			fmt.Fprintf(&buf, "%d,%d,%d,%s\n", r.Tick, r.NodeID, r.ExitState, contact)
		}
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	b.records = b.records[:0]
	return nil
}

// RemoteInterest maps another partition's rank to the local node ids that
// partition references as an edge source, built once at load time from
// the contact network's outgoing edges (spec.md §4.7 "a map rank → set of
// local nodes whose authoritative changes that rank needs").
type RemoteInterest map[int][]int64

// NodesFor returns the sorted node ids rank needs, or nil if rank has no
// interest in this partition's nodes.
func (ri RemoteInterest) NodesFor(rank int) []int64 {
	ids := ri[rank]
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// GlobalStateCounts is one tick's in/current/out triplet per health state,
// used for the global state-count CSV (spec.md §6) and the conservation
// invariant (spec.md §8 property 2).
type GlobalStateCounts struct {
	Tick    int64
	In      []int64
	Out     []int64
	Current []int64
}

// WriteCSV emits one row: `tick,state0_in,state0_out,state0_current,...`.
func (g GlobalStateCounts) WriteCSV(w io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d", g.Tick)
	for i := range g.Current {
		fmt.Fprintf(&buf, ",%d,%d,%d", g.In[i], g.Out[i], g.Current[i])
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// Conserves reports whether current(S) == in(S) - out(S) for every state,
// the invariant spec.md §8 property 2 requires at every tick boundary.
func (g GlobalStateCounts) Conserves() bool {
	for i := range g.Current {
		if g.Current[i] != g.In[i]-g.Out[i] {
			return false
		}
	}
	return true
}
