package network

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// binaryRecordSize returns the fixed per-edge record size in bytes for the
// given preamble, matching the field order of columnOrder but packed
// instead of CSV-encoded (spec.md §6, "fixed binary records in the same
// field order").
func binaryRecordSize(p *Preamble) int {
	activityWords := (p.SizeofActivity*8 + 63) / 64
	if activityWords == 0 {
		activityWords = 1
	}
	traitWords := (p.SizeofEdgeTrait*8 + 63) / 64
	size := 8 + 8*activityWords + 8 + 8*activityWords + 8 // target, targetActivity, source, sourceActivity, duration
	if p.HasLocationIDField {
		size += 8
	}
	if p.SizeofEdgeTrait > 0 {
		size += 8 * traitWords
	}
	if p.HasActiveField {
		size += 1
	}
	if p.HasWeightField {
		size += 8
	}
	return size
}

// LoadBinary parses a binary-encoded contact-network file: the same JSON
// preamble and CSV header lines as the text encoding, followed by one
// fixed-width binary record per edge.
func LoadBinary(r io.Reader) (*Preamble, []Edge, error) {
	preamble, _, rest, err := readHeaderLines(r)
	if err != nil {
		return nil, nil, err
	}
	activityWords := (preamble.SizeofActivity*8 + 63) / 64
	if activityWords == 0 {
		activityWords = 1
	}
	traitWords := (preamble.SizeofEdgeTrait*8 + 63) / 64
	recSize := binaryRecordSize(preamble)

	edges := make([]Edge, 0, preamble.NumberOfEdges)
	buf := make([]byte, recSize)
	for {
		_, err := io.ReadFull(rest, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read binary edge record: %w", err)
		}
		e, err := decodeBinaryEdge(buf, preamble, activityWords, traitWords)
		if err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return preamble, edges, nil
}

func readHeaderLines(r io.Reader) (*Preamble, string, *bufio.Reader, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	preambleLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, "", nil, err
	}
	var preamble Preamble
	if err := jsonUnmarshalTrim(preambleLine, &preamble); err != nil {
		return nil, "", nil, err
	}
	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, "", nil, err
	}
	return &preamble, headerLine, br, nil
}

func decodeBinaryEdge(buf []byte, p *Preamble, activityWords, traitWords int) (Edge, error) {
	var e Edge
	off := 0
	readInt64 := func() int64 {
		v := int64(binary.BigEndian.Uint64(buf[off : off+8]))
		off += 8
		return v
	}
	readWords := func(n int) []uint64 {
		if n == 0 {
			return nil
		}
		out := make([]uint64, n)
		for i := 0; i < n; i++ {
			out[i] = binary.BigEndian.Uint64(buf[off : off+8])
			off += 8
		}
		return out
	}
	readFloat64 := func() float64 {
		bits := binary.BigEndian.Uint64(buf[off : off+8])
		off += 8
		return float64FromBits(bits)
	}

	e.Target = readInt64()
	e.TargetActivity = readWords(activityWords)
	e.Source = readInt64()
	e.SourceActivity = readWords(activityWords)
	e.Duration = readFloat64()
	if p.HasLocationIDField {
		e.HasLocationID = true
		e.LocationID = readInt64()
	}
	if p.SizeofEdgeTrait > 0 {
		e.HasTrait = true
		e.Trait = readWords(traitWords)
	}
	if p.HasActiveField {
		e.HasActive = true
		e.Active = buf[off] != 0
		off++
	}
	if p.HasWeightField {
		e.HasWeight = true
		e.Weight = readFloat64()
	}
	return e, nil
}

// WriteBinary serializes a preamble + edge slice to the binary encoding.
func WriteBinary(w io.Writer, p *Preamble, edges []Edge) error {
	bw := bufio.NewWriter(w)
	preambleBytes, err := jsonMarshal(p)
	if err != nil {
		return err
	}
	bw.Write(preambleBytes)
	bw.WriteByte('\n')
	cols := columnOrder(p)
	for i, c := range cols {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(c)
	}
	bw.WriteByte('\n')

	recSize := binaryRecordSize(p)
	buf := make([]byte, recSize)
	for _, e := range edges {
		encodeBinaryEdge(buf, &e, p)
		bw.Write(buf)
	}
	return bw.Flush()
}

func encodeBinaryEdge(buf []byte, e *Edge, p *Preamble) {
	off := 0
	writeInt64 := func(v int64) {
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(v))
		off += 8
	}
	writeWords := func(words []uint64, n int) {
		for i := 0; i < n; i++ {
			var v uint64
			if i < len(words) {
				v = words[i]
			}
			binary.BigEndian.PutUint64(buf[off:off+8], v)
			off += 8
		}
	}
	writeFloat64 := func(f float64) {
		binary.BigEndian.PutUint64(buf[off:off+8], float64ToBits(f))
		off += 8
	}

	activityWords := (p.SizeofActivity*8 + 63) / 64
	if activityWords == 0 {
		activityWords = 1
	}
	traitWords := (p.SizeofEdgeTrait*8 + 63) / 64

	writeInt64(e.Target)
	writeWords(e.TargetActivity, activityWords)
	writeInt64(e.Source)
	writeWords(e.SourceActivity, activityWords)
	writeFloat64(e.Duration)
	if p.HasLocationIDField {
		writeInt64(e.LocationID)
	}
	if p.SizeofEdgeTrait > 0 {
		writeWords(e.Trait, traitWords)
	}
	if p.HasActiveField {
		if e.Active {
			buf[off] = 1
		} else {
			buf[off] = 0
		}
		off++
	}
	if p.HasWeightField {
		writeFloat64(e.Weight)
	}
}
