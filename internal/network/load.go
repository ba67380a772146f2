package network

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// columnOrder returns the CSV header columns implied by a preamble's
// presence flags, matching spec.md §6's fixed field order:
// targetPID,targetActivity,sourcePID,sourceActivity,duration[,LID][,edgeTrait][,active][,weight]
func columnOrder(p *Preamble) []string {
	cols := []string{"targetPID", "targetActivity", "sourcePID", "sourceActivity", "duration"}
	if p.HasLocationIDField {
		cols = append(cols, "LID")
	}
	if p.SizeofEdgeTrait > 0 {
		cols = append(cols, "edgeTrait")
	}
	if p.HasActiveField {
		cols = append(cols, "active")
	}
	if p.HasWeightField {
		cols = append(cols, "weight")
	}
	return cols
}

// LoadText parses a text-encoded contact-network file: one JSON preamble
// line, one CSV header line, then one edge per line (spec.md §6).
func LoadText(r io.Reader) (*Preamble, []Edge, error) {
	br := bufio.NewReaderSize(r, 1<<20)

	preambleLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read preamble: %w", err)
	}
	var preamble Preamble
	if err := json.Unmarshal([]byte(strings.TrimSpace(preambleLine)), &preamble); err != nil {
		return nil, nil, fmt.Errorf("parse preamble: %w", err)
	}

	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header := strings.Split(strings.TrimSpace(headerLine), ",")
	want := columnOrder(&preamble)
	if len(header) != len(want) {
		return nil, nil, fmt.Errorf("header has %d columns, expected %d (%v)", len(header), len(want), want)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = len(want)
	edges := make([]Edge, 0, preamble.NumberOfEdges)
	activityWords := (preamble.SizeofActivity*8 + 63) / 64
	if activityWords == 0 {
		activityWords = 1
	}
	traitWords := (preamble.SizeofEdgeTrait*8 + 63) / 64

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read edge row: %w", err)
		}
		e, err := parseTextEdge(row, &preamble, activityWords, traitWords)
		if err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return &preamble, edges, nil
}

func parseTextEdge(row []string, p *Preamble, activityWords, traitWords int) (Edge, error) {
	var e Edge
	col := 0
	next := func() string { v := row[col]; col++; return v }

	target, err := strconv.ParseInt(next(), 10, 64)
	if err != nil {
		return e, fmt.Errorf("targetPID: %w", err)
	}
	e.Target = target

	e.TargetActivity, err = parseWords(next(), activityWords)
	if err != nil {
		return e, fmt.Errorf("targetActivity: %w", err)
	}

	source, err := strconv.ParseInt(next(), 10, 64)
	if err != nil {
		return e, fmt.Errorf("sourcePID: %w", err)
	}
	e.Source = source

	e.SourceActivity, err = parseWords(next(), activityWords)
	if err != nil {
		return e, fmt.Errorf("sourceActivity: %w", err)
	}

	duration, err := strconv.ParseFloat(next(), 64)
	if err != nil {
		return e, fmt.Errorf("duration: %w", err)
	}
	e.Duration = duration

	if p.HasLocationIDField {
		lid, err := strconv.ParseInt(next(), 10, 64)
		if err != nil {
			return e, fmt.Errorf("LID: %w", err)
		}
		e.HasLocationID = true
		e.LocationID = lid
	}
	if p.SizeofEdgeTrait > 0 {
		e.Trait, err = parseWords(next(), traitWords)
		if err != nil {
			return e, fmt.Errorf("edgeTrait: %w", err)
		}
		e.HasTrait = true
	}
	if p.HasActiveField {
		active, err := strconv.ParseBool(next())
		if err != nil {
			return e, fmt.Errorf("active: %w", err)
		}
		e.HasActive = true
		e.Active = active
	}
	if p.HasWeightField {
		weight, err := strconv.ParseFloat(next(), 64)
		if err != nil {
			return e, fmt.Errorf("weight: %w", err)
		}
		e.HasWeight = true
		e.Weight = weight
	}
	return e, nil
}

// parseWords decodes a hex string into n uint64 words, big-endian per word.
func parseWords(s string, n int) ([]uint64, error) {
	if n == 0 {
		return nil, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := 0; i < n && (i+1)*8 <= len(raw); i++ {
		out[i] = binary.BigEndian.Uint64(raw[i*8 : (i+1)*8])
	}
	return out, nil
}

func formatWords(words []uint64) string {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint64(buf[i*8:(i+1)*8], w)
	}
	return hex.EncodeToString(buf)
}

// WriteText serializes a preamble + edge slice back to the text encoding,
// used by round-trip tests (spec.md §8, property 7).
func WriteText(w io.Writer, p *Preamble, edges []Edge) error {
	bw := bufio.NewWriter(w)
	preambleBytes, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if _, err := bw.Write(preambleBytes); err != nil {
		return err
	}
	bw.WriteByte('\n')
	cols := columnOrder(p)
	bw.WriteString(strings.Join(cols, ","))
	bw.WriteByte('\n')

	for _, e := range edges {
		fields := []string{
			strconv.FormatInt(e.Target, 10),
			formatWords(e.TargetActivity),
			strconv.FormatInt(e.Source, 10),
			formatWords(e.SourceActivity),
			strconv.FormatFloat(e.Duration, 'g', -1, 64),
		}
		if p.HasLocationIDField {
			fields = append(fields, strconv.FormatInt(e.LocationID, 10))
		}
		if p.SizeofEdgeTrait > 0 {
			fields = append(fields, formatWords(e.Trait))
		}
		if p.HasActiveField {
			fields = append(fields, strconv.FormatBool(e.Active))
		}
		if p.HasWeightField {
			fields = append(fields, strconv.FormatFloat(e.Weight, 'g', -1, 64))
		}
		bw.WriteString(strings.Join(fields, ","))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
