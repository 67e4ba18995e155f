// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package raytrace loads pre-computed ray-tracing data: transmitter locations, the receiver
// walk, and per-transmitter multipath records indexed by receiver position.
package raytrace

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	. "github.com/mmwns/mmw-ns/types"
)

const (
	// RecordLines is the record cycle without per-path phases.
	RecordLines = 9
	// RecordLinesWithPhase adds a trailing per-path phase line.
	RecordLinesWithPhase = 10
)

// Path is one recorded propagation path. Angles in degrees, delay in ns, loss in dB.
type Path struct {
	DelayNs  float64
	LossDb   float64
	Los      bool
	AoD      float64
	ZoD      float64
	AoA      float64
	ZoA      float64
	PhaseDeg float64
}

// Record is the set of paths seen at one receiver position.
type Record struct {
	Position Vector
	Paths    []Path
}

// StrongestPath returns the index of the path with the least loss, or -1 without paths.
func (r *Record) StrongestPath() int {
	best := -1
	for i, p := range r.Paths {
		if best < 0 || p.LossDb < r.Paths[best].LossDb {
			best = i
		}
	}
	return best
}

type gridKey struct {
	x, y, z int64
}

// LinkTrace holds all records of one transmitter, indexed by rounded receiver position.
type LinkTrace struct {
	Records    []Record
	resolution float64
	index      map[gridKey]int
}

func newLinkTrace(resolution float64) *LinkTrace {
	if resolution <= 0 {
		resolution = 1
	}
	return &LinkTrace{resolution: resolution, index: map[gridKey]int{}}
}

func (lt *LinkTrace) key(p Vector) gridKey {
	return gridKey{
		x: int64(math.Round(p.X / lt.resolution)),
		y: int64(math.Round(p.Y / lt.resolution)),
		z: int64(math.Round(p.Z / lt.resolution)),
	}
}

func (lt *LinkTrace) add(r Record) {
	lt.index[lt.key(r.Position)] = len(lt.Records)
	lt.Records = append(lt.Records, r)
}

// Lookup returns the record for the receiver position rounded to the trace grid.
func (lt *LinkTrace) Lookup(pos Vector) (*Record, bool) {
	i, ok := lt.index[lt.key(pos)]
	if !ok {
		return nil, false
	}
	return &lt.Records[i], true
}

func (lt *LinkTrace) Len() int {
	return len(lt.Records)
}

func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
}

func parseFloats(line string) ([]float64, error) {
	fields := splitFields(line)
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad number %q", f)
		}
		vals[i] = v
	}
	return vals, nil
}

func parsePosition(line string) (Vector, error) {
	vals, err := parseFloats(line)
	if err != nil {
		return Vector{}, err
	}
	if len(vals) != 3 {
		return Vector{}, errors.Errorf("position needs 3 coordinates, got %d", len(vals))
	}
	return Vector{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// LoadPositions reads one x,y,z position per non-empty line.
func LoadPositions(r io.Reader) ([]Vector, error) {
	var res []Vector
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parsePosition(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		res = append(res, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func LoadPositionsFile(path string) ([]Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	res, err := LoadPositions(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return res, nil
}

// LoadLinkRecords parses the fixed line cycle of a per-transmitter trace:
// position | path count | delays (s) | losses (dB) | LOS flags | AoD | ZoD | AoA | ZoA [| phases].
// Every record keeps the full cycle; per-path lines are empty when the path count is 0.
func LoadLinkRecords(r io.Reader, cycle int, resolution float64) (*LinkTrace, error) {
	if cycle != RecordLines && cycle != RecordLinesWithPhase {
		return nil, errors.Errorf("unsupported record cycle of %d lines", cycle)
	}
	lt := newLinkTrace(resolution)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lines := make([]string, 0, cycle)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		lines = append(lines, strings.TrimSpace(scanner.Text()))
		if len(lines) < cycle {
			continue
		}
		rec, err := parseRecord(lines)
		if err != nil {
			return nil, errors.Wrapf(err, "record ending at line %d", lineNo)
		}
		lt.add(rec)
		lines = lines[:0]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) > 0 && !(len(lines) == 1 && lines[0] == "") {
		return nil, errors.Errorf("truncated record: %d trailing lines", len(lines))
	}
	return lt, nil
}

func parseRecord(lines []string) (Record, error) {
	var rec Record
	var err error
	if rec.Position, err = parsePosition(lines[0]); err != nil {
		return rec, errors.Wrap(err, "position")
	}
	n, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil || n < 0 {
		return rec, errors.Errorf("bad path count %q", lines[1])
	}

	cols := make([][]float64, len(lines)-2)
	for i := range cols {
		if cols[i], err = parseFloats(lines[i+2]); err != nil {
			return rec, errors.Wrapf(err, "line %d of record", i+3)
		}
		if len(cols[i]) != n {
			return rec, errors.Errorf("line %d of record has %d values, expected %d", i+3, len(cols[i]), n)
		}
	}

	rec.Paths = make([]Path, n)
	for k := 0; k < n; k++ {
		los := cols[2][k]
		if los != 0 && los != 1 {
			return rec, errors.Errorf("LOS flag must be 0 or 1, got %v", los)
		}
		rec.Paths[k] = Path{
			DelayNs: cols[0][k] * 1e9,
			LossDb:  cols[1][k],
			Los:     los == 1,
			AoD:     cols[3][k],
			ZoD:     cols[4][k],
			AoA:     cols[5][k],
			ZoA:     cols[6][k],
		}
		if len(cols) > 7 {
			rec.Paths[k].PhaseDeg = cols[7][k]
		}
	}
	return rec, nil
}

func LoadLinkRecordsFile(path string, cycle int, resolution float64) (*LinkTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	lt, err := LoadLinkRecords(f, cycle, resolution)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return lt, nil
}
