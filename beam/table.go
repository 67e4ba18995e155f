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

// Package beam accumulates beam-sweep measurements and selects the best beam pairs.
package beam

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	. "github.com/mmwns/mmw-ns/types"
)

// PairKey identifies one (rx beam, tx beam) combination.
type PairKey struct {
	Rx, Tx BeamId
}

// Scope is the candidate universe of a sweep.
type Scope int

const (
	// ScopeFull measures every rx beam against every announced tx beam (SSB sweep).
	ScopeFull Scope = iota
	// ScopeReduced measures only the RLM beam pairs (CSI-RS sweep).
	ScopeReduced
)

func (s Scope) String() string {
	if s == ScopeReduced {
		return "reduced"
	}
	return "full"
}

// ParseScope accepts "full" or "reduced".
func ParseScope(s string) (Scope, error) {
	switch s {
	case "full", "":
		return ScopeFull, nil
	case "reduced":
		return ScopeReduced, nil
	}
	return ScopeFull, errors.Errorf("unknown sweep scope %q", s)
}

// SweepTable holds the SNR of every measured pair of one UE towards one cell during a sweep.
// Measurements keep their first-seen order, which breaks ties.
type SweepTable struct {
	CellId   NodeId
	expected map[PairKey]struct{}
	index    map[PairKey]int
	pairs    []PairKey
	snrs     []float64
}

func newSweepTable(cell NodeId) *SweepTable {
	return &SweepTable{
		CellId:   cell,
		expected: map[PairKey]struct{}{},
		index:    map[PairKey]int{},
	}
}

// NewFullSweepTable expects every combination of rxBeams and txBeams.
func NewFullSweepTable(cell NodeId, rxBeams, txBeams []BeamId) *SweepTable {
	t := newSweepTable(cell)
	for _, rx := range rxBeams {
		for _, tx := range txBeams {
			t.expected[PairKey{rx, tx}] = struct{}{}
		}
	}
	return t
}

// NewReducedSweepTable expects only the given pairs.
func NewReducedSweepTable(cell NodeId, pairs []PairKey) *SweepTable {
	t := newSweepTable(cell)
	for _, p := range pairs {
		t.expected[p] = struct{}{}
	}
	return t
}

// Record stores a measurement. Pairs outside the expected set are ignored and reported false.
// A repeated pair keeps its position and takes the newer SNR.
func (t *SweepTable) Record(rx, tx BeamId, snrDb float64) bool {
	k := PairKey{rx, tx}
	if _, ok := t.expected[k]; !ok {
		return false
	}
	if i, ok := t.index[k]; ok {
		t.snrs[i] = snrDb
		return true
	}
	t.index[k] = len(t.pairs)
	t.pairs = append(t.pairs, k)
	t.snrs = append(t.snrs, snrDb)
	return true
}

// Expects tells whether the pair belongs to the table's candidate set.
func (t *SweepTable) Expects(rx, tx BeamId) bool {
	_, ok := t.expected[PairKey{rx, tx}]
	return ok
}

func (t *SweepTable) Snr(rx, tx BeamId) (float64, bool) {
	i, ok := t.index[PairKey{rx, tx}]
	if !ok {
		return 0, false
	}
	return t.snrs[i], true
}

// Count is the number of distinct measured pairs.
func (t *SweepTable) Count() int {
	return len(t.pairs)
}

func (t *SweepTable) Expected() int {
	return len(t.expected)
}

// Complete is true when every expected pair has been measured.
func (t *SweepTable) Complete() bool {
	return len(t.expected) > 0 && len(t.pairs) == len(t.expected)
}

// Best returns the max-SNR pair; among equal SNRs the first measured wins.
func (t *SweepTable) Best() (BeamPair, bool) {
	if len(t.snrs) == 0 {
		return BeamPair{}, false
	}
	i := floats.MaxIdx(t.snrs)
	return BeamPair{Rx: t.pairs[i].Rx, Tx: t.pairs[i].Tx, SnrDb: t.snrs[i]}, true
}

// TopK returns up to k pairs sorted by descending SNR.
func (t *SweepTable) TopK(k int) []BeamPair {
	return topK(t.pairs, t.snrs, k)
}

// PairKeys strips the SNRs off a list of beam pairs.
func PairKeys(pairs []BeamPair) []PairKey {
	res := make([]PairKey, len(pairs))
	for i, p := range pairs {
		res[i] = PairKey{Rx: p.Rx, Tx: p.Tx}
	}
	return res
}

// RxBeams returns the distinct rx beams of pairs in first-seen order.
func RxBeams(pairs []PairKey) []BeamId {
	seen := map[BeamId]bool{}
	var res []BeamId
	for _, p := range pairs {
		if !seen[p.Rx] {
			seen[p.Rx] = true
			res = append(res, p.Rx)
		}
	}
	return res
}
