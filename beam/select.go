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

package beam

import (
	"sort"

	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

func topK(pairs []PairKey, snrs []float64, k int) []BeamPair {
	idx := make([]int, len(pairs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return snrs[idx[a]] > snrs[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	res := make([]BeamPair, len(idx))
	for i, j := range idx {
		res[i] = BeamPair{Rx: pairs[j].Rx, Tx: pairs[j].Tx, SnrDb: snrs[j]}
	}
	return res
}

// Accumulator collects the sweep tables of one UE towards all cells it can hear.
type Accumulator struct {
	UeId   NodeId
	Scope  Scope
	tables map[NodeId]*SweepTable
	cells  []NodeId
	// StartedAt is the simulated time the current sweep started.
	StartedAt uint64
	active    bool
}

func NewAccumulator(ue NodeId) *Accumulator {
	return &Accumulator{UeId: ue, tables: map[NodeId]*SweepTable{}}
}

// Start begins a new sweep with one table per cell, dropping anything accumulated before.
func (a *Accumulator) Start(scope Scope, now uint64, tables ...*SweepTable) {
	a.Reset()
	a.Scope = scope
	a.StartedAt = now
	a.active = true
	for _, t := range tables {
		logger.AssertFalse(a.tables[t.CellId] != nil, "duplicate sweep table for cell %d", t.CellId)
		a.tables[t.CellId] = t
		a.cells = append(a.cells, t.CellId)
	}
}

// Reset clears all tables and ends the sweep.
func (a *Accumulator) Reset() {
	a.tables = map[NodeId]*SweepTable{}
	a.cells = nil
	a.active = false
}

func (a *Accumulator) Active() bool {
	return a.active
}

func (a *Accumulator) Cells() []NodeId {
	return a.cells
}

func (a *Accumulator) Table(cell NodeId) *SweepTable {
	return a.tables[cell]
}

// Record stores one measurement for a cell. Unknown cells and unexpected pairs are ignored.
func (a *Accumulator) Record(cell NodeId, rx, tx BeamId, snrDb float64) bool {
	t := a.tables[cell]
	if t == nil {
		return false
	}
	return t.Record(rx, tx, snrDb)
}

// Complete is true when every cell's table is complete.
func (a *Accumulator) Complete() bool {
	if len(a.cells) == 0 {
		return false
	}
	for _, c := range a.cells {
		if !a.tables[c].Complete() {
			return false
		}
	}
	return true
}

// Progress returns measured and expected pair counts over all cells.
func (a *Accumulator) Progress() (done, expected int) {
	for _, c := range a.cells {
		done += a.tables[c].Count()
		expected += a.tables[c].Expected()
	}
	return
}

// CellBest returns the best pair of every cell with at least one measurement.
func (a *Accumulator) CellBest() map[NodeId]BeamPair {
	res := map[NodeId]BeamPair{}
	for _, c := range a.cells {
		if best, ok := a.tables[c].Best(); ok {
			res[c] = best
		}
	}
	return res
}

// BestCell returns the cell with the overall max-SNR pair. Ties keep the earlier cell.
func (a *Accumulator) BestCell() (NodeId, BeamPair, bool) {
	bestCell := InvalidNodeId
	var best BeamPair
	found := false
	for _, c := range a.cells {
		p, ok := a.tables[c].Best()
		if ok && (!found || p.SnrDb > best.SnrDb) {
			bestCell, best, found = c, p, true
		}
	}
	return bestCell, best, found
}
