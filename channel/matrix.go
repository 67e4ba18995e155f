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

package channel

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

// LargeScale holds the large-scale parameters drawn for one statistical realization.
// Spreads in ns (DS) and degrees; K and SF in dB.
type LargeScale struct {
	DS, ASD, ASA, ZSD, ZSA float64
	KDb                    float64
	SFDb                   float64
}

// rayState is the per-ray randomness a consistent update must keep.
type rayState struct {
	// offsets[n][m] per angle (AoA, AoD, ZoA, ZoD) after random coupling, degrees
	aoa, aod, zoa, zod [][]float64
	// phases[n][m][4] for the theta-theta, theta-phi, phi-theta and phi-phi components
	phases [][][4]float64
	xpr    [][]float64
	// cluster powers before the LOS term, used for coefficient amplitudes
	nlosPowers []float64
	// cluster powers before blockage
	powers []float64
	// direct path: AoA, ZoA, AoD, ZoD and the 3D distance in m
	losAngles   [4]float64
	losDistance float64
}

func (r *rayState) reorder(idx []int) *rayState {
	c := *r
	c.aoa = reorderRows(r.aoa, idx)
	c.aod = reorderRows(r.aod, idx)
	c.zoa = reorderRows(r.zoa, idx)
	c.zod = reorderRows(r.zod, idx)
	c.xpr = reorderRows(r.xpr, idx)
	c.phases = make([][][4]float64, len(idx))
	for i, j := range idx {
		c.phases[i] = r.phases[j]
	}
	c.nlosPowers = reorderValues(r.nlosPowers, idx)
	c.powers = reorderValues(r.powers, idx)
	return &c
}

func reorderValues(v []float64, idx []int) []float64 {
	res := make([]float64, len(idx))
	for i, j := range idx {
		res[i] = v[j]
	}
	return res
}

func reorderRows(v [][]float64, idx []int) [][]float64 {
	res := make([][]float64, len(idx))
	for i, j := range idx {
		res[i] = v[j]
	}
	return res
}

// SpatialChannelMatrix is one immutable realization of the channel between two nodes. Stored
// orientation is TxId -> RxId; a matrix handed out with Reversed set is being read in the
// opposite direction and shares all content with the stored one.
type SpatialChannelMatrix struct {
	TxId, RxId NodeId
	Reversed   bool
	Condition  Condition

	// per cluster
	Delays []float64 // ns
	Powers []float64 // linear
	AoA    []float64
	AoD    []float64
	ZoA    []float64
	ZoD    []float64
	// DopplerScale multiplies the Doppler shift of a cluster: 1 for statistical clusters,
	// the drawn coefficient in [-1, 1] for ray-traced paths.
	DopplerScale []float64

	// Coefficients[rx][tx][cluster]
	Coefficients [][][]complex128

	RxElements, TxElements int
	CarrierHz              float64
	Lsp                    LargeScale
	// PathLossIncluded is set when the coefficients already carry the propagation loss
	// (ray-traced realizations).
	PathLossIncluded bool
	Blockers         []BlockageRegion

	GeneratedAt  uint64
	GenerationId uint64
	TimeIndex    int

	rays *rayState
}

// IsLos is true for LOS realizations.
func (m *SpatialChannelMatrix) IsLos() bool {
	return m.Condition == ConditionLos
}

// IsO2i is true for outdoor-to-indoor realizations.
func (m *SpatialChannelMatrix) IsO2i() bool {
	return m.Condition == ConditionO2i
}

func (m *SpatialChannelMatrix) NumClusters() int {
	return len(m.Delays)
}

// ElementCounts returns the (tx, rx) element counts as seen by the reader of this view.
func (m *SpatialChannelMatrix) ElementCounts() (tx, rx int) {
	if m.Reversed {
		return m.RxElements, m.TxElements
	}
	return m.TxElements, m.RxElements
}

// view returns a shallow copy with the Reversed flag set as requested.
func (m *SpatialChannelMatrix) view(reversed bool) *SpatialChannelMatrix {
	if m.Reversed == reversed {
		return m
	}
	v := *m
	v.Reversed = reversed
	return &v
}

// Validate checks the structural invariants of a realization.
func (m *SpatialChannelMatrix) Validate() error {
	n := len(m.Delays)
	for name, l := range map[string]int{"powers": len(m.Powers), "AoA": len(m.AoA), "AoD": len(m.AoD),
		"ZoA": len(m.ZoA), "ZoD": len(m.ZoD), "doppler": len(m.DopplerScale)} {
		if l != n {
			return errors.Errorf("%s has %d entries for %d clusters", name, l, n)
		}
	}
	if len(m.Coefficients) != m.RxElements {
		return errors.Errorf("coefficients have %d rx rows, expected %d", len(m.Coefficients), m.RxElements)
	}
	for u := range m.Coefficients {
		if len(m.Coefficients[u]) != m.TxElements {
			return errors.Errorf("coefficient row %d has %d tx entries, expected %d", u, len(m.Coefficients[u]), m.TxElements)
		}
		for s := range m.Coefficients[u] {
			if len(m.Coefficients[u][s]) != n {
				return errors.Errorf("coefficient (%d,%d) has %d clusters, expected %d", u, s, len(m.Coefficients[u][s]), n)
			}
		}
	}
	for i := 1; i < n; i++ {
		if m.Delays[i] < m.Delays[i-1] && !m.PathLossIncluded {
			return errors.Errorf("delays not sorted at cluster %d", i)
		}
	}
	return nil
}

func (m *SpatialChannelMatrix) String() string {
	return fmt.Sprintf("channel %d->%d %s clusters=%d gen=%d@%d reversed=%v",
		m.TxId, m.RxId, m.Condition, m.NumClusters(), m.GenerationId, m.GeneratedAt, m.Reversed)
}

func newCoefficients(rx, tx, clusters int) [][][]complex128 {
	backing := make([]complex128, rx*tx*clusters)
	c := make([][][]complex128, rx)
	for u := range c {
		c[u] = make([][]complex128, tx)
		for s := range c[u] {
			off := (u*tx + s) * clusters
			c[u][s] = backing[off : off+clusters : off+clusters]
		}
	}
	return c
}

func assertValid(m *SpatialChannelMatrix) {
	if err := m.Validate(); err != nil {
		logger.Panicf("invalid channel realization %v: %v", m, err)
	}
}
