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
	"math"

	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/spectrum"
	. "github.com/mmwns/mmw-ns/types"
)

type longTermEntry struct {
	generationId uint64
	txW, rxW     []complex128
	long         []complex128
}

// GainCalculator applies the beamformed channel to a transmit PSD. The per-cluster long-term
// term depends only on the realization and the two weight vectors, so it is cached per pair.
type GainCalculator struct {
	cache map[pairKey]*longTermEntry
	// LongTermComputations counts cache misses.
	LongTermComputations uint64
}

func NewGainCalculator() *GainCalculator {
	return &GainCalculator{cache: map[pairKey]*longTermEntry{}}
}

func sameWeights(a, b []complex128) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// longTerm contracts the coefficient tensor with both weight vectors. Weights are given in the
// stored orientation of m.
func (gc *GainCalculator) longTerm(m *SpatialChannelMatrix, txW, rxW []complex128) []complex128 {
	key, _ := makePairKey(m.TxId, m.RxId)
	if e, ok := gc.cache[key]; ok && e.generationId == m.GenerationId && sameWeights(e.txW, txW) && sameWeights(e.rxW, rxW) {
		return e.long
	}

	n := m.NumClusters()
	long := make([]complex128, n)
	for u, row := range m.Coefficients {
		wu := conj(rxW[u])
		for s, h := range row {
			ws := wu * conj(txW[s])
			for c := 0; c < n; c++ {
				long[c] += ws * h[c]
			}
		}
	}
	gc.cache[key] = &longTermEntry{
		generationId: m.GenerationId,
		txW:          append([]complex128(nil), txW...),
		rxW:          append([]complex128(nil), rxW...),
		long:         long,
	}
	gc.LongTermComputations++
	return long
}

func conj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

// ApplyGain returns a new PSD equal to txPsd scaled per sub-band by the beamformed channel
// power gain. Weights and velocities are given in the query orientation of m.
func (gc *GainCalculator) ApplyGain(txPsd *spectrum.Value, m *SpatialChannelMatrix, txW, rxW []complex128,
	txVel, rxVel Vector, now uint64) *spectrum.Value {
	logger.AssertTrue(m.NumClusters() > 0, "beamforming gain needs at least one cluster")
	if m.Reversed {
		txW, rxW = rxW, txW
		txVel, rxVel = rxVel, txVel
	}
	logger.AssertEqual(m.TxElements, len(txW), "tx weight vector length")
	logger.AssertEqual(m.RxElements, len(rxW), "rx weight vector length")

	long := gc.longTerm(m, txW, rxW)

	lambda := speedOfLight / m.CarrierHz
	t := 0.0
	if now > m.GeneratedAt {
		t = float64(now-m.GeneratedAt) / float64(Second)
	}
	doppler := make([]complex128, len(long))
	speed := rxVel.Sub(txVel).Norm()
	for c := range doppler {
		var fd float64
		if m.PathLossIncluded {
			fd = m.DopplerScale[c] * speed / lambda
		} else {
			rRx := UnitFromAngles(m.AoA[c], m.ZoA[c])
			rTx := UnitFromAngles(m.AoD[c], m.ZoD[c])
			fd = m.DopplerScale[c] * (rRx.Dot(rxVel) + rTx.Dot(txVel)) / lambda
		}
		doppler[c] = cis(2 * math.Pi * fd * t)
	}

	out := txPsd.Copy()
	for k, band := range out.Model.Bands {
		if out.Psd[k] == 0 {
			continue
		}
		var sum complex128
		for c, l := range long {
			sum += l * cis(-2*math.Pi*band.Center*m.Delays[c]*1e-9) * doppler[c]
		}
		out.Psd[k] *= real(sum)*real(sum) + imag(sum)*imag(sum)
	}
	return out
}

// Forget drops the cached long-term terms of a pair.
func (gc *GainCalculator) Forget(a, b NodeId) {
	key, _ := makePairKey(a, b)
	delete(gc.cache, key)
}
