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
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/raytrace"
	. "github.com/mmwns/mmw-ns/types"
)

type pedestrianKey struct {
	tx        int
	ue        NodeId
	timeIndex int
}

// rayTracedGenerator builds realizations from recorded paths, one cluster per path.
type rayTracedGenerator struct {
	params  *Params
	data    *raytrace.Dataset
	uniform distuv.Uniform
	// blocked keeps the pedestrian decision of a recorded link per time index
	blocked map[pedestrianKey]bool
}

func newRayTracedGenerator(params *Params, data *raytrace.Dataset, src rand.Source) *rayTracedGenerator {
	return &rayTracedGenerator{
		params:  params,
		data:    data,
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
		blocked: map[pedestrianKey]bool{},
	}
}

func (g *rayTracedGenerator) isBlocked(key pedestrianKey) bool {
	if !g.params.PedestrianBlockage {
		return false
	}
	b, ok := g.blocked[key]
	if !ok {
		b = g.uniform.Rand() < g.params.PedestrianProb
		g.blocked[key] = b
	}
	return b
}

// paths returns the recorded paths for the link at the current positions, possibly none.
func (g *rayTracedGenerator) paths(tx, rx Endpoint) (int, []raytrace.Path) {
	txIdx := g.data.TxIndexAt(tx.Mobility.Position(), g.params.TxMatchTolerance)
	if txIdx < 0 {
		logger.Debugf("no ray-trace transmitter at %v for node %d", tx.Mobility.Position(), tx.Mobility.Id())
		return txIdx, nil
	}
	rec, ok := g.data.Lookup(txIdx, rx.Mobility.Position())
	if !ok {
		logger.Debugf("no ray-trace record of transmitter %d at %v", txIdx, rx.Mobility.Position())
		return txIdx, nil
	}
	if g.params.StrongestPathOnly && len(rec.Paths) > 0 {
		return txIdx, rec.Paths[rec.StrongestPath() : rec.StrongestPath()+1]
	}
	return txIdx, rec.Paths
}

func (g *rayTracedGenerator) generate(tx, rx Endpoint, timeIndex int, now uint64) *SpatialChannelMatrix {
	txIdx, paths := g.paths(tx, rx)
	n := len(paths)
	txPos, rxPos := elementPositions(tx.Antenna), elementPositions(rx.Antenna)

	res := &SpatialChannelMatrix{
		TxId:             tx.Mobility.Id(),
		RxId:             rx.Mobility.Id(),
		Condition:        ConditionNlos,
		Delays:           make([]float64, n),
		Powers:           make([]float64, n),
		AoA:              make([]float64, n),
		AoD:              make([]float64, n),
		ZoA:              make([]float64, n),
		ZoD:              make([]float64, n),
		DopplerScale:     make([]float64, n),
		Coefficients:     newCoefficients(len(rxPos), len(txPos), n),
		RxElements:       len(rxPos),
		TxElements:       len(txPos),
		CarrierHz:        g.params.CarrierHz,
		PathLossIncluded: true,
		GeneratedAt:      now,
		TimeIndex:        timeIndex,
	}
	blocked := n > 0 && g.isBlocked(pedestrianKey{tx: txIdx, ue: rx.Mobility.Id(), timeIndex: timeIndex})

	rxPhase := make([]complex128, len(rxPos))
	txPhase := make([]complex128, len(txPos))
	for i, p := range paths {
		loss := p.LossDb
		if p.Los {
			res.Condition = ConditionLos
			if blocked {
				loss += g.params.PedestrianLossDb
			}
		}
		res.Delays[i] = p.DelayNs
		res.Powers[i] = math.Pow(10, -loss/10)
		res.AoA[i], res.ZoA[i] = WrapAzimuth(p.AoA), WrapZenith(p.ZoA)
		res.AoD[i], res.ZoD[i] = WrapAzimuth(p.AoD), WrapZenith(p.ZoD)
		res.DopplerScale[i] = 2*g.uniform.Rand() - 1

		rxT, rxP := rx.Antenna.FieldPattern(res.ZoA[i], res.AoA[i])
		txT, txP := tx.Antenna.FieldPattern(res.ZoD[i], res.AoD[i])
		phase := p.PhaseDeg*math.Pi/180 - 2*math.Pi*g.params.CarrierHz*p.DelayNs*1e-9
		coef := complex(math.Sqrt(res.Powers[i])*(rxT*txT+rxP*txP), 0) * cis(phase)

		steering(rxPhase, rxPos, UnitFromAngles(res.AoA[i], res.ZoA[i]))
		steering(txPhase, txPos, UnitFromAngles(res.AoD[i], res.ZoD[i]))
		for u, ru := range rxPhase {
			cu := coef * ru
			for s, ts := range txPhase {
				res.Coefficients[u][s][i] = cu * ts
			}
		}
	}
	return res
}
