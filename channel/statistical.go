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
	"math/cmplx"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/mobility"
	. "github.com/mmwns/mmw-ns/types"
)

// clusters weaker than this (relative to the strongest) are removed, TR 38.901 step 6
const clusterPowerFloorDb = -25.0

// Endpoint is one side of a link: its motion and its antenna.
type Endpoint struct {
	Mobility mobility.Provider
	Antenna  antenna.Controller
}

type statisticalGenerator struct {
	params   *Params
	normal   distuv.Normal
	uniform  distuv.Uniform
	rnd      *rand.Rand
	blockage *blockageModel
}

func newStatisticalGenerator(params *Params, src, blockSrc rand.Source) *statisticalGenerator {
	return &statisticalGenerator{
		params:   params,
		normal:   distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform:  distuv.Uniform{Min: 0, Max: 1, Src: src},
		rnd:      rand.New(src),
		blockage: newBlockageModel(params, blockSrc),
	}
}

// drawLsp returns correlated large-scale parameters.
func (g *statisticalGenerator) drawLsp(p *lspParams, los bool) LargeScale {
	x := mat.NewVecDense(numLsp, nil)
	for i := 0; i < numLsp; i++ {
		x.SetVec(i, g.normal.Rand())
	}
	var y mat.VecDense
	y.MulVec(p.sqrtC, x)

	lsp := LargeScale{
		DS:   math.Pow(10, p.uLgDS+p.sigLgDS*y.AtVec(lspDS)) * 1e9,
		ASD:  math.Min(math.Pow(10, p.uLgASD+p.sigLgASD*y.AtVec(lspASD)), 104),
		ASA:  math.Min(math.Pow(10, p.uLgASA+p.sigLgASA*y.AtVec(lspASA)), 104),
		ZSD:  math.Min(math.Pow(10, p.uLgZSD+p.sigLgZSD*y.AtVec(lspZSD)), 52),
		ZSA:  math.Min(math.Pow(10, p.uLgZSA+p.sigLgZSA*y.AtVec(lspZSA)), 52),
		SFDb: p.sigSF * y.AtVec(lspSF),
	}
	if los {
		lsp.KDb = p.uK + p.sigK*y.AtVec(lspK)
	}
	return lsp
}

func (g *statisticalGenerator) randomSign() float64 {
	if g.uniform.Rand() < 0.5 {
		return -1
	}
	return 1
}

// generate draws a fresh realization for tx (base station side) and rx (user side).
func (g *statisticalGenerator) generate(tx, rx Endpoint, cond Condition, blockers []BlockageRegion, now uint64) *SpatialChannelMatrix {
	txPos, rxPos := tx.Mobility.Position(), rx.Mobility.Position()
	d2D := txPos.Distance2DTo(rxPos)
	p := tableFor(g.params.Scenario, cond, g.params.CarrierHz/1e9, d2D, rxPos.Z, txPos.Z)
	los := cond == ConditionLos
	lsp := g.drawLsp(p, los)

	rays := &rayState{losDistance: txPos.DistanceTo(rxPos)}
	rays.losAngles[0], rays.losAngles[1] = rxPos.Angles(txPos)
	rays.losAngles[2], rays.losAngles[3] = txPos.Angles(rxPos)

	// delays, ns
	n := p.numClusters
	delays := make([]float64, n)
	for i := range delays {
		delays[i] = -p.rTau * lsp.DS * math.Log(1-g.uniform.Rand())
	}
	floats.AddConst(-floats.Min(delays), delays)
	idx := make([]int, n)
	floats.Argsort(delays, idx)

	// powers
	nlosPowers := make([]float64, n)
	for i, tau := range delays {
		z := g.normal.Rand() * p.clusterShadowing
		nlosPowers[i] = math.Exp(-tau*(p.rTau-1)/(p.rTau*lsp.DS)) * math.Pow(10, -z/10)
	}
	floats.Scale(1/floats.Sum(nlosPowers), nlosPowers)
	powers := append([]float64(nil), nlosPowers...)
	kR := 0.0
	if los {
		kR = math.Pow(10, lsp.KDb/10)
		floats.Scale(1/(kR+1), powers)
		powers[0] += kR / (kR + 1)
		floats.Scale(1/delayScalingLos(lsp.KDb), delays)
	}

	keep := make([]int, 0, n)
	floor := floats.Max(powers) * math.Pow(10, clusterPowerFloorDb/10)
	for i, pw := range powers {
		if pw >= floor {
			keep = append(keep, i)
		}
	}
	delays = reorderValues(delays, keep)
	powers = reorderValues(powers, keep)
	nlosPowers = reorderValues(nlosPowers, keep)
	floats.AddConst(-delays[0], delays)
	n = len(keep)

	// angles
	maxP := floats.Max(powers)
	cPhi := scalingPhi(p.numClusters, los, lsp.KDb)
	cTheta := scalingTheta(p.numClusters, los, lsp.KDb)
	aoa := make([]float64, n)
	aod := make([]float64, n)
	zoa := make([]float64, n)
	zod := make([]float64, n)
	for i := 0; i < n; i++ {
		lnRatio := math.Log(powers[i] / maxP)
		aoa[i] = g.randomSign()*2*(lsp.ASA/1.4)*math.Sqrt(-lnRatio)/cPhi + g.normal.Rand()*lsp.ASA/7
		aod[i] = g.randomSign()*2*(lsp.ASD/1.4)*math.Sqrt(-lnRatio)/cPhi + g.normal.Rand()*lsp.ASD/7
		zoa[i] = g.randomSign()*(-lsp.ZSA*lnRatio/cTheta) + g.normal.Rand()*lsp.ZSA/7
		zod[i] = g.randomSign()*(-lsp.ZSD*lnRatio/cTheta) + g.normal.Rand()*lsp.ZSD/7
	}
	if los {
		floats.AddConst(-aoa[0], aoa)
		floats.AddConst(-aod[0], aod)
		floats.AddConst(-zoa[0], zoa)
		floats.AddConst(-zod[0], zod)
		floats.AddConst(rays.losAngles[3], zod)
	} else {
		floats.AddConst(rays.losAngles[3]+p.offsetZOD, zod)
	}
	floats.AddConst(rays.losAngles[0], aoa)
	floats.AddConst(rays.losAngles[2], aod)
	if cond == ConditionO2i {
		floats.AddConst(90, zoa)
	} else {
		floats.AddConst(rays.losAngles[1], zoa)
	}
	for i := 0; i < n; i++ {
		aoa[i] = WrapAzimuth(aoa[i])
		aod[i] = WrapAzimuth(aod[i])
		zoa[i] = WrapZenith(zoa[i])
		zod[i] = WrapZenith(zod[i])
	}

	// rays: offsets with random coupling, cross-polarization and initial phases
	m := p.raysPerCluster
	zodSpread := 3.0 / 8 * math.Pow(10, p.uLgZSD)
	rays.aoa, rays.aod = make([][]float64, n), make([][]float64, n)
	rays.zoa, rays.zod = make([][]float64, n), make([][]float64, n)
	rays.xpr, rays.phases = make([][]float64, n), make([][][4]float64, n)
	for i := 0; i < n; i++ {
		rays.aoa[i] = g.offsets(p.cASA, m)
		rays.aod[i] = g.offsets(p.cASD, m)
		rays.zoa[i] = g.offsets(p.cZSA, m)
		rays.zod[i] = g.offsets(zodSpread, m)
		rays.xpr[i] = make([]float64, m)
		rays.phases[i] = make([][4]float64, m)
		for j := 0; j < m; j++ {
			rays.xpr[i][j] = math.Pow(10, (p.uXpr+p.sigXpr*g.normal.Rand())/10)
			for k := range rays.phases[i][j] {
				rays.phases[i][j][k] = (2*g.uniform.Rand() - 1) * math.Pi
			}
		}
	}
	rays.nlosPowers = nlosPowers
	rays.powers = powers

	if g.params.Blockage && blockers == nil {
		blockers = g.blockage.newRegions()
	}
	doppler := make([]float64, n)
	floats.AddConst(1, doppler)

	res := &SpatialChannelMatrix{
		TxId:         tx.Mobility.Id(),
		RxId:         rx.Mobility.Id(),
		Condition:    cond,
		Delays:       delays,
		AoA:          aoa,
		AoD:          aod,
		ZoA:          zoa,
		ZoD:          zod,
		DopplerScale: doppler,
		CarrierHz:    g.params.CarrierHz,
		Lsp:          lsp,
		Blockers:     blockers,
		GeneratedAt:  now,
		rays:         rays,
	}
	g.synthesize(res, tx.Antenna, rx.Antenna)
	return res
}

// offsets returns the ray offsets of one cluster in random order, scaled by the intra-cluster spread.
func (g *statisticalGenerator) offsets(spread float64, m int) []float64 {
	res := make([]float64, m)
	for i, j := range g.rnd.Perm(m) {
		res[i] = spread * rayOffsets[j%len(rayOffsets)]
	}
	return res
}

func elementPositions(a antenna.Controller) []Vector {
	res := make([]Vector, a.ElementCount())
	for i := range res {
		res[i] = a.ElementPosition(i)
	}
	return res
}

func cis(rad float64) complex128 {
	return cmplx.Exp(complex(0, rad))
}

func steering(dst []complex128, positions []Vector, dir Vector) {
	for i, p := range positions {
		dst[i] = cis(2 * math.Pi * dir.Dot(p))
	}
}

// synthesize fills the coefficient tensor and the per-cluster powers from the cluster angles
// and the ray state, applying blockage to the arrival side.
func (g *statisticalGenerator) synthesize(res *SpatialChannelMatrix, txAnt, rxAnt antenna.Controller) {
	rays := res.rays
	txPos, rxPos := elementPositions(txAnt), elementPositions(rxAnt)
	n := len(res.Delays)
	res.TxElements, res.RxElements = len(txPos), len(rxPos)
	res.Coefficients = newCoefficients(len(rxPos), len(txPos), n)
	res.Powers = make([]float64, n)

	los := res.IsLos()
	nlosScale, kR := 1.0, 0.0
	if los {
		kR = math.Pow(10, res.Lsp.KDb/10)
		nlosScale = math.Sqrt(1 / (kR + 1))
	}

	rxPhase := make([]complex128, len(rxPos))
	txPhase := make([]complex128, len(txPos))
	addRay := func(cluster int, coef complex128, aoa, zoa, aod, zod float64) {
		steering(rxPhase, rxPos, UnitFromAngles(aoa, zoa))
		steering(txPhase, txPos, UnitFromAngles(aod, zod))
		for u, ru := range rxPhase {
			cu := coef * ru
			row := res.Coefficients[u]
			for s, ts := range txPhase {
				row[s][cluster] += cu * ts
			}
		}
	}

	for i := 0; i < n; i++ {
		att := 1.0
		if g.params.Blockage {
			att = math.Pow(10, -g.blockage.attenuationDb(res.AoA[i], res.ZoA[i], res.Blockers)/10)
		}
		res.Powers[i] = rays.powers[i] * att

		m := len(rays.aoa[i])
		amp := math.Sqrt(rays.nlosPowers[i]/float64(m)*att) * nlosScale
		for j := 0; j < m; j++ {
			aoa := WrapAzimuth(res.AoA[i] + rays.aoa[i][j])
			aod := WrapAzimuth(res.AoD[i] + rays.aod[i][j])
			zoa := WrapZenith(res.ZoA[i] + rays.zoa[i][j])
			zod := WrapZenith(res.ZoD[i] + rays.zod[i][j])
			rxT, rxP := rxAnt.FieldPattern(zoa, aoa)
			txT, txP := txAnt.FieldPattern(zod, aod)
			ph := rays.phases[i][j]
			kInv := complex(math.Sqrt(1/rays.xpr[i][j]), 0)
			pol := complex(rxT, 0)*(cis(ph[0])*complex(txT, 0)+kInv*cis(ph[1])*complex(txP, 0)) +
				complex(rxP, 0)*(kInv*cis(ph[2])*complex(txT, 0)+cis(ph[3])*complex(txP, 0))
			addRay(i, complex(amp, 0)*pol, aoa, zoa, aod, zod)
		}

		if los && i == 0 {
			la := rays.losAngles
			rxT, rxP := rxAnt.FieldPattern(la[1], la[0])
			txT, txP := txAnt.FieldPattern(la[3], la[2])
			lambda := speedOfLight / res.CarrierHz
			coef := complex(math.Sqrt(kR/(kR+1)*att)*(rxT*txT-rxP*txP), 0) *
				cis(-2*math.Pi*rays.losDistance/lambda)
			addRay(0, coef, la[0], la[1], la[2], la[3])
		}
	}
}
