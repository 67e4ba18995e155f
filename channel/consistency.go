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

	"gonum.org/v1/gonum/floats"

	. "github.com/mmwns/mmw-ns/types"
)

// evolve moves a previous realization forward to now: cluster delays and angles drift with the
// endpoint velocities (TR 38.901 7.6.3.2, procedure A), the direct path follows the geometry,
// and all ray-level randomness is kept.
func (g *statisticalGenerator) evolve(prev *SpatialChannelMatrix, tx, rx Endpoint, now uint64) *SpatialChannelMatrix {
	dt := float64(now-prev.GeneratedAt) / float64(Second)
	vTx, vRx := tx.Mobility.Velocity(), rx.Mobility.Velocity()
	txPos, rxPos := tx.Mobility.Position(), rx.Mobility.Position()

	rays := *prev.rays
	rays.losDistance = txPos.DistanceTo(rxPos)
	rays.losAngles[0], rays.losAngles[1] = rxPos.Angles(txPos)
	rays.losAngles[2], rays.losAngles[3] = txPos.Angles(rxPos)

	n := prev.NumClusters()
	delays := append([]float64(nil), prev.Delays...)
	aoa := append([]float64(nil), prev.AoA...)
	aod := append([]float64(nil), prev.AoD...)
	zoa := append([]float64(nil), prev.ZoA...)
	zod := append([]float64(nil), prev.ZoD...)

	for i := 0; i < n; i++ {
		if i == 0 && prev.IsLos() {
			continue
		}
		rRx := UnitFromAngles(aoa[i], zoa[i])
		rTx := UnitFromAngles(aod[i], zod[i])
		delays[i] -= (rRx.Dot(vRx) + rTx.Dot(vTx)) * dt / speedOfLight * 1e9

		pathLen := rays.losDistance + delays[i]*1e-9*speedOfLight
		aoa[i], zoa[i] = driftAngles(aoa[i], zoa[i], vRx, dt, pathLen)
		aod[i], zod[i] = driftAngles(aod[i], zod[i], vTx, dt, pathLen)
	}
	if prev.IsLos() {
		delays[0] = 0
		aoa[0], zoa[0] = rays.losAngles[0], rays.losAngles[1]
		aod[0], zod[0] = rays.losAngles[2], rays.losAngles[3]
	}

	idx, sorted := sortClusters(delays, prev.IsLos())

	res := &SpatialChannelMatrix{
		TxId:         prev.TxId,
		RxId:         prev.RxId,
		Condition:    prev.Condition,
		Delays:       sorted,
		AoA:          reorderValues(aoa, idx),
		AoD:          reorderValues(aod, idx),
		ZoA:          reorderValues(zoa, idx),
		ZoD:          reorderValues(zod, idx),
		DopplerScale: reorderValues(prev.DopplerScale, idx),
		CarrierHz:    prev.CarrierHz,
		Lsp:          prev.Lsp,
		Blockers:     prev.Blockers,
		GeneratedAt:  now,
		rays:         rays.reorder(idx),
	}
	g.synthesize(res, tx.Antenna, rx.Antenna)
	return res
}

// sortClusters orders clusters by delay and shifts the first one to zero. In LOS the direct path
// stays cluster 0 and no scattered cluster may arrive before it.
func sortClusters(delays []float64, los bool) ([]int, []float64) {
	n := len(delays)
	if n == 0 {
		return nil, nil
	}
	if !los {
		idx := make([]int, n)
		sorted := append([]float64(nil), delays...)
		floats.Argsort(sorted, idx)
		floats.AddConst(-sorted[0], sorted)
		return idx, sorted
	}

	rest := make([]float64, n-1)
	for i, d := range delays[1:] {
		rest[i] = math.Max(d, 0)
	}
	restIdx := make([]int, n-1)
	floats.Argsort(rest, restIdx)

	idx := make([]int, 0, n)
	sorted := make([]float64, 0, n)
	idx = append(idx, 0)
	sorted = append(sorted, 0)
	for i, j := range restIdx {
		idx = append(idx, j+1)
		sorted = append(sorted, rest[i])
	}
	return idx, sorted
}

// driftAngles turns a direction seen from a node moving with v for dt towards a scatterer at
// distance pathLen.
func driftAngles(azimuth, zenith float64, v Vector, dt, pathLen float64) (float64, float64) {
	if pathLen <= 0 || dt == 0 {
		return azimuth, zenith
	}
	phi := azimuth * math.Pi / 180
	theta := zenith * math.Pi / 180
	phiHat := Vector{X: -math.Sin(phi), Y: math.Cos(phi)}
	thetaHat := Vector{X: math.Cos(theta) * math.Cos(phi), Y: math.Cos(theta) * math.Sin(phi), Z: -math.Sin(theta)}

	sinTheta := math.Max(math.Sin(theta), 1e-6)
	dPhi := -v.Dot(phiHat) * dt / (pathLen * sinTheta)
	dTheta := -v.Dot(thetaHat) * dt / pathLen
	return WrapAzimuth(azimuth + dPhi*180/math.Pi), WrapZenith(zenith + dTheta*180/math.Pi)
}
