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
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	. "github.com/mmwns/mmw-ns/types"
)

// BlockageRegion is an angular blocked area seen from the UE, degrees. Phi/Theta are the
// centre azimuth/zenith, X/Y the width in azimuth and zenith.
type BlockageRegion struct {
	Phi, X   float64
	Theta, Y float64
}

// Contains reports whether a global arrival direction falls into the region.
func (r BlockageRegion) Contains(azimuth, zenith float64) bool {
	da := WrapAzimuth(azimuth - r.Phi)
	if da < 0 {
		da = -da
	}
	dz := zenith - r.Theta
	if dz < 0 {
		dz = -dz
	}
	return da <= r.X/2 && dz <= r.Y/2
}

// blockageModel is the TR 38.901 7.6.4.1 blockage model A: one self-blocking region from the
// user's body and a number of non-self-blocking regions drawn once per link.
type blockageModel struct {
	params  *Params
	uniform distuv.Uniform
}

func newBlockageModel(params *Params, src rand.Source) *blockageModel {
	return &blockageModel{params: params, uniform: distuv.Uniform{Min: 0, Max: 1, Src: src}}
}

func (b *blockageModel) selfRegion() BlockageRegion {
	if b.params.PortraitMode {
		return BlockageRegion{Phi: 260, X: 120, Theta: 100, Y: 80}
	}
	return BlockageRegion{Phi: 40, X: 160, Theta: 110, Y: 75}
}

func (b *blockageModel) newRegions() []BlockageRegion {
	regions := make([]BlockageRegion, b.params.NumNonSelfBlocking)
	for k := range regions {
		regions[k] = BlockageRegion{
			Phi:   WrapAzimuth(b.uniform.Rand() * 360),
			X:     15 + b.uniform.Rand()*30,
			Theta: 90,
			Y:     20,
		}
	}
	return regions
}

// attenuationDb returns the loss of a cluster arriving at the UE from the given direction.
func (b *blockageModel) attenuationDb(azimuth, zenith float64, regions []BlockageRegion) float64 {
	loss := 0.0
	if b.selfRegion().Contains(azimuth, zenith) {
		loss += b.params.SelfBlockingLossDb
	}
	for _, r := range regions {
		if r.Contains(azimuth, zenith) {
			loss += b.params.NonSelfLossDb
		}
	}
	return loss
}
