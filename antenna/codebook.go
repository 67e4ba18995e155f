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

package antenna

import (
	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

// Codebook is the ordered list of (sector, elevation) beams a node can steer to. Sectors split
// the horizontal field of view evenly around the panel bearing.
type Codebook struct {
	Sectors    int
	FovDeg     float64
	BearingDeg float64
	Elevations []float64

	beams []BeamId
	index map[BeamId]int
}

func NewCodebook(sectors int, fovDeg, bearingDeg float64, elevations []float64) *Codebook {
	logger.AssertTrue(sectors > 0 && len(elevations) > 0, "empty codebook")
	cb := &Codebook{
		Sectors:    sectors,
		FovDeg:     fovDeg,
		BearingDeg: bearingDeg,
		Elevations: append([]float64(nil), elevations...),
		index:      map[BeamId]int{},
	}
	for _, el := range cb.Elevations {
		for s := 0; s < sectors; s++ {
			b := BeamId{Sector: s, Elevation: el}
			cb.index[b] = len(cb.beams)
			cb.beams = append(cb.beams, b)
		}
	}
	return cb
}

// Beams returns the scan order used by beam sweeps.
func (cb *Codebook) Beams() []BeamId {
	return cb.beams
}

func (cb *Codebook) Size() int {
	return len(cb.beams)
}

// Index returns the scan position of b, or -1 if b is not in the codebook.
func (cb *Codebook) Index(b BeamId) int {
	if i, ok := cb.index[b]; ok {
		return i
	}
	return -1
}

func (cb *Codebook) Contains(b BeamId) bool {
	_, ok := cb.index[b]
	return ok
}

// Direction returns the global azimuth and zenith (degrees) a beam points to.
func (cb *Codebook) Direction(b BeamId) (azimuth, zenith float64) {
	step := cb.FovDeg / float64(cb.Sectors)
	azimuth = WrapAzimuth(cb.BearingDeg - cb.FovDeg/2 + (float64(b.Sector)+0.5)*step)
	return azimuth, b.Elevation
}

// Nearest returns the codebook beam closest to the given global direction.
func (cb *Codebook) Nearest(azimuth, zenith float64) BeamId {
	best := cb.beams[0]
	bestDist := -1.0
	for _, b := range cb.beams {
		az, ze := cb.Direction(b)
		da := WrapAzimuth(az - azimuth)
		dz := ze - zenith
		d := da*da + dz*dz
		if bestDist < 0 || d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}
