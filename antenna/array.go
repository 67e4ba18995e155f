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

// Package antenna implements uniform planar arrays with a sector/elevation beam codebook.
package antenna

import (
	"math"
	"math/cmplx"

	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

// Controller is what the channel engine and the PHYs need from a node's antenna.
type Controller interface {
	ElementCount() int
	// ElementPosition returns the element location in wavelengths, in global coordinates
	// relative to the array centre.
	ElementPosition(i int) Vector
	// FieldPattern returns the element field for a global zenith/azimuth (degrees).
	FieldPattern(zenith, azimuth float64) (fTheta, fPhi float64)

	CurrentWeights() ([]complex128, BeamId)
	// WeightsVersion changes whenever the current weights change.
	WeightsVersion() uint64
	SetBeam(b BeamId)
	SetWeights(w []complex128, b BeamId)

	SaveBeamFor(peer NodeId, b BeamId)
	BeamFor(peer NodeId) (BeamId, bool)
	UseBeamFor(peer NodeId) bool

	SetOmniTx(omni bool)
	IsOmniTx() bool

	Codebook() *Codebook
}

// Config describes a uniform planar array in the local y-z plane, boresight along the bearing.
type Config struct {
	Rows       int       `yaml:"rows"`
	Cols       int       `yaml:"cols"`
	Spacing    float64   `yaml:"spacing"`
	BearingDeg float64   `yaml:"bearing"`
	Element    string    `yaml:"element"`
	Sectors    int       `yaml:"sectors"`
	FovDeg     float64   `yaml:"fov"`
	Elevations []float64 `yaml:"elevations"`
}

func DefaultGnbConfig() Config {
	return Config{
		Rows:       8,
		Cols:       8,
		Spacing:    0.5,
		Element:    "3gpp",
		Sectors:    8,
		FovDeg:     120,
		Elevations: []float64{90, 105},
	}
}

func DefaultUeConfig() Config {
	return Config{
		Rows:       4,
		Cols:       4,
		Spacing:    0.5,
		Element:    "iso",
		Sectors:    8,
		FovDeg:     360,
		Elevations: []float64{75, 90},
	}
}

// Array is the Controller implementation for a uniform planar array.
type Array struct {
	cfg       Config
	element   ElementPattern
	positions []Vector
	codebook  *Codebook

	weights  []complex128
	beam     BeamId
	version  uint64
	omniTx   bool
	saved    map[NodeId]BeamId
	beamVecs map[BeamId][]complex128
}

func NewArray(cfg Config) *Array {
	logger.AssertTrue(cfg.Rows > 0 && cfg.Cols > 0, "array needs at least one element")
	if cfg.Spacing <= 0 {
		cfg.Spacing = 0.5
	}
	a := &Array{
		cfg:      cfg,
		element:  NewElementPattern(cfg.Element),
		codebook: NewCodebook(cfg.Sectors, cfg.FovDeg, cfg.BearingDeg, cfg.Elevations),
		saved:    map[NodeId]BeamId{},
		beamVecs: map[BeamId][]complex128{},
	}

	bearing := cfg.BearingDeg * math.Pi / 180
	cosB, sinB := math.Cos(bearing), math.Sin(bearing)
	yOff := float64(cfg.Cols-1) * cfg.Spacing / 2
	zOff := float64(cfg.Rows-1) * cfg.Spacing / 2
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			y := float64(c)*cfg.Spacing - yOff
			z := float64(r)*cfg.Spacing - zOff
			// local (0, y, z) rotated around the z axis by the bearing
			a.positions = append(a.positions, Vector{X: -y * sinB, Y: y * cosB, Z: z})
		}
	}

	a.SetBeam(a.codebook.Beams()[0])
	return a
}

func (a *Array) ElementCount() int {
	return len(a.positions)
}

func (a *Array) ElementPosition(i int) Vector {
	return a.positions[i]
}

func (a *Array) FieldPattern(zenith, azimuth float64) (float64, float64) {
	return a.element.FieldPattern(zenith, azimuth-a.cfg.BearingDeg)
}

// SteeringVector returns the array response towards a global direction.
func (a *Array) SteeringVector(azimuth, zenith float64) []complex128 {
	u := UnitFromAngles(azimuth, zenith)
	sv := make([]complex128, len(a.positions))
	for i, p := range a.positions {
		sv[i] = cmplx.Exp(complex(0, 2*math.Pi*u.Dot(p)))
	}
	return sv
}

// BeamWeights returns the unit-norm weights steering to a codebook beam.
func (a *Array) BeamWeights(b BeamId) []complex128 {
	if w, ok := a.beamVecs[b]; ok {
		return w
	}
	az, ze := a.codebook.Direction(b)
	w := a.SteeringVector(az, ze)
	norm := complex(1/math.Sqrt(float64(len(w))), 0)
	for i := range w {
		w[i] *= norm
	}
	a.beamVecs[b] = w
	return w
}

func (a *Array) CurrentWeights() ([]complex128, BeamId) {
	return a.weights, a.beam
}

func (a *Array) WeightsVersion() uint64 {
	return a.version
}

func (a *Array) SetBeam(b BeamId) {
	if a.weights != nil && a.beam == b {
		return
	}
	a.setWeights(a.BeamWeights(b), b)
}

func (a *Array) SetWeights(w []complex128, b BeamId) {
	logger.AssertEqual(len(a.positions), len(w), "weight vector length")
	a.setWeights(append([]complex128(nil), w...), b)
}

func (a *Array) setWeights(w []complex128, b BeamId) {
	a.weights = w
	a.beam = b
	a.version++
}

func (a *Array) SaveBeamFor(peer NodeId, b BeamId) {
	a.saved[peer] = b
}

func (a *Array) BeamFor(peer NodeId) (BeamId, bool) {
	b, ok := a.saved[peer]
	return b, ok
}

// UseBeamFor switches to the beam saved for peer. Returns false if none is saved.
func (a *Array) UseBeamFor(peer NodeId) bool {
	b, ok := a.saved[peer]
	if ok {
		a.SetBeam(b)
	}
	return ok
}

func (a *Array) SetOmniTx(omni bool) {
	a.omniTx = omni
}

func (a *Array) IsOmniTx() bool {
	return a.omniTx
}

func (a *Array) Codebook() *Codebook {
	return a.codebook
}

// ArrayGainDb returns the directional gain of the current weights towards a global direction,
// including the element pattern.
func (a *Array) ArrayGainDb(azimuth, zenith float64) float64 {
	sv := a.SteeringVector(azimuth, zenith)
	var sum complex128
	for i, w := range a.weights {
		sum += cmplx.Conj(w) * sv[i]
	}
	fTheta, fPhi := a.FieldPattern(zenith, azimuth)
	g := (fTheta*fTheta + fPhi*fPhi) * real(sum*cmplx.Conj(sum))
	if g <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(g)
}
