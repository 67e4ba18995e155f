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

// Package spectrum models power spectral densities over the sub-bands of an NR carrier.
package spectrum

import (
	"math"

	"github.com/mmwns/mmw-ns/logger"
)

const (
	BoltzmannJK     = 1.380649e-23
	NoiseTempKelvin = 290.0
)

// Band is one sub-band; frequencies in Hz.
type Band struct {
	Low    float64
	Center float64
	High   float64
}

func (b Band) Width() float64 {
	return b.High - b.Low
}

// Model is the set of contiguous, equally wide sub-bands of a carrier.
type Model struct {
	CarrierHz   float64
	BandwidthHz float64
	Bands       []Band
}

// NewModel splits bandwidthHz around carrierHz into numSubbands equal sub-bands.
func NewModel(carrierHz, bandwidthHz float64, numSubbands int) *Model {
	logger.AssertTrue(carrierHz > 0 && bandwidthHz > 0 && numSubbands > 0,
		"invalid spectrum model %v/%v/%v", carrierHz, bandwidthHz, numSubbands)
	m := &Model{
		CarrierHz:   carrierHz,
		BandwidthHz: bandwidthHz,
		Bands:       make([]Band, numSubbands),
	}
	width := bandwidthHz / float64(numSubbands)
	low := carrierHz - bandwidthHz/2
	for i := range m.Bands {
		m.Bands[i] = Band{
			Low:    low + float64(i)*width,
			Center: low + (float64(i)+0.5)*width,
			High:   low + float64(i+1)*width,
		}
	}
	return m
}

func (m *Model) NumBands() int {
	return len(m.Bands)
}

// Value is a PSD in W/Hz per sub-band of its Model.
type Value struct {
	Model *Model
	Psd   []float64
}

func NewValue(m *Model) *Value {
	return &Value{Model: m, Psd: make([]float64, m.NumBands())}
}

func (v *Value) Copy() *Value {
	c := &Value{Model: v.Model, Psd: make([]float64, len(v.Psd))}
	copy(c.Psd, v.Psd)
	return c
}

// Integral returns the total power in W.
func (v *Value) Integral() float64 {
	total := 0.0
	for i, p := range v.Psd {
		total += p * v.Model.Bands[i].Width()
	}
	return total
}

// Scaled returns a copy with every sub-band multiplied by a linear factor.
func (v *Value) Scaled(f float64) *Value {
	c := v.Copy()
	for i := range c.Psd {
		c.Psd[i] *= f
	}
	return c
}

// Add accumulates other into v. Both must share the same Model.
func (v *Value) Add(other *Value) {
	logger.AssertTrue(v.Model == other.Model, "spectrum model mismatch")
	for i := range v.Psd {
		v.Psd[i] += other.Psd[i]
	}
}

// CreateTxPsd spreads txPowerDbm uniformly over the given active sub-bands (all if nil).
func CreateTxPsd(m *Model, txPowerDbm float64, activeBands []int) *Value {
	v := NewValue(m)
	if activeBands == nil {
		activeBands = make([]int, m.NumBands())
		for i := range activeBands {
			activeBands[i] = i
		}
	}
	if len(activeBands) == 0 {
		return v
	}
	width := 0.0
	for _, i := range activeBands {
		width += m.Bands[i].Width()
	}
	psd := DbmToW(txPowerDbm) / width
	for _, i := range activeBands {
		v.Psd[i] = psd
	}
	return v
}

// CreateNoisePsd returns the thermal noise PSD raised by the receiver noise figure.
func CreateNoisePsd(m *Model, noiseFigureDb float64) *Value {
	v := NewValue(m)
	n0 := BoltzmannJK * NoiseTempKelvin * DbToLinear(noiseFigureDb)
	for i := range v.Psd {
		v.Psd[i] = n0
	}
	return v
}

func DbmToW(dbm float64) float64 {
	return math.Pow(10, (dbm-30)/10)
}

func WToDbm(w float64) float64 {
	return 10*math.Log10(w) + 30
}

func DbToLinear(db float64) float64 {
	return math.Pow(10, db/10)
}

func LinearToDb(lin float64) float64 {
	return 10 * math.Log10(lin)
}

// AddPowersDbm returns the power in dBm of two added, uncorrelated signals.
func AddPowersDbm(p1, p2 float64) float64 {
	if p1 > p2+15.0 {
		return p1
	}
	if p2 > p1+15.0 {
		return p2
	}
	return 10.0 * math.Log10(math.Pow(10, p1/10.0)+math.Pow(10, p2/10.0))
}
