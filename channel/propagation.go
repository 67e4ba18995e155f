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
	"github.com/mmwns/mmw-ns/spectrum"
)

// NoChannelGainDb is applied when a link has no channel or no paths.
const NoChannelGainDb = -200.0

// Propagation combines the engine, path loss and beamforming gain into received PSDs.
type Propagation struct {
	Engine        *Engine
	Gain          *GainCalculator
	NoiseFigureDb float64
}

func NewPropagation(engine *Engine, noiseFigureDb float64) *Propagation {
	return &Propagation{Engine: engine, Gain: NewGainCalculator(), NoiseFigureDb: noiseFigureDb}
}

// RxPsd returns the PSD received at rx for a transmission of txPsd from tx, using both
// antennas' current weights.
func (p *Propagation) RxPsd(txPsd *spectrum.Value, tx, rx Endpoint) *spectrum.Value {
	m, ok := p.Engine.GetChannel(tx.Mobility, rx.Mobility, tx.Antenna, rx.Antenna)
	if !ok || m.NumClusters() == 0 {
		return txPsd.Scaled(spectrum.DbToLinear(NoChannelGainDb))
	}
	txW, _ := tx.Antenna.CurrentWeights()
	rxW, _ := rx.Antenna.CurrentWeights()
	out := p.Gain.ApplyGain(txPsd, m, txW, rxW, tx.Mobility.Velocity(), rx.Mobility.Velocity(), p.Engine.Now())
	if m.PathLossIncluded {
		return out
	}
	return out.Scaled(spectrum.DbToLinear(-p.LossDb(tx, rx, m)))
}

// LossDb is the path loss plus shadow fading of a statistical realization.
func (p *Propagation) LossDb(tx, rx Endpoint, m *SpatialChannelMatrix) float64 {
	bs, ut := bsAndUt(tx.Mobility, rx.Mobility)
	bsPos, utPos := bs.Position(), ut.Position()
	params := p.Engine.Params()
	return PathLossDb(params.Scenario, m.Condition, params.CarrierHz, bsPos.Distance2DTo(utPos),
		bsPos.DistanceTo(utPos), bsPos.Z, utPos.Z) + m.Lsp.SFDb
}

// NoisePsd returns the thermal noise PSD of a receiver on the given spectrum.
func (p *Propagation) NoisePsd(m *spectrum.Model) *spectrum.Value {
	return spectrum.CreateNoisePsd(m, p.NoiseFigureDb)
}

// SnrDb returns the wideband SNR of a received PSD.
func (p *Propagation) SnrDb(rxPsd *spectrum.Value) float64 {
	return p.SinrDb(rxPsd, nil)
}

// SinrDb returns the wideband SINR of a received PSD against noise and interferers.
func (p *Propagation) SinrDb(rxPsd *spectrum.Value, interference []*spectrum.Value) float64 {
	noise := p.NoisePsd(rxPsd.Model).Integral()
	for _, i := range interference {
		noise += i.Integral()
	}
	return spectrum.LinearToDb(rxPsd.Integral() / noise)
}
