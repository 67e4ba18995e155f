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

// Package channel generates, caches and applies TR 38.901 spatial channel realizations, either
// synthesized statistically or built from pre-computed ray-tracing data.
package channel

import (
	. "github.com/mmwns/mmw-ns/types"
)

// ModelKind selects the generation strategy of an Engine.
type ModelKind int

const (
	ModelStatistical ModelKind = iota
	ModelRayTraced
)

func (k ModelKind) String() string {
	if k == ModelRayTraced {
		return "raytraced"
	}
	return "statistical"
}

// default channel & cache parameters
const (
	defaultCarrierHz          = 28e9
	defaultUpdatePeriod       = 100 * Millisecond // coherence time of a statistical realization
	defaultConditionPeriod    = 1 * Second
	defaultRayTraceStep       = 1 * Millisecond
	defaultMaxCacheSize       = 4096
	defaultSelfBlockingLossDb = 30.0
	defaultNonSelfLossDb      = 20.0
	defaultPedestrianLossDb   = 20.0
	defaultTxMatchTolerance   = 1.0
	speedOfLight              = 299792458.0
)

// Params stores the configuration of the channel engine and its sub-models.
type Params struct {
	Model     ModelKind
	Scenario  Scenario
	CarrierHz float64

	// UpdatePeriod is the coherence time after which a statistical realization is refreshed;
	// 0 means never.
	UpdatePeriod uint64
	// RealisticIa suppresses regeneration for UEs that are sweeping.
	RealisticIa bool
	// SpatialConsistency evolves the previous realization instead of drawing a new one.
	SpatialConsistency bool

	// ForceCondition fixes the condition ("l", "n", "o"); empty draws it from the scenario.
	ForceCondition  string
	O2iProbability  float64
	ConditionPeriod uint64

	Blockage           bool
	PortraitMode       bool
	NumNonSelfBlocking int
	SelfBlockingLossDb float64
	NonSelfLossDb      float64

	RayTraceStep       uint64
	StrongestPathOnly  bool
	PedestrianBlockage bool
	PedestrianProb     float64
	PedestrianLossDb   float64
	TxMatchTolerance   float64

	MaxCacheSize int
}

// DefaultParams gets a new set of parameters with default values, as a basis to configure further.
func DefaultParams() *Params {
	return &Params{
		Model:              ModelStatistical,
		Scenario:           ScenarioUMi,
		CarrierHz:          defaultCarrierHz,
		UpdatePeriod:       defaultUpdatePeriod,
		RealisticIa:        true,
		ConditionPeriod:    defaultConditionPeriod,
		PortraitMode:       true,
		NumNonSelfBlocking: 4,
		SelfBlockingLossDb: defaultSelfBlockingLossDb,
		NonSelfLossDb:      defaultNonSelfLossDb,
		RayTraceStep:       defaultRayTraceStep,
		PedestrianProb:     0.1,
		PedestrianLossDb:   defaultPedestrianLossDb,
		TxMatchTolerance:   defaultTxMatchTolerance,
		MaxCacheSize:       defaultMaxCacheSize,
	}
}

// WavelengthM returns the carrier wavelength in meters.
func (p *Params) WavelengthM() float64 {
	return speedOfLight / p.CarrierHz
}
