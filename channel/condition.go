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

	"github.com/mmwns/mmw-ns/mobility"
	. "github.com/mmwns/mmw-ns/types"
)

// ConditionModel decides the propagation condition of a link.
type ConditionModel interface {
	GetCondition(a, b mobility.Provider) Condition
}

// FixedConditionModel always returns the same condition.
type FixedConditionModel struct {
	Condition Condition
}

func (f FixedConditionModel) GetCondition(a, b mobility.Provider) Condition {
	return f.Condition
}

type conditionEntry struct {
	cond Condition
	at   uint64
}

// ThreeGppConditionModel draws LOS with the TR 38.901 Table 7.4.2-1 probabilities and keeps
// the decision per node pair for one update period.
type ThreeGppConditionModel struct {
	scenario Scenario
	clock    mobility.Clock
	period   uint64
	o2iProb  float64
	uniform  distuv.Uniform
	cache    map[pairKey]conditionEntry
}

func NewThreeGppConditionModel(scenario Scenario, clock mobility.Clock, period uint64, o2iProb float64, src rand.Source) *ThreeGppConditionModel {
	return &ThreeGppConditionModel{
		scenario: scenario,
		clock:    clock,
		period:   period,
		o2iProb:  o2iProb,
		uniform:  distuv.Uniform{Min: 0, Max: 1, Src: src},
		cache:    map[pairKey]conditionEntry{},
	}
}

func (cm *ThreeGppConditionModel) GetCondition(a, b mobility.Provider) Condition {
	key, _ := makePairKey(a.Id(), b.Id())
	now := cm.clock.Now()
	if e, ok := cm.cache[key]; ok && (cm.period == 0 || now-e.at < cm.period) {
		return e.cond
	}

	bs, ut := bsAndUt(a, b)
	bsPos, utPos := bs.Position(), ut.Position()
	var cond Condition
	if !cm.scenario.IsIndoor() && cm.o2iProb > 0 && cm.uniform.Rand() < cm.o2iProb {
		cond = ConditionO2i
	} else if cm.uniform.Rand() < LosProbability(cm.scenario, bsPos.Distance2DTo(utPos), utPos.Z) {
		cond = ConditionLos
	} else {
		cond = ConditionNlos
	}
	cm.cache[key] = conditionEntry{cond: cond, at: now}
	return cond
}

// LosProbability implements TR 38.901 Table 7.4.2-1.
func LosProbability(s Scenario, d2D, hUT float64) float64 {
	switch s {
	case ScenarioRMa:
		if d2D <= 10 {
			return 1
		}
		return math.Exp(-(d2D - 10) / 1000)
	case ScenarioUMi:
		if d2D <= 18 {
			return 1
		}
		return 18/d2D + math.Exp(-d2D/36)*(1-18/d2D)
	case ScenarioUMa:
		if d2D <= 18 {
			return 1
		}
		c := 0.0
		if hUT > 13 {
			c = math.Pow((hUT-13)/10, 1.5)
		}
		return (18/d2D + math.Exp(-d2D/63)*(1-18/d2D)) * (1 + c*5/4*math.Pow(d2D/100, 3)*math.Exp(-d2D/150))
	case ScenarioInHOfficeMixed:
		switch {
		case d2D <= 1.2:
			return 1
		case d2D < 6.5:
			return math.Exp(-(d2D - 1.2) / 4.7)
		default:
			return math.Exp(-(d2D-6.5)/32.6) * 0.32
		}
	case ScenarioInHOfficeOpen:
		switch {
		case d2D <= 5:
			return 1
		case d2D <= 49:
			return math.Exp(-(d2D - 5) / 70.8)
		default:
			return math.Exp(-(d2D-49)/211.7) * 0.54
		}
	}
	return 0
}

// bsAndUt orders a link's endpoints as (base station, user terminal). Without a gNB endpoint
// the first node plays the base station.
func bsAndUt(a, b mobility.Provider) (bs, ut mobility.Provider) {
	if b.Role() == RoleGnb && a.Role() != RoleGnb {
		return b, a
	}
	return a, b
}
