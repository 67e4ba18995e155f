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
	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/mobility"
	"github.com/mmwns/mmw-ns/prng"
	"github.com/mmwns/mmw-ns/raytrace"
	. "github.com/mmwns/mmw-ns/types"
)

// SweepMonitor tells the engine whether a UE is in the middle of a beam sweep.
type SweepMonitor interface {
	IsSweeping(ue NodeId) bool
}

// pairKey identifies an unordered node pair, lowest id first.
type pairKey struct {
	lo, hi NodeId
}

func makePairKey(a, b NodeId) (pairKey, bool) {
	if a <= b {
		return pairKey{a, b}, false
	}
	return pairKey{b, a}, true
}

// EngineStats counts what the engine did with channel queries.
type EngineStats struct {
	Generated  uint64
	Evolved    uint64
	Hits       uint64
	Suppressed uint64
	Purges     uint64
}

// Engine owns the per-pair cache of channel realizations and decides when they are refreshed.
type Engine struct {
	params    *Params
	clock     mobility.Clock
	condition ConditionModel
	stat      *statisticalGenerator
	rt        *rayTracedGenerator
	sweeps    SweepMonitor
	cache     map[pairKey]*SpatialChannelMatrix
	nextGenId uint64
	Stats     EngineStats
}

// NewEngine creates an engine. data is required for the ray-traced model and ignored otherwise.
func NewEngine(params *Params, clock mobility.Clock, data *raytrace.Dataset) (*Engine, error) {
	if params == nil {
		params = DefaultParams()
	}
	if clock == nil {
		return nil, errors.New("channel engine needs a clock")
	}
	if params.CarrierHz <= 0 {
		return nil, errors.Errorf("invalid carrier frequency %v", params.CarrierHz)
	}
	e := &Engine{
		params: params,
		clock:  clock,
		cache:  map[pairKey]*SpatialChannelMatrix{},
	}

	switch params.Model {
	case ModelStatistical:
		e.stat = newStatisticalGenerator(params, prng.NewChannelSource(), prng.NewBlockageSource())
	case ModelRayTraced:
		if data == nil {
			return nil, errors.New("ray-traced channel model needs trace data")
		}
		if params.RayTraceStep == 0 {
			return nil, errors.New("ray-traced channel model needs a non-zero time step")
		}
		e.rt = newRayTracedGenerator(params, data, prng.NewBlockageSource())
	default:
		return nil, errors.Errorf("unknown channel model %d", params.Model)
	}

	if params.ForceCondition != "" {
		e.condition = FixedConditionModel{Condition: ParseConditionCode(params.ForceCondition)}
	} else {
		e.condition = NewThreeGppConditionModel(params.Scenario, clock, params.ConditionPeriod,
			params.O2iProbability, prng.NewConditionSource())
	}
	return e, nil
}

func (e *Engine) Params() *Params {
	return e.params
}

func (e *Engine) Now() uint64 {
	return e.clock.Now()
}

func (e *Engine) SetConditionModel(cm ConditionModel) {
	logger.AssertNotNil(cm)
	e.condition = cm
}

func (e *Engine) SetSweepMonitor(sm SweepMonitor) {
	e.sweeps = sm
}

// GetChannel returns the realization for the link from a to b. The boolean is false when the
// pair has no meaningful channel: same roles, an anchor endpoint or an omni antenna on either
// side.
func (e *Engine) GetChannel(a, b mobility.Provider, antA, antB antenna.Controller) (*SpatialChannelMatrix, bool) {
	if a.Role() == b.Role() || a.Role() == RoleAnchor || b.Role() == RoleAnchor {
		return nil, false
	}
	if antA.IsOmniTx() || antB.IsOmniTx() {
		return nil, false
	}

	tx, rx := Endpoint{a, antA}, Endpoint{b, antB}
	if a.Role() == RoleUe {
		tx, rx = rx, tx
	}
	key, _ := makePairKey(a.Id(), b.Id())
	now := e.clock.Now()

	var m *SpatialChannelMatrix
	if e.params.Model == ModelRayTraced {
		m = e.rayTraced(key, tx, rx, now)
	} else {
		m = e.statistical(key, tx, rx, now)
	}
	return m.view(m.TxId != a.Id()), true
}

func (e *Engine) statistical(key pairKey, tx, rx Endpoint, now uint64) *SpatialChannelMatrix {
	cond := e.condition.GetCondition(tx.Mobility, rx.Mobility)
	cached := e.cache[key]
	if cached != nil {
		if cached.GeneratedAt == now {
			e.Stats.Hits++
			return cached
		}
		if e.params.RealisticIa && e.sweeps != nil && e.sweeps.IsSweeping(rx.Mobility.Id()) {
			e.Stats.Suppressed++
			return cached
		}
		if cached.Condition == cond && (e.params.UpdatePeriod == 0 || now-cached.GeneratedAt < e.params.UpdatePeriod) {
			e.Stats.Hits++
			return cached
		}
	}

	var m *SpatialChannelMatrix
	if cached != nil && e.params.SpatialConsistency && cached.Condition == cond && cached.rays != nil &&
		cached.TxElements == tx.Antenna.ElementCount() && cached.RxElements == rx.Antenna.ElementCount() {
		m = e.stat.evolve(cached, tx, rx, now)
		e.Stats.Evolved++
	} else {
		var blockers []BlockageRegion
		if cached != nil {
			blockers = cached.Blockers
		}
		m = e.stat.generate(tx, rx, cond, blockers, now)
		e.Stats.Generated++
	}
	e.store(key, m, now)
	return m
}

func (e *Engine) rayTraced(key pairKey, tx, rx Endpoint, now uint64) *SpatialChannelMatrix {
	idx := int(now / e.params.RayTraceStep)
	if cached := e.cache[key]; cached != nil && cached.TimeIndex == idx {
		e.Stats.Hits++
		return cached
	}
	m := e.rt.generate(tx, rx, idx, now)
	e.Stats.Generated++
	e.store(key, m, now)
	return m
}

func (e *Engine) store(key pairKey, m *SpatialChannelMatrix, now uint64) {
	e.nextGenId++
	m.GenerationId = e.nextGenId
	assertValid(m)
	logger.Tracef("generated %v", m)
	e.cache[key] = m
	if e.params.MaxCacheSize > 0 && len(e.cache) > e.params.MaxCacheSize {
		e.purge(now)
	}
}

// purge drops all realizations not generated at the current instant.
func (e *Engine) purge(now uint64) {
	for k, m := range e.cache {
		if m.GeneratedAt != now {
			delete(e.cache, k)
		}
	}
	e.Stats.Purges++
	logger.Debugf("channel cache purged, %d entries left", len(e.cache))
}

// Cached returns the stored realization of a pair as seen from a to b, without refreshing it.
func (e *Engine) Cached(a, b NodeId) (*SpatialChannelMatrix, bool) {
	key, _ := makePairKey(a, b)
	m, ok := e.cache[key]
	if !ok {
		return nil, false
	}
	return m.view(m.TxId != a), true
}

// Forget removes the realization of a pair, e.g. after a node moved abruptly.
func (e *Engine) Forget(a, b NodeId) {
	key, _ := makePairKey(a, b)
	delete(e.cache, key)
}

// ForgetNode removes all realizations involving a node.
func (e *Engine) ForgetNode(id NodeId) {
	for k := range e.cache {
		if k.lo == id || k.hi == id {
			delete(e.cache, k)
		}
	}
}

func (e *Engine) CacheSize() int {
	return len(e.cache)
}
