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

package phy

import (
	. "github.com/mmwns/mmw-ns/types"
)

type cellSample struct {
	SinrDb    float64
	Timestamp uint64
}

type CoordinatorStats struct {
	HandoversTriggered uint64
}

// Coordinator is the anchor layer: it keeps the latest SINR of every UE towards every cell,
// answers best-cell queries and triggers handovers.
type Coordinator struct {
	net         *Network
	samples     map[NodeId]map[NodeId]cellSample
	tttCount    map[NodeId]int
	tttTarget   map[NodeId]NodeId
	beamforming map[NodeId]NodeId

	Stats CoordinatorStats
}

func newCoordinator(n *Network) *Coordinator {
	return &Coordinator{
		net:         n,
		samples:     map[NodeId]map[NodeId]cellSample{},
		tttCount:    map[NodeId]int{},
		tttTarget:   map[NodeId]NodeId{},
		beamforming: map[NodeId]NodeId{},
	}
}

// UpdateSinr stores the latest SINR of ue towards cell.
func (c *Coordinator) UpdateSinr(ue, cell NodeId, sinrDb float64) {
	m := c.samples[ue]
	if m == nil {
		m = map[NodeId]cellSample{}
		c.samples[ue] = m
	}
	m[cell] = cellSample{SinrDb: sinrDb, Timestamp: c.net.Now()}
}

func (c *Coordinator) Sinr(ue, cell NodeId) (float64, bool) {
	s, ok := c.samples[ue][cell]
	return s.SinrDb, ok
}

// BestCell returns the cell with the highest known SINR for ue. Ties keep the lowest cell id.
func (c *Coordinator) BestCell(ue NodeId) (NodeId, bool) {
	m := c.samples[ue]
	best := InvalidNodeId
	bestSinr := 0.0
	for _, g := range c.net.gnbOrder {
		s, ok := m[g.Id]
		if ok && (best == InvalidNodeId || s.SinrDb > bestSinr) {
			best, bestSinr = g.Id, s.SinrDb
		}
	}
	return best, best != InvalidNodeId
}

// Forget drops everything known about ue.
func (c *Coordinator) Forget(ue NodeId) {
	delete(c.samples, ue)
	delete(c.tttCount, ue)
	delete(c.tttTarget, ue)
}

// RequestBeamforming makes cell point its beam at ue at the start of its next slot.
func (c *Coordinator) RequestBeamforming(cell, ue NodeId) {
	c.beamforming[cell] = ue
}

// BeamformingPending tells whether cell has an outstanding beamforming request.
func (c *Coordinator) BeamformingPending(cell NodeId) bool {
	_, ok := c.beamforming[cell]
	return ok
}

func (c *Coordinator) takeBeamforming(cell NodeId) (NodeId, bool) {
	ue, ok := c.beamforming[cell]
	if ok {
		delete(c.beamforming, cell)
	}
	return ue, ok
}

func (c *Coordinator) onCsiReport(r CsiReport) {
	c.UpdateSinr(r.UeId, r.CellId, r.SinrDb)
	c.evaluate(r.UeId, r.CellId)
}

// evaluate counts consecutive reports in which the same neighbour beats the serving cell by
// the hysteresis and hands the UE over once the count reaches the time-to-trigger.
func (c *Coordinator) evaluate(ue, serving NodeId) {
	cfg := c.net.cfg
	target, ok := c.BestCell(ue)
	if !ok || target == serving {
		c.tttCount[ue] = 0
		return
	}
	servingSinr, _ := c.Sinr(ue, serving)
	targetSinr, _ := c.Sinr(ue, target)
	if targetSinr <= servingSinr+cfg.HysteresisDb {
		c.tttCount[ue] = 0
		return
	}
	if c.tttTarget[ue] != target {
		c.tttTarget[ue] = target
		c.tttCount[ue] = 0
	}
	c.tttCount[ue]++
	if c.tttCount[ue] < cfg.TimeToTrigger {
		return
	}
	c.tttCount[ue] = 0

	u := c.net.Ue(ue)
	if u == nil {
		return
	}
	ev := BeamSweepTraceEvent{
		Timestamp: c.net.Now(),
		Origin:    OriginCoordinatorHandover,
		UeId:      ue,
		CellId:    target,
		SnrDb:     targetSinr,
		PrevSnrDb: servingSinr,
	}
	if g := c.net.Gnb(target); g != nil {
		ev.Beam, _ = g.ant.BeamFor(ue)
	}
	if u.ExecuteHandover(target) {
		c.Stats.HandoversTriggered++
		c.RequestBeamforming(target, ue)
		c.net.sink.OnBeamSweep(ev)
	}
}
