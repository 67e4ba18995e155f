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
	"sort"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/beam"
	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/dispatcher"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/mobility"
	"github.com/mmwns/mmw-ns/rlm"
	. "github.com/mmwns/mmw-ns/types"
)

type UeState int

const (
	UeConnected UeState = iota
	UeInitialAccessSweeping
	UeBeamTrackingSweeping
	UeAwaitingReconnection
)

func (s UeState) String() string {
	switch s {
	case UeConnected:
		return "connected"
	case UeInitialAccessSweeping:
		return "ia-sweeping"
	case UeBeamTrackingSweeping:
		return "tracking-sweeping"
	case UeAwaitingReconnection:
		return "awaiting-reconnection"
	default:
		logger.Panicf("invalid UE state: %d", int(s))
		return ""
	}
}

type UeStats struct {
	SweepsStarted   uint64
	SweepsCompleted uint64
	SweepsIgnored   uint64
	Outages         uint64
	Handovers       uint64
	CsiReports      uint64
}

// maxSweepCycles bounds how many passes over the rx candidates a realistic sweep makes before it
// settles for what it has measured.
const maxSweepCycles = 2

// UePhy is the UE side of beam management.
type UePhy struct {
	Id  NodeId
	net *Network
	mob mobility.Provider
	ant antenna.Controller
	log *logger.NodeLogger

	state       UeState
	serving     NodeId
	prevServing NodeId
	pending     NodeId
	handover    bool
	tracking    bool
	started     bool

	acc          *beam.Accumulator
	rxCandidates []BeamId
	rxIdx        int
	rxCycles     int
	sweepGen     uint64

	reconnectTimer *dispatcher.Timer
	rlmTimer       *dispatcher.Timer
	monitor        *rlm.Monitor
	filter         rlm.Filter
	verdict        rlm.Verdict
	lastSinr       float64
	bursts         int

	rlmBeams  []BeamPair
	cellBeams map[NodeId][]BeamPair

	Stats UeStats
}

func newUePhy(n *Network, mob mobility.Provider, ant antenna.Controller) *UePhy {
	return &UePhy{
		Id:        mob.Id(),
		net:       n,
		mob:       mob,
		ant:       ant,
		log:       logger.GetNodeLogger(mob.Id(), RoleUe),
		acc:       beam.NewAccumulator(mob.Id()),
		monitor:   rlm.NewMonitor(n.cfg.Rlm),
		filter:    rlm.Filter{Alpha: n.cfg.Rlm.FilterAlpha},
		lastSinr:  channel.NoChannelGainDb,
		cellBeams: map[NodeId][]BeamPair{},
	}
}

func (u *UePhy) Endpoint() channel.Endpoint {
	return channel.Endpoint{Mobility: u.mob, Antenna: u.ant}
}

func (u *UePhy) Antenna() antenna.Controller {
	return u.ant
}

func (u *UePhy) Mobility() mobility.Provider {
	return u.mob
}

func (u *UePhy) State() UeState {
	return u.state
}

// ServingCell returns the cell the UE is attached to, or InvalidNodeId.
func (u *UePhy) ServingCell() NodeId {
	return u.serving
}

// RlmBeams returns the tracked beam pairs of the serving cell, best first.
func (u *UePhy) RlmBeams() []BeamPair {
	return u.rlmBeams
}

// LastSinr is the latest filtered serving SINR.
func (u *UePhy) LastSinr() float64 {
	return u.lastSinr
}

func (u *UePhy) Accumulator() *beam.Accumulator {
	return u.acc
}

func (u *UePhy) IsSweeping() bool {
	return u.state == UeInitialAccessSweeping || u.state == UeBeamTrackingSweeping
}

// Start begins initial access and the radio-link monitoring tick.
func (u *UePhy) Start() {
	if u.started {
		return
	}
	u.started = true
	u.rlmTimer = u.net.d.ScheduleAfter(u.net.cfg.Rlm.Interval, "ue-rlm", u.rlmTick)
	u.StartSweep(OriginUeOutage)
}

func (u *UePhy) Stop() {
	u.started = false
	u.net.d.Cancel(u.rlmTimer)
	u.net.d.Cancel(u.reconnectTimer)
}

// StartSweep starts an initial-access sweep over all cells. It returns false when a sweep is
// already in progress or no cell exists.
func (u *UePhy) StartSweep(origin SweepOrigin) bool {
	return u.startSweep(origin, false)
}

func (u *UePhy) startSweep(origin SweepOrigin, tracking bool) bool {
	if u.IsSweeping() || u.state == UeAwaitingReconnection {
		u.log.Debugf("sweep (%v) requested in state %v, ignored", origin, u.state)
		u.Stats.SweepsIgnored++
		return false
	}

	scope := beam.ScopeFull
	ueBeams := u.ant.Codebook().Beams()
	var tables []*beam.SweepTable
	if tracking {
		g := u.net.Gnb(u.serving)
		logger.AssertNotNil(g, "tracking sweep without serving cell")
		if u.net.cfg.Scope() == beam.ScopeReduced && len(u.rlmBeams) > 0 {
			scope = beam.ScopeReduced
			tables = append(tables, beam.NewReducedSweepTable(g.Id, beam.PairKeys(u.rlmBeams)))
		} else {
			tables = append(tables, beam.NewFullSweepTable(g.Id, ueBeams, g.ant.Codebook().Beams()))
		}
	} else {
		for _, g := range u.net.gnbOrder {
			tables = append(tables, beam.NewFullSweepTable(g.Id, ueBeams, g.ant.Codebook().Beams()))
		}
		if len(tables) == 0 {
			u.log.Warnf("no cell to sweep")
			return false
		}
	}

	now := u.net.Now()
	u.net.sink.OnBeamSweep(BeamSweepTraceEvent{
		Timestamp: now,
		Origin:    origin,
		UeId:      u.Id,
		CellId:    u.serving,
		SnrDb:     u.lastSinr,
	})

	if tracking {
		u.state = UeBeamTrackingSweeping
	} else {
		if u.serving != InvalidNodeId {
			if g := u.net.Gnb(u.serving); g != nil {
				g.Detach(u.Id)
			}
			u.prevServing = u.serving
			u.serving = InvalidNodeId
		}
		u.state = UeInitialAccessSweeping
	}
	u.tracking = tracking
	u.sweepGen++
	u.Stats.SweepsStarted++
	u.acc.Start(scope, now, tables...)
	if scope == beam.ScopeReduced {
		u.rxCandidates = beam.RxBeams(beam.PairKeys(u.rlmBeams))
	} else {
		u.rxCandidates = ueBeams
	}
	u.rxIdx, u.rxCycles = 0, 0
	u.log.Debugf("%v sweep started (%v, %s scope, %d cells)", origin, u.state, scope, len(tables))

	if !u.net.cfg.RealisticIa {
		u.idealSweep()
		return true
	}
	u.ant.SetBeam(u.rxCandidates[0])
	return true
}

// idealSweep measures every candidate pair at once.
func (u *UePhy) idealSweep() {
	for _, cell := range u.acc.Cells() {
		g := u.net.Gnb(cell)
		t := u.acc.Table(cell)
		for _, rx := range u.rxCandidates {
			for _, tx := range g.ant.Codebook().Beams() {
				if t.Expects(rx, tx) {
					t.Record(rx, tx, u.net.MeasureSnr(g, u, tx, rx))
				}
			}
		}
	}
	u.finishSweep()
}

// ReceiveSsb is called for every SSB occasion of every cell.
func (u *UePhy) ReceiveSsb(g *GnbPhy, tx BeamId) {
	if !u.IsSweeping() || !u.net.cfg.RealisticIa {
		return
	}
	t := u.acc.Table(g.Id)
	rx := u.rxCandidates[u.rxIdx]
	if t == nil || !t.Expects(rx, tx) {
		return
	}
	t.Record(rx, tx, u.net.MeasureSnr(g, u, tx, rx))
	if u.acc.Complete() {
		u.finishSweep()
	}
}

// EndSsbBurst moves the sweep to the next rx candidate.
func (u *UePhy) EndSsbBurst() {
	if !u.IsSweeping() || !u.net.cfg.RealisticIa {
		return
	}
	u.rxIdx++
	if u.rxIdx == len(u.rxCandidates) {
		u.rxIdx = 0
		u.rxCycles++
		if u.rxCycles >= maxSweepCycles {
			done, expected := u.acc.Progress()
			u.log.Warnf("sweep incomplete after %d cycles (%d/%d pairs)", u.rxCycles, done, expected)
			u.finishSweep()
			return
		}
	}
	u.ant.SetBeam(u.rxCandidates[u.rxIdx])
}

func (u *UePhy) finishSweep() {
	now := u.net.Now()
	cell, best, found := u.acc.BestCell()
	cellBest := u.acc.CellBest()
	k := u.net.cfg.Rlm.BeamCount
	for _, c := range u.acc.Cells() {
		if t := u.acc.Table(c); t.Count() > 0 {
			u.cellBeams[c] = t.TopK(k)
		}
	}
	cells := u.acc.Cells()
	u.acc.Reset()
	u.Stats.SweepsCompleted++
	u.state = UeAwaitingReconnection
	u.sweepGen++

	if !found {
		u.log.Warnf("sweep found no usable beam")
		u.pending = InvalidNodeId
	} else {
		u.net.sink.OnBeamSweep(BeamSweepTraceEvent{
			Timestamp: now,
			Origin:    OriginSweepComplete,
			UeId:      u.Id,
			CellId:    cell,
			SnrDb:     best.SnrDb,
			PrevSnrDb: u.lastSinr,
			Beam:      best.Tx,
		})
		for _, c := range cells {
			if p, ok := cellBest[c]; ok {
				u.net.coord.UpdateSinr(u.Id, c, p.SnrDb)
			}
		}
		for _, c := range cells {
			p, ok := cellBest[c]
			if !ok {
				continue
			}
			u.ant.SaveBeamFor(c, p.Rx)
			u.net.Gnb(c).OnSweepReport(SweepReport{Timestamp: now, UeId: u.Id, CellId: c, Best: p})
		}
		u.rlmBeams = append([]BeamPair(nil), u.cellBeams[cell]...)
		u.pending = cell
		u.log.Debugf("sweep complete: cell %d, %v", cell, best)

		if !u.tracking && u.prevServing != InvalidNodeId && cell != u.prevServing {
			u.handover = true
			u.Stats.Handovers++
			u.net.sink.OnHandover(HandoverEvent{Timestamp: now, Kind: HandoverStart, UeId: u.Id,
				SourceCell: u.prevServing, TargetCell: cell})
		}
	}

	gen := u.sweepGen
	u.reconnectTimer = u.net.d.ScheduleAfter(u.net.cfg.PostSweepDelay, "ue-reconnect", func() {
		u.reconnect(gen)
	})
}

// reconnect runs when the post-sweep or handover delay expires.
func (u *UePhy) reconnect(gen uint64) {
	if !u.started || u.state != UeAwaitingReconnection || gen != u.sweepGen {
		return
	}
	now := u.net.Now()
	if u.tracking {
		u.tracking = false
		u.state = UeConnected
		u.ant.UseBeamFor(u.serving)
		u.monitor.Reset()
		return
	}

	target := u.pending
	if target == InvalidNodeId || u.net.Gnb(target) == nil {
		u.state = UeConnected
		u.serving = InvalidNodeId
		u.StartSweep(OriginUeOutage)
		return
	}

	u.serving = target
	u.state = UeConnected
	u.net.Gnb(target).Attach(u.Id)
	u.ant.UseBeamFor(target)
	u.monitor.Reset()
	u.filter.Reset()
	u.bursts = 0

	kind := HandoverConnectionEstablished
	if u.handover {
		kind = HandoverEnd
	}
	u.net.sink.OnHandover(HandoverEvent{Timestamp: now, Kind: kind, UeId: u.Id,
		SourceCell: u.prevServing, TargetCell: target})
	u.handover = false
	u.prevServing = target
	u.log.Infof("connected to cell %d", target)
}

// ExecuteHandover detaches from the serving cell and attaches to target after the handover
// delay. It returns false when the UE is not in a state to hand over.
func (u *UePhy) ExecuteHandover(target NodeId) bool {
	if u.state != UeConnected || u.serving == InvalidNodeId || target == u.serving || u.net.Gnb(target) == nil {
		u.log.Debugf("handover to %d ignored in state %v", target, u.state)
		return false
	}
	now := u.net.Now()
	src := u.serving
	u.net.sink.OnHandover(HandoverEvent{Timestamp: now, Kind: HandoverStart, UeId: u.Id,
		SourceCell: src, TargetCell: target})
	u.net.Gnb(src).Detach(u.Id)

	u.prevServing = src
	u.serving = InvalidNodeId
	u.pending = target
	u.handover = true
	u.tracking = false
	u.state = UeAwaitingReconnection
	u.Stats.Handovers++
	if beams := u.cellBeams[target]; len(beams) > 0 {
		u.rlmBeams = append([]BeamPair(nil), beams...)
	}
	u.sweepGen++
	gen := u.sweepGen
	u.reconnectTimer = u.net.d.ScheduleAfter(u.net.cfg.HandoverDelay, "ue-handover", func() {
		u.reconnect(gen)
	})
	return true
}

func (u *UePhy) rlmTick() {
	u.rlmTimer = u.net.d.ScheduleAfter(u.net.cfg.Rlm.Interval, "ue-rlm", u.rlmTick)
	if u.state != UeConnected {
		return
	}
	if u.serving == InvalidNodeId {
		u.StartSweep(OriginUeOutage)
		return
	}

	sinr := u.filter.Update(u.net.ServingSinr(u))
	u.lastSinr = sinr
	u.net.sink.OnSinr(SinrSample{Timestamp: u.net.Now(), UeId: u.Id, CellId: u.serving, SinrDb: sinr})
	if !u.net.cfg.RlmEnabled {
		return
	}

	u.verdict = u.monitor.Evaluate(sinr)
	switch {
	case u.verdict.Outage:
		u.Stats.Outages++
		u.log.Infof("radio link outage on cell %d (%.1f dB)", u.serving, sinr)
		u.StartSweep(OriginUeOutage)
	case u.verdict.SweepNeeded:
		u.StartSweep(OriginUeRefinement)
	}
}

// OnServingSsbBurst is called by the serving cell at the start of each of its SSB bursts and
// periodically turns one into a tracking sweep.
func (u *UePhy) OnServingSsbBurst(cell NodeId) {
	period := u.net.cfg.TrackingPeriodBursts
	if cell != u.serving || u.state != UeConnected || !u.net.cfg.RlmEnabled || period == 0 {
		return
	}
	if u.verdict.AboveMaxRate {
		return
	}
	u.bursts++
	if u.bursts%period == 0 {
		u.startSweep(OriginGnbRefinement, true)
	}
}

// ReceiveCsiRs measures the tracked beam pairs on the serving cell's CSI-RS resources and
// reports the result.
func (u *UePhy) ReceiveCsiRs(cell NodeId, resources int) {
	if u.state != UeConnected || cell != u.serving || len(u.rlmBeams) == 0 {
		return
	}
	g := u.net.Gnb(cell)
	n := len(u.rlmBeams)
	if resources < n {
		n = resources
	}
	for i := 0; i < n; i++ {
		p := &u.rlmBeams[i]
		p.SnrDb = u.net.MeasureSnr(g, u, p.Tx, p.Rx)
	}
	sort.SliceStable(u.rlmBeams, func(i, j int) bool {
		return u.rlmBeams[i].SnrDb > u.rlmBeams[j].SnrDb
	})

	if cur, ok := u.ant.BeamFor(cell); !ok || cur != u.rlmBeams[0].Rx {
		u.ant.SaveBeamFor(cell, u.rlmBeams[0].Rx)
	}
	sinr := u.net.ServingSinr(u)

	reported := u.net.cfg.ReportedBeams
	if reported > len(u.rlmBeams) {
		reported = len(u.rlmBeams)
	}
	r := CsiReport{
		Timestamp: u.net.Now(),
		UeId:      u.Id,
		CellId:    cell,
		Beams:     append([]BeamPair(nil), u.rlmBeams[:reported]...),
		SinrDb:    sinr,
		Cqi:       SinrToCqi(sinr),
	}
	u.Stats.CsiReports++
	g.OnCsiReport(r)
}
