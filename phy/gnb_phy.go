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
	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/mobility"
	. "github.com/mmwns/mmw-ns/types"
)

type GnbStats struct {
	SsbSent         uint64
	CsiRsSent       uint64
	ReportsReceived uint64
	BeamAdjustments uint64
}

// GnbPhy is the cell side of beam management: SSB bursts, CSI-RS towards attached UEs and
// handling of their reports.
type GnbPhy struct {
	Id  NodeId
	net *Network
	mob mobility.Provider
	ant antenna.Controller
	log *logger.NodeLogger

	attached  []NodeId
	csiOffset map[NodeId]int
	listener  ReportListener
	reports   map[NodeId]CsiReport

	Stats GnbStats
}

func newGnbPhy(n *Network, mob mobility.Provider, ant antenna.Controller) *GnbPhy {
	return &GnbPhy{
		Id:        mob.Id(),
		net:       n,
		mob:       mob,
		ant:       ant,
		log:       logger.GetNodeLogger(mob.Id(), RoleGnb),
		csiOffset: map[NodeId]int{},
		reports:   map[NodeId]CsiReport{},
	}
}

func (g *GnbPhy) Endpoint() channel.Endpoint {
	return channel.Endpoint{Mobility: g.mob, Antenna: g.ant}
}

func (g *GnbPhy) Antenna() antenna.Controller {
	return g.ant
}

func (g *GnbPhy) Mobility() mobility.Provider {
	return g.mob
}

// SetReportListener installs the MAC consumer of CSI reports.
func (g *GnbPhy) SetReportListener(l ReportListener) {
	g.listener = l
}

// burstSlots is the number of slots one SSB burst needs to cover every tx beam.
func (g *GnbPhy) burstSlots() int {
	perSlot := len(g.net.cfg.SsbSymbolOffsets)
	return (g.ant.Codebook().Size() + perSlot - 1) / perSlot
}

func (g *GnbPhy) StartSlot(s SfnSf) {
	num := g.net.clock.num
	if ue, ok := g.net.coord.takeBeamforming(g.Id); ok {
		g.ant.UseBeamFor(ue)
	}

	if g.net.isSsbFrame(s.Frame) {
		k := s.SlotInFrame(num)
		if k == 0 {
			for _, ue := range append([]NodeId(nil), g.attached...) {
				if u := g.net.Ue(ue); u != nil {
					u.OnServingSsbBurst(g.Id)
				}
			}
		}
		if k < g.burstSlots() {
			g.sendSsb(k)
		}
	}

	cfg := g.net.cfg
	if cfg.CsiRsEnabled && cfg.RlmEnabled {
		slot := int(s.Normalized(num) % uint64(cfg.CsiRsPeriodSlots))
		for _, ue := range append([]NodeId(nil), g.attached...) {
			if g.csiOffset[ue] != slot {
				continue
			}
			if u := g.net.Ue(ue); u != nil {
				g.Stats.CsiRsSent++
				u.ReceiveCsiRs(g.Id, cfg.CsiRsResources)
			}
		}
	}
}

func (g *GnbPhy) EndSlot(SfnSf) {}

// sendSsb transmits the SSB occasions of the k-th burst slot, one tx beam per occasion.
func (g *GnbPhy) sendSsb(k int) {
	beams := g.ant.Codebook().Beams()
	offsets := g.net.cfg.SsbSymbolOffsets
	for i := range offsets {
		o := k*len(offsets) + i
		if o >= len(beams) {
			break
		}
		g.Stats.SsbSent++
		g.ant.SetBeam(beams[o])
		g.net.broadcastSsb(g, beams[o])
	}
}

// SetOmniTx switches omni transmission on or off. An omni transmitter has no meaningful channel
// towards its UEs, so each served UE gets an omni-check event with the SINR it sees afterwards.
func (g *GnbPhy) SetOmniTx(on bool) {
	if g.ant.IsOmniTx() == on {
		return
	}
	g.ant.SetOmniTx(on)
	g.log.Infof("omni transmission %v", on)

	now := g.net.Now()
	for _, id := range append([]NodeId(nil), g.attached...) {
		u := g.net.Ue(id)
		if u == nil {
			continue
		}
		ev := BeamSweepTraceEvent{
			Timestamp: now,
			Origin:    OriginOmniCheck,
			UeId:      id,
			CellId:    g.Id,
			PrevSnrDb: channel.NoChannelGainDb,
		}
		if prev, ok := g.net.coord.Sinr(id, g.Id); ok {
			ev.PrevSnrDb = prev
		}
		if b, ok := g.ant.BeamFor(id); ok {
			ev.Beam = b
		}
		ev.SnrDb = g.net.ServingSinr(u)
		g.net.sink.OnBeamSweep(ev)
	}
}

// Attach adds a UE to the served set and assigns its CSI-RS slot.
func (g *GnbPhy) Attach(ue NodeId) {
	if g.IsAttached(ue) {
		g.log.Warnf("UE %d already attached", ue)
		return
	}
	g.attached = append(g.attached, ue)
	if period := g.net.cfg.CsiRsPeriodSlots; period > 0 {
		g.csiOffset[ue] = (g.net.cfg.CsiRsOffsetSlots + len(g.attached) - 1) % period
	}
	g.log.Debugf("UE %d attached", ue)
}

func (g *GnbPhy) Detach(ue NodeId) {
	for i, id := range g.attached {
		if id == ue {
			g.attached = append(g.attached[:i], g.attached[i+1:]...)
			delete(g.csiOffset, ue)
			delete(g.reports, ue)
			g.log.Debugf("UE %d detached", ue)
			return
		}
	}
}

func (g *GnbPhy) IsAttached(ue NodeId) bool {
	for _, id := range g.attached {
		if id == ue {
			return true
		}
	}
	return false
}

// Attached returns the served UEs in attach order.
func (g *GnbPhy) Attached() []NodeId {
	return g.attached
}

// LastReport returns the latest CSI report of a served UE.
func (g *GnbPhy) LastReport(ue NodeId) (CsiReport, bool) {
	r, ok := g.reports[ue]
	return r, ok
}

// OnCsiReport adjusts the beam towards the UE when the reported best beam differs from the one
// in use and relays the report to the coordinator.
func (g *GnbPhy) OnCsiReport(r CsiReport) {
	g.Stats.ReportsReceived++
	prev, hadPrev := g.reports[r.UeId]
	g.reports[r.UeId] = r

	if len(r.Beams) > 0 {
		best := r.Beams[0]
		ev := BeamSweepTraceEvent{
			Timestamp: r.Timestamp,
			Origin:    OriginBeamReport,
			UeId:      r.UeId,
			CellId:    g.Id,
			SnrDb:     best.SnrDb,
			Beam:      best.Tx,
		}
		if hadPrev {
			ev.PrevSnrDb = prev.SinrDb
		}
		g.net.sink.OnBeamSweep(ev)

		if cur, ok := g.ant.BeamFor(r.UeId); !ok || cur != best.Tx {
			g.ant.SaveBeamFor(r.UeId, best.Tx)
			g.Stats.BeamAdjustments++
			g.log.Debugf("beam towards UE %d adjusted to %v", r.UeId, best.Tx)
			ev.Origin = OriginBeamAdjustment
			g.net.sink.OnBeamSweep(ev)
		}
	}

	if g.listener != nil {
		g.listener.OnCsiReport(r)
	}
	g.net.coord.onCsiReport(r)
}

// OnSweepReport saves the beam a UE found towards this cell.
func (g *GnbPhy) OnSweepReport(r SweepReport) {
	g.ant.SaveBeamFor(r.UeId, r.Best.Tx)
	if best, ok := g.net.coord.BestCell(r.UeId); ok && best == g.Id {
		g.net.sink.OnBeamSweep(BeamSweepTraceEvent{
			Timestamp: r.Timestamp,
			Origin:    OriginGnbRefinement,
			UeId:      r.UeId,
			CellId:    g.Id,
			SnrDb:     r.Best.SnrDb,
			Beam:      r.Best.Tx,
		})
	}
}
