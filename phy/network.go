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
	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/dispatcher"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/mobility"
	"github.com/mmwns/mmw-ns/spectrum"
	"github.com/mmwns/mmw-ns/trace"
	. "github.com/mmwns/mmw-ns/types"
)

// Network connects the gNB and UE PHYs over the shared channel. It drives them from the slot
// clock, delivers SSB and CSI-RS occasions and evaluates links for them.
type Network struct {
	cfg   *Config
	d     *dispatcher.Dispatcher
	clock *SlotClock
	prop  *channel.Propagation
	txPsd *spectrum.Value
	sink  trace.Sink
	coord *Coordinator

	gnbs     map[NodeId]*GnbPhy
	ues      map[NodeId]*UePhy
	gnbOrder []*GnbPhy
	ueOrder  []*UePhy
	ssbSlots int
}

// NewNetwork wires a network and registers it as the sweep monitor of the channel engine.
func NewNetwork(cfg *Config, d *dispatcher.Dispatcher, prop *channel.Propagation, sink trace.Sink) *Network {
	logger.AssertNotNil(cfg)
	logger.AssertNotNil(prop)
	if sink == nil {
		sink = trace.NopSink{}
	}
	band := spectrum.NewModel(prop.Engine.Params().CarrierHz, cfg.BandwidthHz, cfg.NumSubbands)
	n := &Network{
		cfg:   cfg,
		d:     d,
		clock: NewSlotClock(d, NewNumerology(cfg.Numerology)),
		prop:  prop,
		txPsd: spectrum.CreateTxPsd(band, cfg.GnbTxPowerDbm, nil),
		sink:  sink,
		gnbs:  map[NodeId]*GnbPhy{},
		ues:   map[NodeId]*UePhy{},
	}
	n.coord = newCoordinator(n)
	n.clock.AddListener(n)
	prop.Engine.SetSweepMonitor(n)
	return n
}

func (n *Network) Config() *Config {
	return n.cfg
}

func (n *Network) Now() uint64 {
	return n.d.Now()
}

func (n *Network) Clock() *SlotClock {
	return n.clock
}

func (n *Network) Coordinator() *Coordinator {
	return n.coord
}

func (n *Network) Propagation() *channel.Propagation {
	return n.prop
}

func (n *Network) Sink() trace.Sink {
	return n.sink
}

// AddGnb registers a cell. A duplicate id is logged and the existing PHY returned.
func (n *Network) AddGnb(mob mobility.Provider, ant antenna.Controller) *GnbPhy {
	logger.AssertTrue(mob.Role() == RoleGnb, "node %d is not a gNB", mob.Id())
	if g := n.gnbs[mob.Id()]; g != nil {
		logger.Warnf("gNB %d already registered", mob.Id())
		return g
	}
	g := newGnbPhy(n, mob, ant)
	n.gnbs[g.Id] = g
	n.gnbOrder = append(n.gnbOrder, g)
	sort.Slice(n.gnbOrder, func(i, j int) bool { return n.gnbOrder[i].Id < n.gnbOrder[j].Id })
	if bs := g.burstSlots(); bs > n.ssbSlots {
		logger.AssertTrue(bs <= n.clock.num.SlotsPerFrame(), "SSB burst of gNB %d does not fit a frame", g.Id)
		n.ssbSlots = bs
	}
	return g
}

// AddUe registers a UE. A duplicate id is logged and the existing PHY returned.
func (n *Network) AddUe(mob mobility.Provider, ant antenna.Controller) *UePhy {
	logger.AssertTrue(mob.Role() == RoleUe, "node %d is not a UE", mob.Id())
	if u := n.ues[mob.Id()]; u != nil {
		logger.Warnf("UE %d already registered", mob.Id())
		return u
	}
	u := newUePhy(n, mob, ant)
	n.ues[u.Id] = u
	n.ueOrder = append(n.ueOrder, u)
	sort.Slice(n.ueOrder, func(i, j int) bool { return n.ueOrder[i].Id < n.ueOrder[j].Id })
	return u
}

func (n *Network) Gnb(id NodeId) *GnbPhy {
	return n.gnbs[id]
}

func (n *Network) Ue(id NodeId) *UePhy {
	return n.ues[id]
}

// Gnbs returns all cells ordered by id.
func (n *Network) Gnbs() []*GnbPhy {
	return n.gnbOrder
}

// Ues returns all UEs ordered by id.
func (n *Network) Ues() []*UePhy {
	return n.ueOrder
}

// Start starts the slot clock and every UE.
func (n *Network) Start() {
	n.clock.Start()
	for _, u := range n.ueOrder {
		u.Start()
	}
}

func (n *Network) Stop() {
	n.clock.Stop()
	for _, u := range n.ueOrder {
		u.Stop()
	}
}

// IsSweeping implements channel.SweepMonitor.
func (n *Network) IsSweeping(ue NodeId) bool {
	u := n.ues[ue]
	return u != nil && u.IsSweeping()
}

func (n *Network) isSsbFrame(frame uint32) bool {
	return int(frame)%n.cfg.SsbPeriodFrames == n.cfg.SsbOffsetFrames
}

func (n *Network) StartSlot(s SfnSf) {
	for _, g := range n.gnbOrder {
		g.StartSlot(s)
	}
}

func (n *Network) EndSlot(s SfnSf) {
	for _, g := range n.gnbOrder {
		g.EndSlot(s)
	}
	if n.ssbSlots > 0 && n.isSsbFrame(s.Frame) && s.SlotInFrame(n.clock.num) == n.ssbSlots-1 {
		for _, u := range n.ueOrder {
			u.EndSsbBurst()
		}
	}
}

func (n *Network) broadcastSsb(g *GnbPhy, tx BeamId) {
	for _, u := range n.ueOrder {
		u.ReceiveSsb(g, tx)
	}
}

// MeasureSnr steers both antennas to the given beams and returns the SNR at the UE.
func (n *Network) MeasureSnr(g *GnbPhy, u *UePhy, tx, rx BeamId) float64 {
	g.ant.SetBeam(tx)
	u.ant.SetBeam(rx)
	return n.prop.SnrDb(n.prop.RxPsd(n.txPsd, g.Endpoint(), u.Endpoint()))
}

// ServingSinr returns the SINR of u on its serving cell using the saved beams of both ends.
// Other cells that serve UEs count as interferers when the network is interference aware.
func (n *Network) ServingSinr(u *UePhy) float64 {
	g := n.gnbs[u.serving]
	if g == nil {
		return channel.NoChannelGainDb
	}
	g.ant.UseBeamFor(u.Id)
	u.ant.UseBeamFor(g.Id)
	rx := n.prop.RxPsd(n.txPsd, g.Endpoint(), u.Endpoint())

	var interference []*spectrum.Value
	if n.cfg.InterferenceAware {
		for _, o := range n.gnbOrder {
			if o == g || len(o.attached) == 0 {
				continue
			}
			o.ant.UseBeamFor(o.attached[0])
			interference = append(interference, n.prop.RxPsd(n.txPsd, o.Endpoint(), u.Endpoint()))
		}
	}
	return n.prop.SinrDb(rx, interference)
}
