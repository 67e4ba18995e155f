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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/dispatcher"
	"github.com/mmwns/mmw-ns/mobility"
	"github.com/mmwns/mmw-ns/prng"
	"github.com/mmwns/mmw-ns/trace"
	. "github.com/mmwns/mmw-ns/types"
)

type harness struct {
	d   *dispatcher.Dispatcher
	eng *channel.Engine
	net *Network
	rec *trace.RecorderSink
}

func newHarness(t *testing.T, mutate func(cfg *Config, cp *channel.Params)) *harness {
	prng.Init(7)
	d := dispatcher.NewDispatcher(nil)
	cfg := DefaultConfig()
	cp := channel.DefaultParams()
	cp.ForceCondition = "l"
	if mutate != nil {
		mutate(&cfg, cp)
	}
	require.NoError(t, cfg.Validate())
	eng, err := channel.NewEngine(cp, d, nil)
	require.NoError(t, err)
	rec := &trace.RecorderSink{}
	n := NewNetwork(&cfg, d, channel.NewPropagation(eng, cfg.UeNoiseFigureDb), rec)
	return &harness{d: d, eng: eng, net: n, rec: rec}
}

func smallCodebook(ac antenna.Config, sectors int) antenna.Config {
	if sectors > 0 {
		ac.Sectors = sectors
		ac.Elevations = []float64{90}
	}
	return ac
}

func (h *harness) addGnb(id NodeId, pos Vector, bearing float64, sectors int) *GnbPhy {
	ac := smallCodebook(antenna.DefaultGnbConfig(), sectors)
	ac.BearingDeg = bearing
	return h.net.AddGnb(mobility.NewConstantPosition(id, RoleGnb, pos), antenna.NewArray(ac))
}

func (h *harness) addUe(id NodeId, pos Vector, sectors int) *UePhy {
	ac := smallCodebook(antenna.DefaultUeConfig(), sectors)
	return h.net.AddUe(mobility.NewConstantPosition(id, RoleUe, pos), antenna.NewArray(ac))
}

func idealIa(cfg *Config, cp *channel.Params) {
	cfg.RealisticIa = false
	cp.RealisticIa = false
}

func TestSinrToCqi(t *testing.T) {
	assert.Equal(t, 0, SinrToCqi(-10))
	assert.Equal(t, 1, SinrToCqi(-6.7))
	assert.Equal(t, 3, SinrToCqi(0))
	assert.Equal(t, 15, SinrToCqi(30))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.SsbOffsetFrames = 2
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.SsbSymbolOffsets = []int{14}
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.SweepScope = "partial"
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Rlm.Tolerance = 0
	assert.Error(t, bad.Validate())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	h := newHarness(t, idealIa)
	g := h.addGnb(1, Vector{Z: 10}, 0, 0)
	assert.Same(t, g, h.addGnb(1, Vector{Z: 10}, 0, 0))
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	assert.Same(t, u, h.addUe(5, Vector{X: 30, Z: 1.5}, 0))
	assert.Len(t, h.net.Gnbs(), 1)
	assert.Len(t, h.net.Ues(), 1)
	assert.Equal(t, channel.NoChannelGainDb, h.net.ServingSinr(u))
}

func TestIdealInitialAccess(t *testing.T) {
	h := newHarness(t, idealIa)
	g := h.addGnb(1, Vector{Z: 10}, 0, 0)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	cfg := h.net.Config()

	h.net.Start()
	assert.Equal(t, UeAwaitingReconnection, u.State())
	assert.False(t, u.IsSweeping())
	assert.Equal(t, InvalidNodeId, u.ServingCell())

	h.d.RunUntil(cfg.PostSweepDelay)
	assert.Equal(t, UeConnected, u.State())
	assert.Equal(t, 1, u.ServingCell())
	assert.True(t, g.IsAttached(5))

	require.Len(t, h.rec.Handovers, 1)
	assert.Equal(t, HandoverConnectionEstablished, h.rec.Handovers[0].Kind)
	assert.Equal(t, 1, h.rec.Handovers[0].TargetCell)
	require.Len(t, h.rec.SweepsWithOrigin(OriginSweepComplete), 1)

	beams := u.RlmBeams()
	require.Len(t, beams, cfg.Rlm.BeamCount)
	for i := 1; i < len(beams); i++ {
		assert.GreaterOrEqual(t, beams[i-1].SnrDb, beams[i].SnrDb)
	}
	saved, ok := g.Antenna().BeamFor(5)
	require.True(t, ok)
	assert.Equal(t, beams[0].Tx, saved)
	rx, ok := u.Antenna().BeamFor(1)
	require.True(t, ok)
	assert.Equal(t, beams[0].Rx, rx)

	sinr, ok := h.net.Coordinator().Sinr(5, 1)
	require.True(t, ok)
	assert.Equal(t, beams[0].SnrDb, sinr)
	assert.Greater(t, h.net.ServingSinr(u), cfg.Rlm.SweepUpdateThresholdDb)
}

// the UE is 30 m from cell 2 and 1 km from the other two cells
func TestInitialAccessPicksStrongestCell(t *testing.T) {
	h := newHarness(t, idealIa)
	h.addGnb(1, Vector{X: -1000, Z: 10}, 0, 0)
	h.addGnb(2, Vector{X: 30, Z: 10}, 180, 0)
	h.addGnb(3, Vector{Y: 1000, Z: 10}, -90, 0)
	u := h.addUe(5, Vector{Z: 1.5}, 0)

	h.net.Start()
	h.d.RunUntil(h.net.Config().PostSweepDelay)
	assert.Equal(t, 2, u.ServingCell())
	best, ok := h.net.Coordinator().BestCell(5)
	require.True(t, ok)
	assert.Equal(t, 2, best)
	for _, g := range h.net.Gnbs() {
		_, saved := g.Antenna().BeamFor(5)
		assert.True(t, saved, "cell %d", g.Id)
	}
	assert.Len(t, h.rec.SweepsWithOrigin(OriginGnbRefinement), 1)
}

func TestRealisticSweepFollowsSsbBursts(t *testing.T) {
	h := newHarness(t, nil)
	g := h.addGnb(1, Vector{Z: 10}, 0, 4)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 4)
	assert.Equal(t, 2, g.burstSlots())

	h.net.Start()
	assert.True(t, u.IsSweeping())
	assert.True(t, h.net.IsSweeping(5))
	assert.Equal(t, UeInitialAccessSweeping, u.State())

	// re-entrant request is a no-op
	assert.False(t, u.StartSweep(OriginUeRefinement))
	assert.Equal(t, uint64(1), u.Stats.SweepsIgnored)

	// one rx beam per SSB burst, bursts every other frame
	h.d.RunUntil(10 * Millisecond)
	assert.Equal(t, uint64(4), g.Stats.SsbSent)
	done, expected := u.Accumulator().Progress()
	assert.Equal(t, 4, done)
	assert.Equal(t, 16, expected)

	h.d.RunUntil(50 * Millisecond)
	done, _ = u.Accumulator().Progress()
	assert.Equal(t, 12, done)
	assert.True(t, u.IsSweeping())

	// last burst starts at 60 ms and completes the table in its second slot
	h.d.RunUntil(61 * Millisecond)
	assert.Equal(t, UeAwaitingReconnection, u.State())
	assert.False(t, u.Accumulator().Active())
	assert.Equal(t, uint64(1), h.eng.Stats.Generated)
	assert.Greater(t, h.eng.Stats.Suppressed, uint64(0))

	h.d.RunUntil(61*Millisecond + h.net.Config().PostSweepDelay)
	assert.Equal(t, UeConnected, u.State())
	assert.Equal(t, 1, u.ServingCell())
	assert.False(t, h.net.IsSweeping(5))
}

func TestCsiRsReport(t *testing.T) {
	h := newHarness(t, idealIa)
	g := h.addGnb(1, Vector{Z: 10}, 0, 0)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	h.net.Start()
	h.d.RunUntil(h.net.Config().PostSweepDelay)
	require.Equal(t, UeConnected, u.State())

	// attached at slot 40, CSI-RS offset 1 of period 40
	h.d.RunUntil(h.net.Config().PostSweepDelay + 200)
	assert.Equal(t, uint64(1), g.Stats.CsiRsSent)
	assert.Equal(t, uint64(1), u.Stats.CsiReports)

	r, ok := g.LastReport(5)
	require.True(t, ok)
	assert.Len(t, r.Beams, h.net.Config().ReportedBeams)
	assert.Equal(t, SinrToCqi(r.SinrDb), r.Cqi)
	assert.GreaterOrEqual(t, r.Beams[0].SnrDb, r.Beams[1].SnrDb)
	assert.Len(t, h.rec.SweepsWithOrigin(OriginBeamReport), 1)
	sinr, _ := h.net.Coordinator().Sinr(5, 1)
	assert.Equal(t, r.SinrDb, sinr)

	saved, _ := g.Antenna().BeamFor(5)
	assert.Equal(t, r.Beams[0].Tx, saved)
}

type reportCollector struct {
	reports []CsiReport
}

func (c *reportCollector) OnCsiReport(r CsiReport) {
	c.reports = append(c.reports, r)
}

func TestReportListener(t *testing.T) {
	h := newHarness(t, idealIa)
	g := h.addGnb(1, Vector{Z: 10}, 0, 0)
	h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	c := &reportCollector{}
	g.SetReportListener(c)

	h.net.Start()
	h.d.RunUntil(h.net.Config().PostSweepDelay + 40*125 + 200)
	assert.Len(t, c.reports, 2)
}

func TestOutageTriggersInitialAccess(t *testing.T) {
	h := newHarness(t, idealIa)
	g := h.addGnb(1, Vector{Z: 10}, 0, 0)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	h.net.Start()
	h.d.RunUntil(h.net.Config().PostSweepDelay)
	require.Equal(t, UeConnected, u.State())
	require.Len(t, h.rec.Sinr, 1)

	g.SetOmniTx(true)
	h.d.RunUntil(h.net.Config().PostSweepDelay + h.net.Config().Rlm.Interval)
	assert.Equal(t, uint64(1), u.Stats.Outages)
	assert.Equal(t, UeAwaitingReconnection, u.State())
	assert.False(t, g.IsAttached(5))
	assert.Len(t, h.rec.SweepsWithOrigin(OriginUeOutage), 2)
}

func TestCoordinatorHandover(t *testing.T) {
	h := newHarness(t, idealIa)
	a := h.addGnb(1, Vector{Z: 10}, 0, 0)
	b := h.addGnb(2, Vector{X: 1000, Z: 10}, 180, 0)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	h.net.Start()
	h.d.RunUntil(h.net.Config().PostSweepDelay)
	require.Equal(t, 1, u.ServingCell())

	coord := h.net.Coordinator()
	coord.UpdateSinr(5, 2, 100)
	report := CsiReport{UeId: 5, CellId: 1, SinrDb: 0}
	for i := 0; i < h.net.Config().TimeToTrigger-1; i++ {
		coord.onCsiReport(report)
	}
	assert.Equal(t, UeConnected, u.State())
	coord.onCsiReport(report)
	assert.Equal(t, uint64(1), coord.Stats.HandoversTriggered)
	assert.Equal(t, UeAwaitingReconnection, u.State())
	assert.False(t, a.IsAttached(5))
	assert.True(t, coord.BeamformingPending(2))
	assert.Len(t, h.rec.SweepsWithOrigin(OriginCoordinatorHandover), 1)

	// a second command while the handover runs is ignored
	assert.False(t, u.ExecuteHandover(1))

	now := h.d.Now()
	h.d.RunUntil(now + h.net.Config().HandoverDelay)
	assert.Equal(t, 2, u.ServingCell())
	assert.True(t, b.IsAttached(5))
	assert.False(t, coord.BeamformingPending(2))

	require.Len(t, h.rec.Handovers, 3)
	assert.Equal(t, HandoverStart, h.rec.Handovers[1].Kind)
	assert.Equal(t, HandoverEnd, h.rec.Handovers[2].Kind)
	assert.Equal(t, 1, h.rec.Handovers[2].SourceCell)
	assert.Equal(t, 2, h.rec.Handovers[2].TargetCell)
}

func TestCoordinatorHysteresis(t *testing.T) {
	h := newHarness(t, idealIa)
	h.addGnb(1, Vector{Z: 10}, 0, 0)
	h.addGnb(2, Vector{X: 60, Z: 10}, 180, 0)
	coord := h.net.Coordinator()

	coord.UpdateSinr(5, 1, 10)
	coord.UpdateSinr(5, 2, 12)
	for i := 0; i < 10; i++ {
		coord.onCsiReport(CsiReport{UeId: 5, CellId: 1, SinrDb: 10})
	}
	assert.Zero(t, coord.Stats.HandoversTriggered)
	best, _ := coord.BestCell(5)
	assert.Equal(t, 2, best)

	coord.UpdateSinr(6, 1, 5)
	coord.UpdateSinr(6, 2, 5)
	best, _ = coord.BestCell(6)
	assert.Equal(t, 1, best)

	coord.Forget(5)
	_, ok := coord.BestCell(5)
	assert.False(t, ok)
}

func TestTrackingSweepKeepsConnection(t *testing.T) {
	h := newHarness(t, func(cfg *Config, cp *channel.Params) {
		cfg.TrackingPeriodBursts = 1
		cfg.Rlm.MaxRateThresholdDb = 100
	})
	g := h.addGnb(1, Vector{Z: 10}, 0, 4)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 4)
	h.net.Start()
	h.d.RunUntil(70 * Millisecond)
	require.Equal(t, UeConnected, u.State())

	// next SSB frame
	h.d.RunUntil(80 * Millisecond)
	assert.Equal(t, UeBeamTrackingSweeping, u.State())
	assert.True(t, g.IsAttached(5))
	assert.Equal(t, 1, u.ServingCell())
	assert.Len(t, h.rec.Handovers, 1)
}

// three cells where the pair on cell 2 tx beam (5,30) is the strongest
func TestSweepSelectsFavoredCellAndBeam(t *testing.T) {
	h := newHarness(t, func(cfg *Config, cp *channel.Params) {
		cfg.RlmEnabled = false
	})
	for i, pos := range []Vector{{X: -100, Z: 10}, {X: 100, Z: 10}, {Y: 100, Z: 10}} {
		ac := antenna.DefaultGnbConfig()
		ac.Sectors = 8
		ac.Elevations = []float64{30, 60}
		h.net.AddGnb(mobility.NewConstantPosition(NodeId(i+1), RoleGnb, pos), antenna.NewArray(ac))
	}
	u := h.addUe(5, Vector{Z: 1.5}, 4)
	cfg := h.net.Config()

	u.Start()
	require.True(t, u.IsSweeping())
	favored := BeamId{Sector: 5, Elevation: 30}
	acc := u.Accumulator()
	for _, cell := range acc.Cells() {
		for i, rx := range u.Antenna().Codebook().Beams() {
			for j, tx := range h.net.Gnb(cell).Antenna().Codebook().Beams() {
				snr := float64(cell) + 0.1*float64(i) - 0.01*float64(j)
				if cell == 2 && tx == favored && rx.Sector == 1 {
					snr = 25
				}
				acc.Record(cell, rx, tx, snr)
			}
		}
	}
	require.True(t, acc.Complete())
	u.finishSweep()
	h.d.RunUntil(cfg.PostSweepDelay)

	require.Equal(t, UeConnected, u.State())
	assert.Equal(t, 2, u.ServingCell())
	assert.True(t, h.net.Gnb(2).IsAttached(5))
	saved, ok := h.net.Gnb(2).Antenna().BeamFor(5)
	require.True(t, ok)
	assert.Equal(t, favored, saved)

	beams := u.RlmBeams()
	require.Len(t, beams, cfg.Rlm.BeamCount)
	assert.Equal(t, favored, beams[0].Tx)
	assert.Equal(t, 25.0, beams[0].SnrDb)
	for i := 1; i < len(beams); i++ {
		assert.GreaterOrEqual(t, beams[i-1].SnrDb, beams[i].SnrDb)
	}

	// CSI-RS re-measures the tracked pairs without touching the sweep result of the cell
	swept := append([]BeamPair(nil), u.cellBeams[2]...)
	u.ReceiveCsiRs(2, cfg.CsiRsResources)
	assert.Equal(t, uint64(1), u.Stats.CsiReports)
	assert.Equal(t, swept, u.cellBeams[2])
	assert.NotEqual(t, swept, u.RlmBeams())
}

func TestGnbOmniCheck(t *testing.T) {
	h := newHarness(t, idealIa)
	g := h.addGnb(1, Vector{Z: 10}, 0, 0)
	u := h.addUe(5, Vector{X: 30, Z: 1.5}, 0)
	h.net.Start()
	h.d.RunUntil(h.net.Config().PostSweepDelay)
	require.Equal(t, UeConnected, u.State())
	before := h.net.ServingSinr(u)

	g.SetOmniTx(true)
	assert.True(t, g.Antenna().IsOmniTx())
	checks := h.rec.SweepsWithOrigin(OriginOmniCheck)
	require.Len(t, checks, 1)
	assert.Equal(t, 5, checks[0].UeId)
	assert.Equal(t, 1, checks[0].CellId)
	assert.Less(t, checks[0].SnrDb, before)
	saved, _ := g.Antenna().BeamFor(5)
	assert.Equal(t, saved, checks[0].Beam)

	// no change, no event
	g.SetOmniTx(true)
	assert.Len(t, h.rec.SweepsWithOrigin(OriginOmniCheck), 1)

	g.SetOmniTx(false)
	checks = h.rec.SweepsWithOrigin(OriginOmniCheck)
	require.Len(t, checks, 2)
	assert.InDelta(t, before, checks[1].SnrDb, 1e-9)
}
