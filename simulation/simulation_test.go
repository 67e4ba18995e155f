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

package simulation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/phy"
	"github.com/mmwns/mmw-ns/trace"
	. "github.com/mmwns/mmw-ns/types"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = 7
	cfg.Channel.Condition = "l"
	cfg.Phy.RealisticIa = false
	cfg.GnbAntenna.Sectors = 4
	cfg.GnbAntenna.Elevations = []float64{90}
	cfg.UeAntenna.Sectors = 4
	cfg.UeAntenna.Elevations = []float64{90}
	dir := t.TempDir()
	cfg.Trace.Dir = filepath.Join(dir, "traces")
	cfg.Trace.KpiFile = filepath.Join(dir, "kpi.json")
	cfg.Nodes = []config.NodeConfig{
		{Id: 1, Role: "gnb", Position: [3]float64{0, 0, 10}},
		{Id: 5, Role: "ue", Position: [3]float64{30, 0, 1.5}},
	}
	return cfg
}

func newTestSimulation(t *testing.T, cfg *config.Config) (*Simulation, *trace.RecorderSink) {
	rec := &trace.RecorderSink{}
	sim, err := NewSimulation(nil, cfg, rec)
	require.NoError(t, err)
	t.Cleanup(sim.Stop)
	return sim, rec
}

func TestSimulationConnectsAndWritesKpis(t *testing.T) {
	cfg := testConfig(t)
	sim, rec := newTestSimulation(t, cfg)
	assert.Equal(t, []NodeId{1, 5}, sim.GetNodes())

	sim.Start()
	sim.RunFor(cfg.Phy.PostSweepDelay)
	ue := sim.Network().Ue(5)
	require.NotNil(t, ue)
	assert.Equal(t, phy.UeConnected, ue.State())
	assert.Equal(t, 1, ue.ServingCell())

	sim.RunFor(100 * Millisecond)
	assert.NotEmpty(t, rec.Sinr)
	assert.Equal(t, 1.0, testutil.ToFloat64(sim.Context().Metrics.Handovers.WithLabelValues("connected")))

	kpi := sim.KpiManager().Data()
	assert.Equal(t, 1, kpi.Ues[5].ServingCell)
	assert.Equal(t, []NodeId{5}, kpi.Cells[1].AttachedUes)
	assert.Greater(t, kpi.Counters[1]["gnb.SsbSent"], uint64(0))
	assert.Equal(t, uint64(1), kpi.Counters[5]["ue.SweepsStarted"])
	assert.Equal(t, 100.0, kpi.Ues[5].SweepSuccessPercent)

	sim.Stop()
	assert.True(t, sim.IsStopping())

	data, err := os.ReadFile(cfg.Trace.KpiFile)
	require.NoError(t, err)
	var saved Kpi
	require.NoError(t, json.Unmarshal(data, &saved))
	_, err = uuid.Parse(saved.RunId)
	assert.NoError(t, err)
	assert.Equal(t, "ok", saved.Status)
	assert.Equal(t, cfg.Phy.PostSweepDelay+100*Millisecond, saved.TimeUs.PeriodUs)
	assert.Equal(t, 1, saved.Ues[5].ServingCell)

	sweeps, err := os.ReadFile(filepath.Join(cfg.Trace.Dir, "beam-sweeps.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, sweeps)
}

func TestAddNode(t *testing.T) {
	sim, _ := newTestSimulation(t, testConfig(t))

	_, err := sim.AddNode(config.NodeConfig{Id: 5, Role: "ue"})
	assert.Error(t, err)
	_, err = sim.AddNode(config.NodeConfig{Role: "router"})
	assert.Error(t, err)

	n, err := sim.AddNode(config.NodeConfig{Role: "ue", Position: [3]float64{50, 0, 1.5}})
	require.NoError(t, err)
	assert.Equal(t, 2, n.Id)
	assert.NotNil(t, n.Ue)
	assert.Nil(t, n.Gnb)

	anchor, err := sim.AddNode(config.NodeConfig{Id: 100, Role: "anchor"})
	require.NoError(t, err)
	assert.Nil(t, anchor.Ant)
	assert.Nil(t, sim.Network().Ue(100))
	assert.Nil(t, sim.Network().Gnb(100))

	moving, err := sim.AddNode(config.NodeConfig{Id: 6, Role: "ue", Velocity: [3]float64{1, 0, 0}})
	require.NoError(t, err)
	sim.RunFor(2 * Second)
	assert.InDelta(t, 2.0, moving.Position().X, 1e-9)
}

func TestAddNodeAfterStart(t *testing.T) {
	cfg := testConfig(t)
	sim, _ := newTestSimulation(t, cfg)
	sim.Start()
	sim.RunFor(Millisecond)

	n, err := sim.AddNode(config.NodeConfig{Id: 7, Role: "ue", Position: [3]float64{40, 5, 1.5}})
	require.NoError(t, err)
	sim.RunFor(cfg.Phy.PostSweepDelay)
	assert.Equal(t, phy.UeConnected, n.Ue.State())
	assert.Equal(t, 1, n.Ue.ServingCell())
}

func TestMoveNodeDropsChannel(t *testing.T) {
	cfg := testConfig(t)
	sim, _ := newTestSimulation(t, cfg)
	sim.Start()
	sim.RunFor(cfg.Phy.PostSweepDelay)

	info, err := sim.ChannelInfo(5, 1)
	require.NoError(t, err)
	assert.Contains(t, info, "channel")

	require.NoError(t, sim.MoveNode(5, Vector{X: 60, Z: 1.5}))
	assert.Equal(t, Vector{X: 60, Z: 1.5}, sim.GetNode(5).Position())
	_, err = sim.ChannelInfo(5, 1)
	assert.Error(t, err)

	assert.Error(t, sim.MoveNode(42, Vector{}))
	_, err = sim.ChannelInfo(5, 42)
	assert.Error(t, err)

	exported := sim.ExportConfig()
	require.Len(t, exported.Nodes, 2)
	assert.Equal(t, [3]float64{60, 0, 1.5}, exported.Nodes[1].Position)
	assert.Equal(t, [3]float64{30, 0, 1.5}, cfg.Nodes[1].Position)
}

func TestStartSweep(t *testing.T) {
	cfg := testConfig(t)
	sim, rec := newTestSimulation(t, cfg)
	assert.Error(t, sim.StartSweep(5))

	sim.Start()
	assert.Error(t, sim.StartSweep(1))
	sim.RunFor(cfg.Phy.PostSweepDelay)

	require.NoError(t, sim.StartSweep(5))
	assert.Len(t, rec.SweepsWithOrigin(OriginUeRefinement), 1)
	// still awaiting reconnection after the ideal sweep
	assert.Error(t, sim.StartSweep(5))
}

func TestSetOmniTx(t *testing.T) {
	cfg := testConfig(t)
	sim, rec := newTestSimulation(t, cfg)
	assert.Error(t, sim.SetOmniTx(5, true))

	sim.Start()
	sim.RunFor(cfg.Phy.PostSweepDelay)
	require.NoError(t, sim.SetOmniTx(1, true))
	require.Len(t, rec.SweepsWithOrigin(OriginOmniCheck), 1)
	assert.Equal(t, 5, rec.SweepsWithOrigin(OriginOmniCheck)[0].UeId)

	sim.RunFor(cfg.Phy.Rlm.Interval)
	assert.NotEqual(t, phy.UeConnected, sim.Network().Ue(5).State())
}

func TestWalkingUe(t *testing.T) {
	cfg := testConfig(t)
	walk := filepath.Join(t.TempDir(), "walk.txt")
	require.NoError(t, os.WriteFile(walk, []byte("30 0 1.5\n32 0 1.5\n34 0 1.5\n"), 0644))
	cfg.RayTrace.StepMs = 10
	cfg.Nodes[1].Walk = walk

	sim, _ := newTestSimulation(t, cfg)
	assert.Equal(t, -1, sim.Context().LastTraceIndex(5))
	sim.Start()
	assert.Equal(t, 0, sim.Context().LastTraceIndex(5))

	sim.RunFor(15 * Millisecond)
	assert.Equal(t, 1, sim.Context().LastTraceIndex(5))
	assert.Equal(t, Vector{X: 32, Z: 1.5}, sim.GetNode(5).Position())

	sim.RunFor(50 * Millisecond)
	assert.Equal(t, 2, sim.Context().LastTraceIndex(5))
	assert.True(t, sim.GetNode(5).WalkDone())
	assert.False(t, sim.Context().ObserveTraceIndex(5, 2))
	assert.Error(t, sim.MoveNode(5, Vector{}))

	cfg.Nodes[1].Walk = filepath.Join(t.TempDir(), "missing.txt")
	_, err := NewSimulation(nil, cfg)
	assert.Error(t, err)
}

func TestSetLogLevel(t *testing.T) {
	sim, _ := newTestSimulation(t, testConfig(t))
	assert.Error(t, sim.SetLogLevel("loud"))
	require.NoError(t, sim.SetLogLevel("warn"))
	assert.Equal(t, "warn", sim.Config().LogLevel)
	require.NoError(t, sim.SetLogLevel("info"))
}
