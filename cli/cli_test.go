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

package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/progctx"
	"github.com/mmwns/mmw-ns/simulation"
)

func TestParseBytes(t *testing.T) {
	var cmd Command
	assert.NotNil(t, parseBytes([]byte("wrongcmd"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("add ue"), &cmd))
	require.NotNil(t, cmd.Add)
	assert.Equal(t, "ue", cmd.Add.Role)
	assert.Nil(t, cmd.Add.Pos)

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("add gnb pos -10 20.5 25 id 3"), &cmd))
	require.NotNil(t, cmd.Add.Pos)
	assert.Equal(t, [3]float64{-10, 20.5, 25}, cmd.Add.Pos.array(0))
	assert.Equal(t, 3, cmd.Add.Id.Val)

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("add ue id 4 walk \"walk.txt\" pos 1 2"), &cmd))
	assert.Equal(t, "walk.txt", unquote(*cmd.Add.Walk))
	assert.Equal(t, [3]float64{1, 2, 1.5}, cmd.Add.Pos.array(1.5))
	assert.NotNil(t, parseBytes([]byte("add router"), &cmd))

	assert.True(t, parseBytes([]byte("beams 5"), &cmd) == nil && cmd.Beams != nil)
	assert.NotNil(t, parseBytes([]byte("beams"), &cmd))
	assert.True(t, parseBytes([]byte("cells"), &cmd) == nil && cmd.Cells != nil)
	assert.True(t, parseBytes([]byte("channel 1 5"), &cmd) == nil && cmd.Channel != nil)
	assert.NotNil(t, parseBytes([]byte("channel 1"), &cmd))
	assert.True(t, parseBytes([]byte("exit"), &cmd) == nil && cmd.Exit != nil)

	for _, g := range []string{"go 1", "go 1.1", "go 64us", "go 10ms", "go 5h", "go ever"} {
		cmd = Command{}
		assert.Nil(t, parseBytes([]byte(g), &cmd), g)
		assert.NotNil(t, cmd.Go, g)
	}
	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("go 10ms"), &cmd))
	assert.Equal(t, "10ms", cmd.Go.Time)

	assert.True(t, parseBytes([]byte("help"), &cmd) == nil && cmd.Help != nil)
	assert.True(t, parseBytes([]byte("help sweep"), &cmd) == nil && cmd.Help.HelpTopic == "sweep")
	assert.True(t, parseBytes([]byte("kpi"), &cmd) == nil && cmd.Kpi != nil)
	assert.True(t, parseBytes([]byte("kpi save \"out.json\""), &cmd) == nil && unquote(*cmd.Kpi.Save) == "out.json")

	assert.True(t, parseBytes([]byte("log"), &cmd) == nil && cmd.LogLevel != nil)
	assert.True(t, parseBytes([]byte("log debug"), &cmd) == nil && cmd.LogLevel.Level == "debug")
	assert.NotNil(t, parseBytes([]byte("log loud"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("move 5 -3 4"), &cmd))
	assert.Equal(t, 5, cmd.Move.Target.Id)
	assert.Equal(t, [3]float64{-3, 4, 7}, cmd.Move.Pos.array(7))
	assert.NotNil(t, parseBytes([]byte("move 5 1"), &cmd))

	cmd = Command{}
	assert.Nil(t, parseBytes([]byte("omni 1"), &cmd))
	assert.Equal(t, 1, cmd.Omni.Cell.Id)
	assert.Equal(t, "", cmd.Omni.Mode)
	assert.True(t, parseBytes([]byte("omni 2 off"), &cmd) == nil && cmd.Omni.Mode == "off")
	assert.NotNil(t, parseBytes([]byte("omni 2 dim"), &cmd))

	assert.True(t, parseBytes([]byte("save \"scenario.yaml\""), &cmd) == nil && cmd.Save != nil)
	assert.True(t, parseBytes([]byte("sweep 5"), &cmd) == nil && cmd.Sweep != nil)
	assert.True(t, parseBytes([]byte("time"), &cmd) == nil && cmd.Time != nil)
	assert.True(t, parseBytes([]byte("ues"), &cmd) == nil && cmd.Ues != nil)
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "a b.yaml", unquote(`"a b.yaml"`))
	assert.Equal(t, "plain", unquote("plain"))
}

func TestParseGoDuration(t *testing.T) {
	d, err := parseGoDuration("64us")
	require.NoError(t, err)
	assert.Equal(t, 64*time.Microsecond, d)
	d, err = parseGoDuration("1.5")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)
	_, err = parseGoDuration("0")
	assert.Error(t, err)
	_, err = parseGoDuration("soon")
	assert.Error(t, err)
}

func TestHelp(t *testing.T) {
	h := newHelp()
	general := h.outputGeneralHelp()
	for _, c := range []string{"add", "beams", "cells", "channel", "exit", "go", "help", "kpi", "log", "move",
		"omni", "save", "sweep", "time", "ues"} {
		assert.Contains(t, h.commands, c)
		assert.Contains(t, general, c+" ")
	}
	assert.Contains(t, h.outputCommandHelp("go"), "Definition:")
	assert.Contains(t, h.outputCommandHelp("nope"), "Non-existent")
	assert.Equal(t, "Exit the simulation.", h.commandsShort["exit"])
}

type runnerHarness struct {
	ctx *progctx.ProgCtx
	sim *simulation.Simulation
	rt  *CmdRunner
}

func newRunnerHarness(t *testing.T) *runnerHarness {
	cfg := config.DefaultConfig()
	cfg.Seed = 7
	cfg.Channel.Condition = "l"
	cfg.Phy.RealisticIa = false
	cfg.GnbAntenna.Sectors = 4
	cfg.GnbAntenna.Elevations = []float64{90}
	cfg.UeAntenna.Sectors = 4
	cfg.UeAntenna.Elevations = []float64{90}
	cfg.Trace.Dir = ""
	cfg.Nodes = []config.NodeConfig{
		{Id: 1, Role: "gnb", Position: [3]float64{0, 0, 10}},
		{Id: 5, Role: "ue", Position: [3]float64{30, 0, 1.5}},
	}

	ctx := progctx.New(nil)
	sim, err := simulation.NewSimulation(ctx, cfg)
	require.NoError(t, err)
	sim.Start()
	ctx.Go("dispatcher-loop", sim.Run)
	h := &runnerHarness{ctx: ctx, sim: sim, rt: NewCmdRunner(ctx, sim)}
	t.Cleanup(func() {
		ctx.Cancel("test done")
		ctx.Wait()
	})
	return h
}

func (h *runnerHarness) run(t *testing.T, cmd string) string {
	var out bytes.Buffer
	require.NoError(t, h.rt.HandleCommand(cmd, &out))
	return out.String()
}

func TestCmdRunner(t *testing.T) {
	h := newRunnerHarness(t)

	assert.Equal(t, "0\nDone\n", h.run(t, "time"))
	assert.Equal(t, "Done\n", h.run(t, "go 10ms"))
	assert.Equal(t, "10000\nDone\n", h.run(t, "time"))

	ues := h.run(t, "ues")
	assert.Contains(t, ues, "id: 5")
	assert.Contains(t, ues, "state: connected")
	assert.Contains(t, ues, "serving: 1")
	assert.True(t, strings.HasSuffix(ues, "Done\n"))

	cells := h.run(t, "cells")
	assert.Contains(t, cells, "attached: [5]")

	assert.True(t, strings.HasSuffix(h.run(t, "beams 5"), "Done\n"))
	assert.Contains(t, h.run(t, "beams 9"), "Error: UE not found")
	assert.Contains(t, h.run(t, "channel 1 5"), "channel")

	assert.Equal(t, "2\nDone\n", h.run(t, "add ue pos 40 5"))
	assert.Contains(t, h.run(t, "add ue id 2"), "Error")
	assert.Equal(t, "Done\n", h.run(t, "move 2 -40 5"))
	assert.Contains(t, h.run(t, "move 77 0 0"), "Error")

	assert.Equal(t, "Done\n", h.run(t, "go 20ms"))
	assert.Contains(t, h.run(t, "sweep 1"), "Error: UE not found")

	assert.Contains(t, h.run(t, "kpi"), "run_id")
	assert.Equal(t, "Done\n", h.run(t, "log warn"))
	assert.Equal(t, "warn\nDone\n", h.run(t, "log"))
	assert.Equal(t, "Done\n", h.run(t, "log info"))

	assert.Contains(t, h.run(t, "bogus"), "Error")
	assert.Contains(t, h.run(t, "help"), "ues")
}

func TestCmdRunnerExit(t *testing.T) {
	h := newRunnerHarness(t)
	var out bytes.Buffer
	err := h.rt.HandleCommand("exit", &out)
	assert.Error(t, err)
	assert.Equal(t, "Done\n", out.String())
	assert.True(t, h.sim.IsStopping())
}
