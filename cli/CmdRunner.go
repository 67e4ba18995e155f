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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/progctx"
	"github.com/mmwns/mmw-ns/simulation"
	. "github.com/mmwns/mmw-ns/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

// outputItemsAsYaml writes one flow-style YAML line per item.
func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes CLI commands against a simulation whose dispatcher loop runs on another
// goroutine. All simulation access is posted to that loop.
type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// HandleCommand parses and executes one command line. It returns the program context error,
// which ends the CLI once the simulation exits.
func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}
		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()
		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	switch {
	case cmd.Add != nil:
		rt.executeAddNode(cc, cmd.Add)
	case cmd.Beams != nil:
		rt.executeBeams(cc, cmd.Beams)
	case cmd.Cells != nil:
		rt.executeLsCells(cc)
	case cmd.Channel != nil:
		rt.executeChannel(cc, cmd.Channel)
	case cmd.Exit != nil:
		rt.executeExit(cc)
	case cmd.Go != nil:
		rt.executeGo(cc, cmd.Go)
	case cmd.Help != nil:
		rt.executeHelp(cc, cmd.Help)
	case cmd.Kpi != nil:
		rt.executeKpi(cc, cmd.Kpi)
	case cmd.LogLevel != nil:
		rt.executeLogLevel(cc, cmd.LogLevel)
	case cmd.Move != nil:
		rt.executeMoveNode(cc, cmd.Move)
	case cmd.Omni != nil:
		rt.executeOmni(cc, cmd.Omni)
	case cmd.Save != nil:
		rt.executeSave(cc, cmd.Save)
	case cmd.Sweep != nil:
		rt.executeSweep(cc, cmd.Sweep)
	case cmd.Time != nil:
		rt.executeTime(cc)
	case cmd.Ues != nil:
		rt.executeLsUes(cc)
	default:
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// postAsyncWait runs f on the dispatcher loop and waits for it to finish.
func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulation.Simulation)) {
	done := make(chan struct{})
	rt.sim.PostAsync(false, func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f(rt.sim)
	})
	select {
	case <-done:
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
	}
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	if cmd.Ever != nil {
		for rt.ctx.Err() == nil {
			if !rt.waitGo(cc, time.Hour) {
				return
			}
		}
		return
	}

	dur, err := parseGoDuration(cmd.Time)
	if err != nil {
		cc.error(err)
		return
	}
	rt.waitGo(cc, dur)
}

func (rt *CmdRunner) waitGo(cc *CommandContext, dur time.Duration) bool {
	done := rt.sim.Go(dur)
	select {
	case <-done:
		return true
	case <-rt.ctx.Done():
		cc.error(CommandInterruptedError)
		return false
	}
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	nc := config.NodeConfig{Role: cmd.Role}
	if cmd.Id != nil {
		nc.Id = cmd.Id.Val
	}
	if cmd.Pos != nil {
		nc.Position = cmd.Pos.array(defaultHeight(cmd.Role))
	} else {
		nc.Position[2] = defaultHeight(cmd.Role)
	}
	if cmd.Walk != nil {
		nc.Walk = unquote(*cmd.Walk)
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node, err := sim.AddNode(nc)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%d\n", node.Id)
	})
}

func (rt *CmdRunner) executeMoveNode(cc *CommandContext, cmd *MoveCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := sim.GetNode(cmd.Target.Id)
		if node == nil {
			cc.errorf("node not found: %d", cmd.Target.Id)
			return
		}
		pos := cmd.Pos.array(node.Position().Z)
		cc.error(sim.MoveNode(cmd.Target.Id, Vector{X: pos[0], Y: pos[1], Z: pos[2]}))
	})
}

func (rt *CmdRunner) executeLsUes(cc *CommandContext) {
	var items []ueItem
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, u := range sim.Network().Ues() {
			items = append(items, ueItem{
				Id:        u.Id,
				Pos:       formatPos(u.Mobility().Position()),
				State:     u.State().String(),
				Serving:   u.ServingCell(),
				SinrDb:    roundDb(u.LastSinr()),
				Sweeps:    u.Stats.SweepsCompleted,
				Outages:   u.Stats.Outages,
				Handovers: u.Stats.Handovers,
			})
		}
	})
	if len(items) > 0 {
		cc.outputItemsAsYaml(items)
	}
}

func (rt *CmdRunner) executeLsCells(cc *CommandContext) {
	var items []cellItem
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, g := range sim.Network().Gnbs() {
			items = append(items, cellItem{
				Id:       g.Id,
				Pos:      formatPos(g.Mobility().Position()),
				Attached: append([]NodeId{}, g.Attached()...),
				Ssb:      g.Stats.SsbSent,
				CsiRs:    g.Stats.CsiRsSent,
				Reports:  g.Stats.ReportsReceived,
			})
		}
	})
	if len(items) > 0 {
		cc.outputItemsAsYaml(items)
	}
}

func (rt *CmdRunner) executeBeams(cc *CommandContext, cmd *BeamsCmd) {
	var items []beamItem
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		u := sim.Network().Ue(cmd.Ue.Id)
		if u == nil {
			cc.errorf("UE not found: %d", cmd.Ue.Id)
			return
		}
		for _, bp := range u.RlmBeams() {
			items = append(items, beamItem{
				Cell:  u.ServingCell(),
				Tx:    bp.Tx.String(),
				Rx:    bp.Rx.String(),
				SnrDb: roundDb(bp.SnrDb),
			})
		}
	})
	if len(items) > 0 {
		cc.outputItemsAsYaml(items)
	}
}

func (rt *CmdRunner) executeChannel(cc *CommandContext, cmd *ChannelCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		info, err := sim.ChannelInfo(cmd.A.Id, cmd.B.Id)
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%s\n", info)
	})
}

func (rt *CmdRunner) executeSweep(cc *CommandContext, cmd *SweepCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.StartSweep(cmd.Ue.Id))
	})
}

func (rt *CmdRunner) executeOmni(cc *CommandContext, cmd *OmniCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.SetOmniTx(cmd.Cell.Id, cmd.Mode != "off"))
	})
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Save != nil {
			cc.error(sim.KpiManager().SaveFile(unquote(*cmd.Save)))
			return
		}
		data, err := json.MarshalIndent(sim.KpiManager().Data(), "", "  ")
		if err != nil {
			cc.error(err)
			return
		}
		cc.outputf("%s\n", data)
	})
}

func (rt *CmdRunner) executeSave(cc *CommandContext, cmd *SaveCmd) {
	var cfg *config.Config
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cfg = sim.ExportConfig()
	})
	if cc.Err() != nil {
		return
	}
	data, err := cfg.Marshal()
	if err != nil {
		cc.error(err)
		return
	}
	fn := unquote(cmd.File)
	if err = os.WriteFile(fn, data, 0644); err != nil {
		cc.error(errors.Wrapf(err, "save %s", fn))
	}
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(logger.GetLevel()))
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.SetLogLevel(cmd.Level))
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext) {
	var dispTime uint64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		dispTime = sim.Dispatcher().Now()
	})
	cc.outputf("%d\n", dispTime)
}

// executeExit stops the simulation, which also ends the program context.
func (rt *CmdRunner) executeExit(cc *CommandContext) {
	rt.sim.PostAsync(false, rt.sim.Stop)
	<-rt.ctx.Done()
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
