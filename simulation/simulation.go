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

// Package simulation builds a beam-management scenario from its configuration and runs it.
package simulation

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/dispatcher"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/phy"
	"github.com/mmwns/mmw-ns/progctx"
	"github.com/mmwns/mmw-ns/trace"
	. "github.com/mmwns/mmw-ns/types"
)

type Simulation struct {
	ctx       *progctx.ProgCtx
	cfg       *config.Config
	sc        *Context
	net       *phy.Network
	nodes     map[NodeId]*Node
	kpiMgr    *KpiManager
	walkTimer *dispatcher.Timer
	started   bool
	stopped   bool
}

// NewSimulation creates the shared context, the PHY network and all configured nodes. ctx may
// be nil when the simulation is driven synchronously through RunFor.
func NewSimulation(ctx *progctx.ProgCtx, cfg *config.Config, sinks ...trace.Sink) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc, err := Init(ctx, cfg, sinks...)
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		ctx:    ctx,
		cfg:    cfg,
		sc:     sc,
		net:    phy.NewNetwork(&cfg.Phy, sc.Dispatcher, sc.Prop, sc.Sink),
		nodes:  map[NodeId]*Node{},
		kpiMgr: NewKpiManager(),
	}
	for _, nc := range cfg.Nodes {
		if _, err := s.AddNode(nc); err != nil {
			_ = sc.Close()
			return nil, err
		}
	}
	s.kpiMgr.Init(s)
	return s, nil
}

// AddNode creates a node and registers its PHY. A zero id picks the lowest free one. Nodes
// added after Start begin operating immediately.
func (s *Simulation) AddNode(nc config.NodeConfig) (*Node, error) {
	if nc.Id == InvalidNodeId {
		nc.Id = s.genNodeId()
	}
	if s.nodes[nc.Id] != nil {
		return nil, errors.Errorf("node %d already exists", nc.Id)
	}
	node, err := s.newNode(nc)
	if err != nil {
		return nil, err
	}

	switch node.Role {
	case RoleGnb:
		node.Gnb = s.net.AddGnb(node.Mob, node.Ant)
	case RoleUe:
		node.Ue = s.net.AddUe(node.Mob, node.Ant)
		if s.started {
			node.Ue.Start()
		}
	}
	s.nodes[nc.Id] = node
	node.Logger.Debugf("added: %s", node)
	if s.started && node.walk != nil && !s.walkTimer.IsPending() {
		s.watchWalks()
	}
	return node, nil
}

func (s *Simulation) genNodeId() NodeId {
	nodeid := 1
	for s.nodes[nodeid] != nil {
		nodeid += 1
	}
	return nodeid
}

// Start starts the slot clock, the UEs' initial access and the KPI period.
func (s *Simulation) Start() {
	if s.started {
		logger.Warnf("simulation already started")
		return
	}
	s.started = true
	s.kpiMgr.Start()
	s.net.Start()
	s.watchWalks()
	logger.Infof("simulation started: %d cells, %d UEs", len(s.net.Gnbs()), len(s.net.Ues()))
}

// watchWalks follows the walk step of every walking node and logs when it advances.
func (s *Simulation) watchWalks() {
	step := uint64(s.cfg.RayTrace.StepMs) * Millisecond
	if step == 0 {
		return
	}
	active := false
	s.VisitNodesInOrder(func(node *Node) {
		if node.walk == nil {
			return
		}
		idx := node.WalkIndex()
		if s.sc.ObserveTraceIndex(node.Id, idx) {
			node.Logger.Debugf("walk step %d at %s", idx, formatVector(node.Position()))
			if node.WalkDone() {
				node.Logger.Infof("walk finished after %d steps", idx+1)
			}
		}
		if !node.WalkDone() {
			active = true
		}
	})
	if active {
		s.walkTimer = s.sc.Dispatcher.ScheduleAfter(step, "walk", s.watchWalks)
	}
}

// Stop ends the KPI period, stops all PHYs and releases the shared context.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	logger.Infof("stopping simulation ...")
	s.stopped = true
	s.kpiMgr.Stop()
	s.kpiMgr.SaveDefaultFile()
	s.sc.Dispatcher.Cancel(s.walkTimer)
	s.net.Stop()
	s.sc.Dispatcher.Stop()
	if err := s.sc.Close(); err != nil {
		logger.Errorf("closing traces: %v", err)
	}
	if s.ctx != nil {
		s.ctx.Cancel("simulation-stop")
	}
}

func (s *Simulation) IsStopping() bool {
	return s.stopped || (s.ctx != nil && s.ctx.Err() != nil)
}

// RunFor advances simulated time by duration (us) on the calling goroutine.
func (s *Simulation) RunFor(duration uint64) {
	logger.AssertFalse(s.stopped, "simulation stopped")
	target := s.sc.Dispatcher.Now() + duration
	if target < s.sc.Dispatcher.Now() {
		target = Ever
	}
	s.sc.Dispatcher.RunUntil(target)
}

// Run serves the dispatcher loop until the program context ends. Use Go and PostAsync from
// other goroutines meanwhile.
func (s *Simulation) Run() {
	defer logger.Debugf("simulation exit.")
	defer s.Stop()
	s.sc.Dispatcher.Run()
}

// Go asks the running dispatcher loop to advance by duration.
func (s *Simulation) Go(duration time.Duration) <-chan struct{} {
	return s.sc.Dispatcher.Go(duration)
}

func (s *Simulation) PostAsync(trivial bool, f func()) {
	s.sc.Dispatcher.PostAsync(trivial, f)
}

func (s *Simulation) Dispatcher() *dispatcher.Dispatcher {
	return s.sc.Dispatcher
}

func (s *Simulation) Context() *Context {
	return s.sc
}

func (s *Simulation) Network() *phy.Network {
	return s.net
}

func (s *Simulation) Config() *config.Config {
	return s.cfg
}

func (s *Simulation) KpiManager() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) Nodes() map[NodeId]*Node {
	return s.nodes
}

func (s *Simulation) GetNode(id NodeId) *Node {
	return s.nodes[id]
}

// GetNodes returns a sorted array of NodeIds.
func (s *Simulation) GetNodes() []NodeId {
	keys := make([]NodeId, 0, len(s.nodes))
	for key := range s.nodes {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func (s *Simulation) VisitNodesInOrder(cb func(node *Node)) {
	for _, id := range s.GetNodes() {
		cb(s.nodes[id])
	}
}

// MoveNode repositions a node. Its channel realizations are dropped because the move is not a
// continuous motion the spatial-consistency update could follow.
func (s *Simulation) MoveNode(id NodeId, pos Vector) error {
	node := s.nodes[id]
	if node == nil {
		return errors.Errorf("node not found: %d", id)
	}
	if err := node.setPosition(pos); err != nil {
		return err
	}
	s.sc.Engine.ForgetNode(id)
	for peer := range s.nodes {
		s.sc.Prop.Gain.Forget(id, peer)
	}
	node.Logger.Infof("moved to %s", formatVector(pos))
	return nil
}

// StartSweep starts a UE-initiated beam sweep, as radio link monitoring would on a dip.
func (s *Simulation) StartSweep(id NodeId) error {
	ue := s.net.Ue(id)
	if ue == nil {
		return errors.Errorf("UE not found: %d", id)
	}
	if !s.started {
		return errors.New("simulation not started")
	}
	if !ue.StartSweep(OriginUeRefinement) {
		return errors.Errorf("UE %d cannot sweep in state %v", id, ue.State())
	}
	return nil
}

// SetOmniTx switches a cell between beamformed and omni transmission.
func (s *Simulation) SetOmniTx(id NodeId, on bool) error {
	g := s.net.Gnb(id)
	if g == nil {
		return errors.Errorf("gNB not found: %d", id)
	}
	g.SetOmniTx(on)
	return nil
}

// ChannelInfo describes the cached channel realization between two nodes.
func (s *Simulation) ChannelInfo(a, b NodeId) (string, error) {
	if s.nodes[a] == nil || s.nodes[b] == nil {
		return "", errors.Errorf("unknown node pair %d-%d", a, b)
	}
	m, ok := s.sc.Engine.Cached(a, b)
	if !ok {
		return "", errors.Errorf("no channel realization between %d and %d", a, b)
	}
	return m.String(), nil
}

func (s *Simulation) SetLogLevel(level string) error {
	lv, err := logger.ParseLevelString(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lv)
	s.cfg.LogLevel = level
	return nil
}

// ExportConfig returns the configuration with the current node positions, suitable for
// writing back as a scenario file.
func (s *Simulation) ExportConfig() *config.Config {
	cfg := *s.cfg
	cfg.Nodes = make([]config.NodeConfig, 0, len(s.nodes))
	s.VisitNodesInOrder(func(node *Node) {
		cfg.Nodes = append(cfg.Nodes, node.exportConfig())
	})
	return &cfg
}
