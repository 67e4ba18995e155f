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
	"fmt"

	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/mobility"
	"github.com/mmwns/mmw-ns/phy"
	"github.com/mmwns/mmw-ns/raytrace"
	. "github.com/mmwns/mmw-ns/types"
)

// Node is a simulated gNB or UE: its mobility, its antenna and the PHY that uses them.
type Node struct {
	Id     NodeId
	Role   NodeRole
	Mob    mobility.Provider
	Ant    *antenna.Array
	Gnb    *phy.GnbPhy
	Ue     *phy.UePhy
	Logger *logger.NodeLogger

	cfg  config.NodeConfig
	walk *mobility.Walk
}

func (s *Simulation) newNode(nc config.NodeConfig) (*Node, error) {
	role, err := ParseNodeRole(nc.Role)
	if err != nil {
		return nil, err
	}

	node := &Node{
		Id:     nc.Id,
		Role:   role,
		Logger: logger.GetNodeLogger(nc.Id, role),
		cfg:    nc,
	}

	switch {
	case nc.Walk != "":
		points, stepUs, err := s.walkPoints(nc.Walk)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d walk", nc.Id)
		}
		node.walk = mobility.NewWalk(nc.Id, role, s.sc.Dispatcher, points, stepUs)
		node.Mob = node.walk
	case nc.VelocityVector() != (Vector{}):
		node.Mob = mobility.NewConstantVelocity(nc.Id, role, s.sc.Dispatcher, nc.PositionVector(), nc.VelocityVector())
	default:
		node.Mob = mobility.NewConstantPosition(nc.Id, role, nc.PositionVector())
	}

	var ac antenna.Config
	switch role {
	case RoleGnb:
		ac = s.cfg.GnbAntenna
	case RoleUe:
		ac = s.cfg.UeAntenna
	default:
		// the anchor only coordinates; it has no radio of its own
		return node, nil
	}
	ac.BearingDeg += nc.Bearing
	node.Ant = antenna.NewArray(ac)
	return node, nil
}

// walkPoints resolves a walk reference. "raytrace" selects the walk of the loaded ray-trace
// data; anything else names a positions file.
func (s *Simulation) walkPoints(ref string) ([]Vector, uint64, error) {
	stepUs := uint64(s.cfg.RayTrace.StepMs) * Millisecond
	if stepUs == 0 {
		return nil, 0, errors.New("walk needs a positive raytrace.step_ms")
	}
	if ref == "raytrace" {
		if s.sc.Data == nil {
			return nil, 0, errors.New("no ray-trace data loaded")
		}
		return s.sc.Data.Walk, stepUs, nil
	}
	points, err := raytrace.LoadPositionsFile(ref)
	if err != nil {
		return nil, 0, err
	}
	if len(points) == 0 {
		return nil, 0, errors.Errorf("walk file %s has no positions", ref)
	}
	return points, stepUs, nil
}

func (node *Node) Position() Vector {
	return node.Mob.Position()
}

// WalkIndex returns the current walk step, or -1 for nodes that do not walk.
func (node *Node) WalkIndex() int {
	if node.walk == nil {
		return -1
	}
	return node.walk.TimeIndex()
}

// WalkDone reports whether a walking node reached the last step of its walk.
func (node *Node) WalkDone() bool {
	return node.walk != nil && node.walk.TimeIndex() >= node.walk.Len()-1
}

func (node *Node) setPosition(p Vector) error {
	mp, ok := node.Mob.(mobility.Positioner)
	if !ok {
		return errors.Errorf("node %d follows a walk and cannot be moved", node.Id)
	}
	mp.SetPosition(p)
	return nil
}

func (node *Node) String() string {
	return fmt.Sprintf("%s at %s", GetNodeName(node.Id, node.Role), formatVector(node.Position()))
}

// exportConfig returns the node configuration with the current position.
func (node *Node) exportConfig() config.NodeConfig {
	nc := node.cfg
	if node.walk == nil {
		p := node.Position()
		nc.Position = [3]float64{p.X, p.Y, p.Z}
	}
	return nc
}

func formatVector(v Vector) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v.X, v.Y, v.Z)
}
