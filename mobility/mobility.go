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

// Package mobility provides node position/velocity handles used by the channel engine.
package mobility

import (
	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

// Provider is the read-only view of a node's identity and motion.
type Provider interface {
	Id() NodeId
	Role() NodeRole
	Position() Vector
	Velocity() Vector
}

// Clock supplies the simulated time for time-dependent models.
type Clock interface {
	Now() uint64
}

// ConstantPosition is a node that never moves unless repositioned explicitly.
type ConstantPosition struct {
	id   NodeId
	role NodeRole
	pos  Vector
}

func NewConstantPosition(id NodeId, role NodeRole, pos Vector) *ConstantPosition {
	return &ConstantPosition{id: id, role: role, pos: pos}
}

func (m *ConstantPosition) Id() NodeId        { return m.id }
func (m *ConstantPosition) Role() NodeRole    { return m.role }
func (m *ConstantPosition) Position() Vector  { return m.pos }
func (m *ConstantPosition) Velocity() Vector  { return Vector{} }
func (m *ConstantPosition) SetPosition(p Vector) { m.pos = p }

// ConstantVelocity moves on a straight line from the position it had at its reference time.
type ConstantVelocity struct {
	id    NodeId
	role  NodeRole
	clock Clock
	start Vector
	vel   Vector
	refUs uint64
}

func NewConstantVelocity(id NodeId, role NodeRole, clock Clock, start, vel Vector) *ConstantVelocity {
	logger.AssertNotNil(clock)
	return &ConstantVelocity{id: id, role: role, clock: clock, start: start, vel: vel, refUs: clock.Now()}
}

func (m *ConstantVelocity) Id() NodeId     { return m.id }
func (m *ConstantVelocity) Role() NodeRole { return m.role }

func (m *ConstantVelocity) Position() Vector {
	dt := float64(m.clock.Now()-m.refUs) / float64(Second)
	return m.start.Add(m.vel.Scale(dt))
}

func (m *ConstantVelocity) Velocity() Vector {
	return m.vel
}

// SetPosition re-anchors the trajectory at the current time.
func (m *ConstantVelocity) SetPosition(p Vector) {
	m.start = p
	m.refUs = m.clock.Now()
}

func (m *ConstantVelocity) SetVelocity(v Vector) {
	m.start = m.Position()
	m.refUs = m.clock.Now()
	m.vel = v
}

// Positioner is implemented by providers that can be moved from the CLI.
type Positioner interface {
	SetPosition(p Vector)
}
