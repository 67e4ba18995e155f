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

package mobility

import (
	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

// Walk replays a recorded trajectory: one position per time step. After the last step the node
// stays at the final position.
type Walk struct {
	id     NodeId
	role   NodeRole
	clock  Clock
	points []Vector
	stepUs uint64
}

func NewWalk(id NodeId, role NodeRole, clock Clock, points []Vector, stepUs uint64) *Walk {
	logger.AssertTrue(len(points) > 0, "walk without positions")
	logger.AssertTrue(stepUs > 0, "walk step must be positive")
	return &Walk{id: id, role: role, clock: clock, points: points, stepUs: stepUs}
}

func (w *Walk) Id() NodeId     { return w.id }
func (w *Walk) Role() NodeRole { return w.role }

// TimeIndex returns the trajectory step for the current time.
func (w *Walk) TimeIndex() int {
	idx := int(w.clock.Now() / w.stepUs)
	if idx >= len(w.points) {
		idx = len(w.points) - 1
	}
	return idx
}

func (w *Walk) Position() Vector {
	return w.points[w.TimeIndex()]
}

// Velocity is derived from the displacement between the current and the previous step.
func (w *Walk) Velocity() Vector {
	idx := w.TimeIndex()
	if idx == 0 || int(w.clock.Now()/w.stepUs) >= len(w.points) {
		return Vector{}
	}
	d := w.points[idx].Sub(w.points[idx-1])
	return d.Scale(float64(Second) / float64(w.stepUs))
}

func (w *Walk) Len() int {
	return len(w.points)
}
