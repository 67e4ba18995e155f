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
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/mmwns/mmw-ns/types"
)

type fakeClock struct {
	now uint64
}

func (c *fakeClock) Now() uint64 {
	return c.now
}

func TestConstantVelocity(t *testing.T) {
	clk := &fakeClock{}
	m := NewConstantVelocity(2, RoleUe, clk, Vector{X: 10}, Vector{X: 1.5})
	clk.now = 2 * Second
	assert.Equal(t, Vector{X: 13}, m.Position())

	m.SetVelocity(Vector{Y: 1})
	clk.now = 3 * Second
	assert.Equal(t, Vector{X: 13, Y: 1}, m.Position())
	assert.Equal(t, RoleUe, m.Role())
}

func TestWalk(t *testing.T) {
	clk := &fakeClock{}
	pts := []Vector{{X: 0}, {X: 1}, {X: 3}}
	w := NewWalk(5, RoleUe, clk, pts, 100*Millisecond)

	assert.Equal(t, 0, w.TimeIndex())
	assert.Equal(t, Vector{}, w.Velocity())

	clk.now = 250 * Millisecond
	assert.Equal(t, 2, w.TimeIndex())
	assert.Equal(t, Vector{X: 3}, w.Position())
	assert.InDelta(t, 20.0, w.Velocity().X, 1e-9)

	clk.now = 10 * Second
	assert.Equal(t, Vector{X: 3}, w.Position())
	assert.Equal(t, Vector{}, w.Velocity())
}
