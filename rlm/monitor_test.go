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

package rlm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RlfThresholdDb = -5
	cfg.SweepUpdateThresholdDb = 0
	cfg.Tolerance = 3
	return cfg
}

func TestExactlyOneSweepForNDips(t *testing.T) {
	m := NewMonitor(testConfig())
	sweeps := 0
	for i := 0; i < 3; i++ {
		v := m.Evaluate(-2)
		assert.False(t, v.Outage)
		if v.SweepNeeded {
			sweeps++
		}
	}
	assert.Equal(t, 1, sweeps)

	// staying low does not trigger again
	for i := 0; i < 5; i++ {
		assert.False(t, m.Evaluate(-2).SweepNeeded)
	}
}

func TestRecoveryResetsCounter(t *testing.T) {
	m := NewMonitor(testConfig())
	m.Evaluate(-1)
	m.Evaluate(-1)
	m.Evaluate(3)
	sweep, rlf := m.Counters()
	assert.Equal(t, 0, sweep)
	assert.Equal(t, 0, rlf)
	assert.False(t, m.Evaluate(-1).SweepNeeded)
	assert.False(t, m.Evaluate(-1).SweepNeeded)
	assert.True(t, m.Evaluate(-1).SweepNeeded)
}

func TestImmediateOutage(t *testing.T) {
	m := NewMonitor(testConfig())
	v := m.Evaluate(-10)
	assert.True(t, v.Outage)
	assert.False(t, v.SweepNeeded)
	assert.False(t, m.Evaluate(-10).Outage)

	// below RLF only after the sweep already triggered
	m.Reset()
	m.Evaluate(-1)
	m.Evaluate(-1)
	m.Evaluate(-1)
	v = m.Evaluate(-10)
	assert.False(t, v.Outage)
	assert.False(t, v.SweepNeeded)
}

func TestAboveMaxRate(t *testing.T) {
	m := NewMonitor(testConfig())
	assert.True(t, m.Evaluate(25).AboveMaxRate)
	assert.False(t, m.Evaluate(15).AboveMaxRate)
}

func TestFilter(t *testing.T) {
	f := Filter{Alpha: 0.5}
	_, ok := f.Value()
	assert.False(t, ok)
	assert.Equal(t, 10.0, f.Update(10))
	assert.Equal(t, 5.0, f.Update(0))
	f.Reset()
	assert.Equal(t, 2.0, f.Update(2))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.RlfThresholdDb = 5
	assert.Error(t, cfg.Validate())
	cfg = DefaultConfig()
	cfg.Tolerance = 0
	assert.Error(t, cfg.Validate())
}
