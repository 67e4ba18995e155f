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

package spectrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewModel(t *testing.T) {
	m := NewModel(28e9, 400e6, 4)
	assert.Equal(t, 4, m.NumBands())
	assert.InDelta(t, 27.8e9, m.Bands[0].Low, 1)
	assert.InDelta(t, 27.85e9, m.Bands[0].Center, 1)
	assert.InDelta(t, 28.2e9, m.Bands[3].High, 1)
	for _, b := range m.Bands {
		assert.InDelta(t, 100e6, b.Width(), 1e-3)
	}
}

func TestTxPsdIntegratesToPower(t *testing.T) {
	m := NewModel(28e9, 400e6, 8)
	v := CreateTxPsd(m, 30, nil)
	assert.InDelta(t, 1.0, v.Integral(), 1e-9)

	half := CreateTxPsd(m, 30, []int{0, 1, 2, 3})
	assert.InDelta(t, 1.0, half.Integral(), 1e-9)
	assert.Equal(t, 0.0, half.Psd[7])
}

func TestNoisePsd(t *testing.T) {
	m := NewModel(28e9, 1e6, 1)
	n := CreateNoisePsd(m, 0)
	assert.InDelta(t, -114.0, WToDbm(n.Integral()), 0.1)
}

func TestScaledDoesNotMutate(t *testing.T) {
	m := NewModel(28e9, 100e6, 2)
	v := CreateTxPsd(m, 0, nil)
	s := v.Scaled(2)
	assert.InDelta(t, 2*v.Psd[0], s.Psd[0], 1e-30)
	assert.InDelta(t, 3.01, AddPowersDbm(0, 0), 0.01)
	assert.Equal(t, 40.0, AddPowersDbm(40, 0))
}
