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

package prng

import (
	"math/rand/v2"
	"time"
)

type RandomSeed uint64

var (
	rootGenerator          *rand.Rand
	channelSeedGenerator   *rand.Rand
	conditionSeedGenerator *rand.Rand
	blockageSeedGenerator  *rand.Rand
	unitRandGenerator      *rand.Rand
)

func init() {
	Init(0)
}

// Init initializes the prng package, either with a fixed PRNG seed (rootSeed != 0) or a 'random'
// time-based PRNG seed (if rootSeed == 0).
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	rootGenerator = rand.New(rand.NewPCG(uint64(rootSeed), 0x6d6d776e73))

	channelSeedGenerator = rand.New(rand.NewPCG(rootGenerator.Uint64(), 1))
	conditionSeedGenerator = rand.New(rand.NewPCG(rootGenerator.Uint64(), 2))
	blockageSeedGenerator = rand.New(rand.NewPCG(rootGenerator.Uint64(), 3))
	unitRandGenerator = rand.New(rand.NewPCG(rootGenerator.Uint64(), 4))
}

// NewChannelSource returns an independent source for one channel engine's realizations.
func NewChannelSource() rand.Source {
	return rand.NewPCG(channelSeedGenerator.Uint64(), channelSeedGenerator.Uint64())
}

// NewConditionSource returns an independent source for a LOS-condition model.
func NewConditionSource() rand.Source {
	return rand.NewPCG(conditionSeedGenerator.Uint64(), conditionSeedGenerator.Uint64())
}

// NewBlockageSource returns an independent source for blockage decisions.
func NewBlockageSource() rand.Source {
	return rand.NewPCG(blockageSeedGenerator.Uint64(), blockageSeedGenerator.Uint64())
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func NewUnitRandom() float64 {
	return unitRandGenerator.Float64()
}
