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

// Package phy implements the gNB and UE beam-management state machines on top of an NR slot
// clock.
package phy

import (
	"fmt"

	"github.com/mmwns/mmw-ns/dispatcher"
	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

const (
	SymbolsPerSlot    = 14
	SubframesPerFrame = 10
	SubframeDuration  = 1 * Millisecond
)

// Numerology describes the NR frame structure for one sub-carrier spacing.
type Numerology struct {
	Mu               int
	ScsKHz           int
	SlotsPerSubframe int
}

func NewNumerology(mu int) Numerology {
	logger.AssertTrue(mu >= 0 && mu <= 4, "invalid numerology %d", mu)
	return Numerology{Mu: mu, ScsKHz: 15 << mu, SlotsPerSubframe: 1 << mu}
}

func (n Numerology) SlotsPerFrame() int {
	return n.SlotsPerSubframe * SubframesPerFrame
}

// SlotDuration is the slot length in us.
func (n Numerology) SlotDuration() uint64 {
	return SubframeDuration / uint64(n.SlotsPerSubframe)
}

// SfnSf is the (frame, subframe, slot) position of a slot.
type SfnSf struct {
	Frame    uint32
	Subframe int
	Slot     int
}

func (s SfnSf) String() string {
	return fmt.Sprintf("%d/%d/%d", s.Frame, s.Subframe, s.Slot)
}

// Next returns the slot that follows s.
func (s SfnSf) Next(n Numerology) SfnSf {
	s.Slot++
	if s.Slot == n.SlotsPerSubframe {
		s.Slot = 0
		s.Subframe++
		if s.Subframe == SubframesPerFrame {
			s.Subframe = 0
			s.Frame++
		}
	}
	return s
}

// SlotInFrame is the slot index counted from the start of the frame.
func (s SfnSf) SlotInFrame(n Numerology) int {
	return s.Subframe*n.SlotsPerSubframe + s.Slot
}

// Normalized is the absolute slot index since frame 0.
func (s SfnSf) Normalized(n Numerology) uint64 {
	return uint64(s.Frame)*uint64(n.SlotsPerFrame()) + uint64(s.SlotInFrame(n))
}

// SlotListener is driven by the SlotClock at the boundaries of every slot.
type SlotListener interface {
	StartSlot(s SfnSf)
	EndSlot(s SfnSf)
}

// SlotClock ticks slots on the dispatcher. The end of a slot and the start of the next one run
// in the same timer event.
type SlotClock struct {
	d         *dispatcher.Dispatcher
	num       Numerology
	listeners []SlotListener
	cur       SfnSf
	started   bool
	timer     *dispatcher.Timer
}

func NewSlotClock(d *dispatcher.Dispatcher, num Numerology) *SlotClock {
	return &SlotClock{d: d, num: num}
}

func (c *SlotClock) Numerology() Numerology {
	return c.num
}

// AddListener registers l; listeners are called in registration order.
func (c *SlotClock) AddListener(l SlotListener) {
	c.listeners = append(c.listeners, l)
}

// Current returns the slot in progress.
func (c *SlotClock) Current() SfnSf {
	return c.cur
}

// Start begins ticking at the current dispatcher time with slot 0/0/0.
func (c *SlotClock) Start() {
	if c.timer.IsPending() {
		logger.Warnf("slot clock already running")
		return
	}
	c.started = false
	c.cur = SfnSf{}
	c.timer = c.d.ScheduleAfter(0, "slot", c.tick)
}

func (c *SlotClock) Stop() {
	c.d.Cancel(c.timer)
}

func (c *SlotClock) tick() {
	if c.started {
		for _, l := range c.listeners {
			l.EndSlot(c.cur)
		}
		c.cur = c.cur.Next(c.num)
	}
	c.started = true
	for _, l := range c.listeners {
		l.StartSlot(c.cur)
	}
	c.timer = c.d.ScheduleAfter(c.num.SlotDuration(), "slot", c.tick)
}
