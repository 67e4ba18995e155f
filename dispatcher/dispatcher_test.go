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

package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmwns/mmw-ns/progctx"
	. "github.com/mmwns/mmw-ns/types"
)

func TestTimersFireInOrder(t *testing.T) {
	d := NewDispatcher(nil)
	var fired []string
	d.ScheduleAfter(300, "c", func() { fired = append(fired, "c") })
	d.ScheduleAfter(100, "a", func() { fired = append(fired, "a") })
	d.ScheduleAfter(100, "b", func() { fired = append(fired, "b") })
	d.ScheduleAfter(200, "x", func() {
		fired = append(fired, "x")
		d.ScheduleAfter(0, "y", func() { fired = append(fired, "y") })
	})

	d.RunUntil(1000)
	assert.Equal(t, []string{"a", "b", "x", "y", "c"}, fired)
	assert.Equal(t, uint64(1000), d.Now())
	assert.Equal(t, uint64(5), d.Counters.TimersFired)
}

func TestTimerCancel(t *testing.T) {
	d := NewDispatcher(nil)
	fired := false
	tm := d.ScheduleAfter(50, "cancelled", func() { fired = true })
	other := d.ScheduleAfter(60, "other", func() {})
	assert.True(t, tm.IsPending())

	d.Cancel(tm)
	assert.False(t, tm.IsPending())
	d.Cancel(tm)
	assert.Equal(t, uint64(1), d.Counters.TimersCancelled)

	d.RunUntil(100)
	assert.False(t, fired)
	assert.False(t, other.IsPending())
	d.Cancel(nil)
}

func TestTimerObservesTime(t *testing.T) {
	d := NewDispatcher(nil)
	var at uint64
	d.ScheduleAfter(125, "slot", func() { at = d.Now() })
	assert.True(t, d.Step())
	assert.Equal(t, uint64(125), at)
	assert.False(t, d.Step())
	assert.Equal(t, Ever, d.NextTimestamp())
}

func TestScheduleInThePastIsClamped(t *testing.T) {
	d := NewDispatcher(nil)
	d.RunUntil(500)
	tm := d.ScheduleAt(100, "late", func() {})
	assert.Equal(t, uint64(500), tm.Timestamp)
}

func TestRunLoopGo(t *testing.T) {
	ctx := progctx.New(context.Background())
	d := NewDispatcher(ctx)
	count := 0
	var tick func()
	tick = func() {
		count++
		d.ScheduleAfter(1000, "tick", tick)
	}
	d.ScheduleAfter(1000, "tick", tick)

	go d.Run()
	<-d.Go(10 * time.Millisecond)
	done := make(chan struct{})
	d.PostAsync(false, func() { close(done) })
	<-done
	ctx.Cancel(nil)
	ctx.Wait()

	assert.Equal(t, 10, count)
	assert.Equal(t, uint64(10000), d.Now())
}
