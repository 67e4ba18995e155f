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
	"time"

	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/progctx"
	. "github.com/mmwns/mmw-ns/types"
)

type goDuration struct {
	duration time.Duration
	done     chan struct{}
}

// Dispatcher is the single-threaded discrete-event core. All simulation state is touched from
// the goroutine that executes timers; other goroutines hand work over with PostAsync or Go.
type Dispatcher struct {
	ctx            *progctx.ProgCtx
	CurTime        uint64
	pauseTime      uint64
	timers         timerQueue
	seq            uint64
	taskChan       chan func()
	goDurationChan chan goDuration
	stopped        bool

	Counters struct {
		TimersScheduled uint64
		TimersFired     uint64
		TimersCancelled uint64
	}
}

func NewDispatcher(ctx *progctx.ProgCtx) *Dispatcher {
	d := &Dispatcher{
		ctx:            ctx,
		timers:         timerQueue{},
		taskChan:       make(chan func(), 100),
		goDurationChan: make(chan goDuration, 10),
	}
	return d
}

// Now returns the current simulated time in us.
func (d *Dispatcher) Now() uint64 {
	return d.CurTime
}

// ScheduleAfter runs fn once, delay us after the current simulated time.
func (d *Dispatcher) ScheduleAfter(delay uint64, name string, fn func()) *Timer {
	ts := d.CurTime + delay
	if ts < d.CurTime {
		ts = Ever
	}
	return d.ScheduleAt(ts, name, fn)
}

// ScheduleAt runs fn once at the absolute simulated time ts. Timestamps in the past are
// clamped to the current time.
func (d *Dispatcher) ScheduleAt(ts uint64, name string, fn func()) *Timer {
	logger.AssertNotNil(fn)
	if ts < d.CurTime {
		logger.Warnf("timer %s scheduled in the past (%d < %d)", name, ts, d.CurTime)
		ts = d.CurTime
	}
	d.seq++
	t := &Timer{
		Name:      name,
		Timestamp: ts,
		fn:        fn,
		seq:       d.seq,
	}
	d.timers.add(t)
	d.Counters.TimersScheduled++
	return t
}

// Cancel cancels a pending timer; a nil or expired timer is ignored.
func (d *Dispatcher) Cancel(t *Timer) {
	if t.IsPending() {
		t.Cancel()
		d.Counters.TimersCancelled++
	}
}

// NextTimestamp returns the time of the next pending timer, or Ever.
func (d *Dispatcher) NextTimestamp() uint64 {
	return d.timers.NextTimestamp()
}

// PendingCount returns the number of queued timers.
func (d *Dispatcher) PendingCount() int {
	return d.timers.Len()
}

// RunUntil processes all timers up to and including ts, then advances the clock to ts.
func (d *Dispatcher) RunUntil(ts uint64) {
	logger.AssertTrue(ts >= d.CurTime, "RunUntil into the past: %d < %d", ts, d.CurTime)
	d.pauseTime = ts
	for d.timers.NextTimestamp() <= ts {
		if d.ctx != nil && d.ctx.Err() != nil {
			return
		}
		d.handleTasks()
		d.processNextTimer()
	}
	d.advanceTime(ts)
}

// Step processes the timers of the next pending instant only. Returns false if none are queued.
func (d *Dispatcher) Step() bool {
	next := d.timers.NextTimestamp()
	if next == Ever {
		return false
	}
	for d.timers.NextTimestamp() == next {
		d.processNextTimer()
	}
	return true
}

func (d *Dispatcher) processNextTimer() {
	t := d.timers.popNext()
	if t == nil {
		return
	}
	d.advanceTime(t.Timestamp)
	d.Counters.TimersFired++
	logger.Tracef("timer %s fired", t.Name)
	t.fn()
}

func (d *Dispatcher) advanceTime(ts uint64) {
	logger.AssertTrue(d.CurTime <= ts, "%v > %v", d.CurTime, ts)
	d.CurTime = ts
}

// Go requests the dispatcher loop to advance simulated time by duration. The returned channel
// closes when done.
func (d *Dispatcher) Go(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	d.goDurationChan <- goDuration{
		duration: duration,
		done:     done,
	}
	return done
}

// Run is the dispatcher loop serving Go requests and posted tasks until the context ends.
func (d *Dispatcher) Run() {
	d.ctx.WaitAdd("dispatcher", 1)
	defer d.ctx.WaitDone("dispatcher")
	defer logger.Debugf("dispatcher exit.")
	defer d.Stop()

	done := d.ctx.Done()
loop:
	for {
		select {
		case f := <-d.taskChan:
			d.runTask(f)
		case gd := <-d.goDurationChan:
			target := d.CurTime + uint64(gd.duration/time.Microsecond)
			if target < d.CurTime {
				target = Ever
			}
			d.RunUntil(target)
			close(gd.done)
			if d.ctx.Err() != nil {
				break loop
			}
		case <-done:
			break loop
		}
	}
}

func (d *Dispatcher) Stop() {
	if d.stopped {
		return
	}
	d.stopped = true
	logger.Debugf("dispatcher stopped at %d us, counters %+v", d.CurTime, d.Counters)
}

// PostAsync hands a task to the dispatcher goroutine. A trivial task is dropped when the task
// channel is full.
func (d *Dispatcher) PostAsync(trivial bool, task func()) {
	if trivial {
		select {
		case d.taskChan <- task:
		default:
		}
	} else {
		d.taskChan <- task
	}
}

func (d *Dispatcher) handleTasks() {
	for {
		select {
		case t := <-d.taskChan:
			d.runTask(t)
		default:
			return
		}
	}
}

func (d *Dispatcher) runTask(t func()) {
	defer func() {
		if err := recover(); err != nil {
			logger.Errorf("dispatcher handle task failed: %+v", err)
		}
	}()
	t()
}
