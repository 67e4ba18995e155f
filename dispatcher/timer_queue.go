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
	"container/heap"

	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

// Timer is the handle of a scheduled callback. A cancelled or fired timer is no longer pending.
type Timer struct {
	Name      string
	Timestamp uint64

	fn    func()
	seq   uint64
	index int
	q     *timerQueue
}

// Cancel removes the timer from its queue. Cancelling a timer that already fired, or was
// cancelled before, has no effect.
func (t *Timer) Cancel() {
	if t == nil || t.index < 0 {
		return
	}
	heap.Remove(t.q, t.index)
	t.index = -1
}

// IsPending returns true while the timer is still queued.
func (t *Timer) IsPending() bool {
	return t != nil && t.index >= 0
}

// timerQueue orders timers by timestamp; timers for the same instant fire in the order they
// were scheduled.
type timerQueue []*Timer

func (tq timerQueue) Len() int {
	return len(tq)
}

func (tq timerQueue) Less(i, j int) bool {
	if tq[i].Timestamp != tq[j].Timestamp {
		return tq[i].Timestamp < tq[j].Timestamp
	}
	return tq[i].seq < tq[j].seq
}

func (tq timerQueue) Swap(i, j int) {
	a, b := tq[i], tq[j]
	if a.index != i || b.index != j {
		logger.Panicf("wrong index")
	}

	tq[i], tq[j] = b, a
	tq[i].index, tq[j].index = i, j
}

func (tq *timerQueue) Push(x interface{}) {
	t := x.(*Timer)
	*tq = append(*tq, t)
	t.index = len(*tq) - 1
}

func (tq *timerQueue) Pop() (elem interface{}) {
	n := len(*tq)
	t := (*tq)[n-1]
	(*tq)[n-1] = nil
	*tq = (*tq)[:n-1]
	t.index = -1
	return t
}

func (tq *timerQueue) add(t *Timer) {
	t.q = tq
	heap.Push(tq, t)
}

func (tq *timerQueue) NextTimestamp() uint64 {
	if len(*tq) == 0 {
		return Ever
	}
	return (*tq)[0].Timestamp
}

func (tq *timerQueue) popNext() *Timer {
	if len(*tq) == 0 {
		return nil
	}
	return heap.Pop(tq).(*Timer)
}
