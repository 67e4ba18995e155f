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

// Package trace delivers beam-sweep, handover and SINR events to one-way sinks.
package trace

import (
	. "github.com/mmwns/mmw-ns/types"
)

// Sink receives simulation events. Events are passed by value and never retained by the emitter.
type Sink interface {
	OnBeamSweep(ev BeamSweepTraceEvent)
	OnHandover(ev HandoverEvent)
	OnSinr(s SinrSample)
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) OnBeamSweep(BeamSweepTraceEvent) {}
func (NopSink) OnHandover(HandoverEvent)        {}
func (NopSink) OnSinr(SinrSample)               {}

// MultiSink fans events out to all its sinks in order.
type MultiSink []Sink

func (m MultiSink) OnBeamSweep(ev BeamSweepTraceEvent) {
	for _, s := range m {
		s.OnBeamSweep(ev)
	}
}

func (m MultiSink) OnHandover(ev HandoverEvent) {
	for _, s := range m {
		s.OnHandover(ev)
	}
}

func (m MultiSink) OnSinr(sample SinrSample) {
	for _, s := range m {
		s.OnSinr(sample)
	}
}

// RecorderSink keeps all events in memory.
type RecorderSink struct {
	Sweeps    []BeamSweepTraceEvent
	Handovers []HandoverEvent
	Sinr      []SinrSample
}

func (r *RecorderSink) OnBeamSweep(ev BeamSweepTraceEvent) {
	r.Sweeps = append(r.Sweeps, ev)
}

func (r *RecorderSink) OnHandover(ev HandoverEvent) {
	r.Handovers = append(r.Handovers, ev)
}

func (r *RecorderSink) OnSinr(s SinrSample) {
	r.Sinr = append(r.Sinr, s)
}

// SweepsWithOrigin returns the recorded sweep events of one origin.
func (r *RecorderSink) SweepsWithOrigin(o SweepOrigin) []BeamSweepTraceEvent {
	var res []BeamSweepTraceEvent
	for _, ev := range r.Sweeps {
		if ev.Origin == o {
			res = append(res, ev)
		}
	}
	return res
}

func (r *RecorderSink) Clear() {
	r.Sweeps, r.Handovers, r.Sinr = nil, nil, nil
}
