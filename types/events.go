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

package types

import "github.com/simonlingoogle/go-simplelogger"

// SweepOrigin tags what caused a BeamSweepTraceEvent.
type SweepOrigin int

const (
	OriginCoordinatorHandover SweepOrigin = iota
	OriginUeOutage
	OriginUeRefinement
	OriginGnbRefinement
	OriginSweepComplete
	OriginOmniCheck
	OriginBeamReport
	OriginBeamAdjustment
)

var sweepOriginNames = []string{
	"coordinator-handover", "ue-outage", "ue-refinement", "gnb-refinement",
	"sweep-complete", "omni-check", "beam-report", "beam-adjustment",
}

func (o SweepOrigin) String() string {
	if o < 0 || int(o) >= len(sweepOriginNames) {
		simplelogger.Panicf("invalid sweep origin: %d", int(o))
	}
	return sweepOriginNames[o]
}

// BeamSweepTraceEvent is emitted to trace sinks and never retained by the emitter.
type BeamSweepTraceEvent struct {
	Timestamp uint64
	Origin    SweepOrigin
	UeId      NodeId
	CellId    NodeId
	SnrDb     float64
	PrevSnrDb float64
	Beam      BeamId
}

type HandoverKind int

const (
	HandoverConnectionEstablished HandoverKind = iota
	HandoverStart
	HandoverEnd
)

func (k HandoverKind) String() string {
	switch k {
	case HandoverConnectionEstablished:
		return "connected"
	case HandoverStart:
		return "ho-start"
	case HandoverEnd:
		return "ho-end"
	default:
		simplelogger.Panicf("invalid handover kind: %d", int(k))
		return ""
	}
}

type HandoverEvent struct {
	Timestamp  uint64
	Kind       HandoverKind
	UeId       NodeId
	SourceCell NodeId
	TargetCell NodeId
}

// SinrSample is a serving-link SINR measurement as evaluated by radio link monitoring.
type SinrSample struct {
	Timestamp uint64
	UeId      NodeId
	CellId    NodeId
	SinrDb    float64
}
