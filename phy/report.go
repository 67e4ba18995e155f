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

package phy

import (
	"fmt"
	"sort"

	. "github.com/mmwns/mmw-ns/types"
)

// cqiThresholdsDb are the minimum SINRs for CQI 1..15 of the 64QAM CQI table at 10% BLER.
var cqiThresholdsDb = []float64{-6.7, -4.7, -2.3, 0.2, 2.4, 4.3, 5.9, 8.1, 10.3, 11.7, 14.1, 16.3, 18.7, 21.0, 22.7}

// SinrToCqi maps a wideband SINR to a 4-bit CQI; 0 means out of range.
func SinrToCqi(sinrDb float64) int {
	return sort.Search(len(cqiThresholdsDb), func(i int) bool {
		return cqiThresholdsDb[i] > sinrDb
	})
}

// CsiReport is sent by a UE to its serving gNB after measuring CSI-RS.
type CsiReport struct {
	Timestamp uint64
	UeId      NodeId
	CellId    NodeId
	// Beams are the best measured pairs, highest SNR first.
	Beams  []BeamPair
	SinrDb float64
	Cqi    int
}

func (r CsiReport) String() string {
	return fmt.Sprintf("csi{ue=%d, cell=%d, sinr=%.1f, cqi=%d, beams=%v}", r.UeId, r.CellId, r.SinrDb, r.Cqi, r.Beams)
}

// SweepReport tells a gNB the best beam pair a UE found towards it in a completed sweep.
type SweepReport struct {
	Timestamp uint64
	UeId      NodeId
	CellId    NodeId
	Best      BeamPair
}

// ReportListener is the MAC-side consumer of CSI reports received by a gNB.
type ReportListener interface {
	OnCsiReport(r CsiReport)
}
