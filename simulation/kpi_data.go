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

package simulation

import . "github.com/mmwns/mmw-ns/types"

// NodeCounters maps "<role>.<Counter>" names to counter values of one node.
type NodeCounters map[string]uint64

// Add adds the counters of other to nc.
func (nc NodeCounters) Add(other NodeCounters) {
	for k, v := range other {
		nc[k] += v
	}
}

type KpiTimeUs struct {
	StartTimeUs uint64 `json:"start"`
	EndTimeUs   uint64 `json:"end"`
	PeriodUs    uint64 `json:"duration"`
}

type KpiTimeSec struct {
	StartTimeSec float64 `json:"start"`
	EndTimeSec   float64 `json:"end"`
	PeriodSec    float64 `json:"duration"`
}

type KpiChannel struct {
	Generated  uint64 `json:"generated"`
	Evolved    uint64 `json:"evolved"`
	Hits       uint64 `json:"cache_hits"`
	Suppressed uint64 `json:"suppressed"`
	Purges     uint64 `json:"purges"`
	CacheSize  int    `json:"cache_size"`
}

type KpiUe struct {
	ServingCell NodeId  `json:"serving_cell"`
	State       string  `json:"state"`
	LastSinrDb  float64 `json:"last_sinr_db"`
	// SweepSuccessPercent is the share of started sweeps that completed.
	SweepSuccessPercent float64 `json:"sweep_success_percent"`
}

type KpiCell struct {
	AttachedUes []NodeId `json:"attached_ues"`
}

type Kpi struct {
	FileTime  string                  `json:"created"`
	RunId     string                  `json:"run_id"`
	Status    string                  `json:"status"`
	TimeUs    KpiTimeUs               `json:"time_us"`
	TimeSec   KpiTimeSec              `json:"time_sec"`
	Channel   KpiChannel              `json:"channel"`
	Handovers uint64                  `json:"coordinator_handovers"`
	Ues       map[NodeId]KpiUe        `json:"ues"`
	Cells     map[NodeId]KpiCell      `json:"cells"`
	Counters  map[NodeId]NodeCounters `json:"counters"`
}
