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

import (
	"github.com/mmwns/mmw-ns/phy"
)

func ueCounters(u *phy.UePhy) NodeCounters {
	return NodeCounters{
		"ue.SweepsStarted":   u.Stats.SweepsStarted,
		"ue.SweepsCompleted": u.Stats.SweepsCompleted,
		"ue.SweepsIgnored":   u.Stats.SweepsIgnored,
		"ue.Outages":         u.Stats.Outages,
		"ue.Handovers":       u.Stats.Handovers,
		"ue.CsiReports":      u.Stats.CsiReports,
	}
}

func gnbCounters(g *phy.GnbPhy) NodeCounters {
	return NodeCounters{
		"gnb.SsbSent":         g.Stats.SsbSent,
		"gnb.CsiRsSent":       g.Stats.CsiRsSent,
		"gnb.ReportsReceived": g.Stats.ReportsReceived,
		"gnb.BeamAdjustments": g.Stats.BeamAdjustments,
	}
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		// nodes added during the KPI period start from zero
		ret[k] = v - startCtr[k]
	}
	return ret
}
