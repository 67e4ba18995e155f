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
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

type NodeCountersStore map[NodeId]NodeCounters

// KpiManager keeps the KPI summary of a simulation: counter deltas over the KPI period plus
// the link state of every UE at its end.
type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startCounters NodeCountersStore
	curCounters   NodeCountersStore
	startChannel  channel.EngineStats
	startHo       uint64
	isRunning     bool
}

func NewKpiManager() *KpiManager {
	return &KpiManager{}
}

// Init binds the KPI manager to the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok", RunId: uuid.NewString()}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.startCounters = km.retrieveNodeCounters()
	km.startChannel = km.sim.sc.Engine.Stats
	km.startHo = km.sim.net.Coordinator().Stats.HandoversTriggered
	km.data.TimeUs.StartTimeUs = km.sim.Dispatcher().Now()
	km.isRunning = true
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.isRunning = false
		km.calculateKpis()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs, recalculated first while the KPI period is running.
func (km *KpiManager) Data() *Kpi {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.calculateKpis()
	}
	return km.data
}

// SaveDefaultFile writes the KPIs to the configured file, if any.
func (km *KpiManager) SaveDefaultFile() {
	fn := km.sim.cfg.Trace.KpiFile
	if fn == "" {
		return
	}
	if err := km.SaveFile(fn); err != nil {
		logger.Errorf("%v", err)
	}
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.sim)
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		logger.Panicf("could not marshal KPI JSON data: %v", err)
	}
	if err = os.WriteFile(fn, js, 0644); err != nil {
		return errors.Wrapf(err, "write KPI file %s", fn)
	}
	return nil
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	res := NodeCountersStore{}
	for _, g := range km.sim.net.Gnbs() {
		res[g.Id] = gnbCounters(g)
	}
	for _, u := range km.sim.net.Ues() {
		res[u.Id] = ueCounters(u)
	}
	return res
}

func (km *KpiManager) calculateKpis() {
	net := km.sim.net

	km.data.TimeUs.EndTimeUs = km.sim.Dispatcher().Now()
	km.data.TimeUs.PeriodUs = km.data.TimeUs.EndTimeUs - km.data.TimeUs.StartTimeUs
	km.data.TimeSec.StartTimeSec = float64(km.data.TimeUs.StartTimeUs) / float64(Second)
	km.data.TimeSec.EndTimeSec = float64(km.data.TimeUs.EndTimeUs) / float64(Second)
	km.data.TimeSec.PeriodSec = float64(km.data.TimeUs.PeriodUs) / float64(Second)

	es := km.sim.sc.Engine.Stats
	km.data.Channel = KpiChannel{
		Generated:  es.Generated - km.startChannel.Generated,
		Evolved:    es.Evolved - km.startChannel.Evolved,
		Hits:       es.Hits - km.startChannel.Hits,
		Suppressed: es.Suppressed - km.startChannel.Suppressed,
		Purges:     es.Purges - km.startChannel.Purges,
		CacheSize:  km.sim.sc.Engine.CacheSize(),
	}
	km.data.Handovers = net.Coordinator().Stats.HandoversTriggered - km.startHo

	km.data.Counters = make(map[NodeId]NodeCounters, len(km.curCounters))
	for nid, ctr := range km.curCounters {
		km.data.Counters[nid] = getCountersDiff(ctr, km.startCounters[nid])
	}

	km.data.Ues = make(map[NodeId]KpiUe)
	for _, u := range net.Ues() {
		ctr := km.data.Counters[u.Id]
		success := 0.0
		if ctr["ue.SweepsStarted"] > 0 {
			success = 100.0 * float64(ctr["ue.SweepsCompleted"]) / float64(ctr["ue.SweepsStarted"])
		}
		km.data.Ues[u.Id] = KpiUe{
			ServingCell:         u.ServingCell(),
			State:               u.State().String(),
			LastSinrDb:          u.LastSinr(),
			SweepSuccessPercent: success,
		}
	}
	km.data.Cells = make(map[NodeId]KpiCell)
	for _, g := range net.Gnbs() {
		km.data.Cells[g.Id] = KpiCell{AttachedUes: append([]NodeId{}, g.Attached()...)}
	}
}
