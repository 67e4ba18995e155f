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

package trace

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	. "github.com/mmwns/mmw-ns/types"
)

// MetricsSink exports event counters and the latest SINR per UE as Prometheus metrics.
type MetricsSink struct {
	gatherer prometheus.Gatherer

	Sweeps    *prometheus.CounterVec
	Handovers *prometheus.CounterVec
	Sinr      *prometheus.GaugeVec
	SinrHist  prometheus.Histogram
}

// NewMetricsSink registers the metrics against reg, or the default registry when nil.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mmwns_beam_sweep_events_total",
		Help: "Beam sweep trace events, labeled by origin.",
	}, []string{"origin"})
	handovers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mmwns_handover_events_total",
		Help: "Handover events, labeled by kind.",
	}, []string{"kind"})
	sinr := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mmwns_serving_sinr_db",
		Help: "Latest serving-link SINR in dB per UE.",
	}, []string{"ue"})
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mmwns_sinr_db",
		Help:    "Distribution of serving-link SINR samples in dB.",
		Buckets: prometheus.LinearBuckets(-20, 5, 13),
	})

	for _, c := range []prometheus.Collector{sweeps, handovers, sinr, hist} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register trace metrics")
		}
	}
	return &MetricsSink{gatherer: gatherer, Sweeps: sweeps, Handovers: handovers, Sinr: sinr, SinrHist: hist}, nil
}

func (m *MetricsSink) OnBeamSweep(ev BeamSweepTraceEvent) {
	m.Sweeps.WithLabelValues(ev.Origin.String()).Inc()
}

func (m *MetricsSink) OnHandover(ev HandoverEvent) {
	m.Handovers.WithLabelValues(ev.Kind.String()).Inc()
}

func (m *MetricsSink) OnSinr(s SinrSample) {
	m.Sinr.WithLabelValues(strconv.Itoa(s.UeId)).Set(s.SinrDb)
	m.SinrHist.Observe(s.SinrDb)
}

// Handler exposes the registry the sink was registered with.
func (m *MetricsSink) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
