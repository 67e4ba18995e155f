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
	"context"
	"errors"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/dispatcher"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/prng"
	"github.com/mmwns/mmw-ns/progctx"
	"github.com/mmwns/mmw-ns/raytrace"
	"github.com/mmwns/mmw-ns/trace"
	. "github.com/mmwns/mmw-ns/types"
)

// Context is the process-wide state shared by the channel engine and the PHYs of one run: the
// event dispatcher, the ray-trace data, the trace sinks and the last walk index seen per node.
// It is created by Init and released by Close.
type Context struct {
	Dispatcher *dispatcher.Dispatcher
	Data       *raytrace.Dataset
	Engine     *channel.Engine
	Prop       *channel.Propagation
	Sink       trace.Sink
	Metrics    *trace.MetricsSink

	csv        *trace.CsvSink
	server     *http.Server
	traceIndex map[NodeId]int
	closed     bool
}

// Init seeds the random sources and builds the shared state for cfg. Extra sinks receive all
// events next to the configured CSV and metrics sinks.
func Init(ctx *progctx.ProgCtx, cfg *config.Config, extra ...trace.Sink) (*Context, error) {
	level, err := logger.ParseLevelString(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	logger.ResetNodeLoggers()
	prng.Init(cfg.Seed)

	params, err := cfg.ChannelParams()
	if err != nil {
		return nil, err
	}

	sc := &Context{
		Dispatcher: dispatcher.NewDispatcher(ctx),
		traceIndex: map[NodeId]int{},
	}
	logger.SetSimTimeSource(sc.Dispatcher.Now)

	if params.Model == channel.ModelRayTraced {
		if sc.Data, err = raytrace.Load(cfg.RayTrace); err != nil {
			return nil, pkgerrors.Wrap(err, "load ray-trace data")
		}
		logger.Infof("ray-trace data: %d ENB locations, %d walk steps", len(sc.Data.Enbs), len(sc.Data.Walk))
	}
	if sc.Engine, err = channel.NewEngine(params, sc.Dispatcher, sc.Data); err != nil {
		return nil, err
	}
	sc.Prop = channel.NewPropagation(sc.Engine, cfg.Phy.UeNoiseFigureDb)

	if err = sc.initSinks(ctx, cfg.Trace, extra); err != nil {
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

func (sc *Context) initSinks(ctx *progctx.ProgCtx, tc config.TraceConfig, extra []trace.Sink) error {
	var sinks trace.MultiSink
	if tc.Dir != "" {
		csv, err := trace.NewCsvSink(tc.Dir)
		if err != nil {
			return err
		}
		sc.csv = csv
		sinks = append(sinks, csv)
	}

	reg := prometheus.NewRegistry()
	metrics, err := trace.NewMetricsSink(reg)
	if err != nil {
		return err
	}
	sc.Metrics = metrics
	sinks = append(sinks, metrics)
	if tc.MetricsAddr != "" {
		sc.serveMetrics(ctx, tc.MetricsAddr)
	}

	sinks = append(sinks, extra...)
	sc.Sink = sinks
	return nil
}

func (sc *Context) serveMetrics(ctx *progctx.ProgCtx, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", sc.Metrics.Handler())
	sc.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serve := func() {
		logger.Infof("metrics endpoint listening on %s/metrics", addr)
		if err := sc.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics endpoint: %v", err)
		}
	}
	if ctx != nil {
		ctx.Go("metrics", serve)
	} else {
		go serve()
	}
}

// ObserveTraceIndex records the walk index of a node and reports whether it advanced since
// the last observation.
func (sc *Context) ObserveTraceIndex(id NodeId, idx int) bool {
	last, ok := sc.traceIndex[id]
	sc.traceIndex[id] = idx
	return !ok || last != idx
}

// LastTraceIndex returns the last observed walk index of a node, or -1.
func (sc *Context) LastTraceIndex(id NodeId) int {
	if idx, ok := sc.traceIndex[id]; ok {
		return idx
	}
	return -1
}

// Close flushes the trace files and stops the metrics endpoint. It is safe to call twice.
func (sc *Context) Close() error {
	if sc.closed {
		return nil
	}
	sc.closed = true
	logger.SetSimTimeSource(nil)

	var err error
	if sc.csv != nil {
		err = sc.csv.Close()
	}
	if sc.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if serr := sc.server.Shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}
