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

// Package mmwns_main parses the command line and runs a scenario, either for a fixed duration
// or behind the interactive console.
package mmwns_main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/cli"
	"github.com/mmwns/mmw-ns/config"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/progctx"
	"github.com/mmwns/mmw-ns/simulation"
	. "github.com/mmwns/mmw-ns/types"
)

// batchStep bounds how long a batch run advances before it checks for cancellation.
const batchStep = 100 * Millisecond

type MainArgs struct {
	ConfigFile  string
	Duration    string
	Overrides   overrideList
	Seed        int64
	LogLevel    string
	LogFile     string
	MetricsAddr string
	TraceDir    string
	Interactive bool
	AutoGo      bool
	HistoryFile string
}

// overrideList collects repeated -set flags.
type overrideList []string

func (o *overrideList) String() string {
	return strings.Join(*o, ",")
}

func (o *overrideList) Set(v string) error {
	*o = append(*o, v)
	return nil
}

var (
	args MainArgs
)

func parseArgs(fs *flag.FlagSet, argv []string) (map[string]bool, error) {
	fs.StringVar(&args.ConfigFile, "config", "", "scenario YAML file; defaults are used when empty")
	fs.StringVar(&args.Duration, "duration", "1s", "simulated duration of a batch run, e.g. 500ms or 10s")
	fs.Var(&args.Overrides, "set", "override a configuration key, e.g. -set channel.condition=l (repeatable)")
	fs.Int64Var(&args.Seed, "seed", 0, "random seed of the run")
	fs.StringVar(&args.LogLevel, "log", "info", "set logging level: trace, debug, info, warn, error.")
	fs.StringVar(&args.LogFile, "logfile", "", "also write the log to this file")
	fs.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. localhost:9100")
	fs.StringVar(&args.TraceDir, "trace-dir", "", "directory receiving the CSV traces")
	fs.BoolVar(&args.Interactive, "interactive", false, "run the interactive console instead of a batch run")
	fs.BoolVar(&args.AutoGo, "autogo", false, "in interactive mode, keep advancing time without 'go' commands")
	fs.StringVar(&args.HistoryFile, "history", "", "console history file")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set, nil
}

// loadConfig builds the run configuration: the scenario file, then -set overrides, then the
// dedicated flags that were given explicitly.
func loadConfig(set map[string]bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if args.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(args.ConfigFile); err != nil {
			return nil, err
		}
	}

	overrides, err := config.ParseOverrides(args.Overrides)
	if err != nil {
		return nil, err
	}
	if err = cfg.ApplyOverrides(overrides); err != nil {
		return nil, err
	}

	if set["seed"] {
		cfg.Seed = args.Seed
	}
	if set["log"] {
		cfg.LogLevel = args.LogLevel
	}
	if set["metrics"] {
		cfg.Trace.MetricsAddr = args.MetricsAddr
	}
	if set["trace-dir"] {
		cfg.Trace.Dir = args.TraceDir
	}
	return cfg, cfg.Validate()
}

func Main(ctx *progctx.ProgCtx, cliOptions *cli.CliOptions) {
	set, err := parseArgs(flag.CommandLine, os.Args[1:])
	logger.FatalIfError(err)

	if args.LogFile != "" {
		logger.FatalIfError(logger.SetOutput([]string{"stderr", args.LogFile}), "log file")
	}
	cfg, err := loadConfig(set)
	logger.FatalIfError(err, "configuration")

	handleSignals(ctx)

	sim, err := simulation.NewSimulation(ctx, cfg)
	logger.FatalIfError(err)
	sim.Start()

	if !args.Interactive {
		dur, err := time.ParseDuration(args.Duration)
		logger.FatalIfError(err, "duration")
		runBatch(ctx, sim, uint64(dur/time.Microsecond))
		ctx.Wait()
		return
	}

	// the console runs in the main goroutine
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})
	go sim.Run()
	if args.AutoGo {
		go autoGo(ctx, sim)
	}
	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
	}
	if args.HistoryFile != "" {
		cliOptions.HistoryFile = args.HistoryFile
	}
	cli.Run(ctx, sim, cliOptions)

	logger.Debugf("waiting for the simulation to stop gracefully ...")
	ctx.Wait()
}

// runBatch advances the simulation on the calling goroutine until duration (us) has passed or
// the program context ends, then stops it.
func runBatch(ctx *progctx.ProgCtx, sim *simulation.Simulation, duration uint64) {
	start := time.Now()
	for remaining := duration; remaining > 0 && ctx.Err() == nil; {
		step := remaining
		if step > batchStep {
			step = batchStep
		}
		sim.RunFor(step)
		remaining -= step
	}
	simTime := sim.Dispatcher().Now()
	sim.Stop()
	logger.Infof("simulated %s in %v", formatSimTime(simTime), time.Since(start).Round(time.Millisecond))
}

func formatSimTime(us uint64) string {
	return fmt.Sprintf("%.3fs", float64(us)/float64(Second))
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")
		defer signal.Stop(c)

		select {
		case sig := <-c:
			logger.Infof("signal received: %v", sig)
			ctx.Cancel(errors.Errorf("signal %v", sig))
		case <-ctx.Done():
		}
	}()
}

func autoGo(ctx *progctx.ProgCtx, sim *simulation.Simulation) {
	for ctx.Err() == nil {
		select {
		case <-sim.Go(time.Second):
		case <-ctx.Done():
			return
		}
	}
}
