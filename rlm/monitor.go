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

// Package rlm implements radio-link monitoring: consecutive-sample threshold evaluation of the
// serving SINR.
package rlm

import (
	"github.com/pkg/errors"
)

// Config holds the process-wide monitoring thresholds (dB) and tolerances.
type Config struct {
	RlfThresholdDb         float64 `yaml:"rlf_threshold"`
	SweepUpdateThresholdDb float64 `yaml:"sweep_update_threshold"`
	MaxRateThresholdDb     float64 `yaml:"max_rate_threshold"`
	// Tolerance is the number of consecutive samples below the sweep-update threshold
	// that trigger a sweep.
	Tolerance int `yaml:"tolerance"`
	// Interval between evaluations, us.
	Interval uint64 `yaml:"interval_us"`
	// BeamCount is the number of beam pairs kept for tracking.
	BeamCount int `yaml:"beam_count"`
	// FilterAlpha is the weight of a new sample in the SINR filter; 1 disables filtering.
	FilterAlpha float64 `yaml:"filter_alpha"`
}

func DefaultConfig() Config {
	return Config{
		RlfThresholdDb:         -5,
		SweepUpdateThresholdDb: 0,
		MaxRateThresholdDb:     20,
		Tolerance:              3,
		Interval:               1000,
		BeamCount:              4,
		FilterAlpha:            0.5,
	}
}

func (c Config) Validate() error {
	if c.RlfThresholdDb > c.SweepUpdateThresholdDb {
		return errors.Errorf("RLF threshold %v dB above sweep-update threshold %v dB", c.RlfThresholdDb, c.SweepUpdateThresholdDb)
	}
	if c.Tolerance <= 0 {
		return errors.Errorf("RLM tolerance must be positive, got %d", c.Tolerance)
	}
	if c.Interval == 0 {
		return errors.New("RLM interval must be positive")
	}
	if c.BeamCount <= 0 {
		return errors.Errorf("RLM beam count must be positive, got %d", c.BeamCount)
	}
	if c.FilterAlpha <= 0 || c.FilterAlpha > 1 {
		return errors.Errorf("RLM filter alpha must be in (0, 1], got %v", c.FilterAlpha)
	}
	return nil
}

// Verdict is the outcome of one evaluation.
type Verdict struct {
	SinrDb       float64
	SweepNeeded  bool
	Outage       bool
	AboveMaxRate bool
}

// Monitor counts consecutive samples below the sweep-update and RLF thresholds.
type Monitor struct {
	cfg        Config
	sweepCount int
	rlfCount   int
}

func NewMonitor(cfg Config) *Monitor {
	return &Monitor{cfg: cfg}
}

func (m *Monitor) Config() Config {
	return m.cfg
}

// Evaluate feeds one SINR sample. SweepNeeded is raised once, when the sweep counter reaches
// the tolerance. Outage is raised on the first sample below the RLF threshold unless a sweep
// was already triggered.
func (m *Monitor) Evaluate(sinrDb float64) Verdict {
	if sinrDb < m.cfg.SweepUpdateThresholdDb {
		m.sweepCount++
	} else {
		m.sweepCount = 0
	}
	if sinrDb < m.cfg.RlfThresholdDb {
		m.rlfCount++
	} else {
		m.rlfCount = 0
	}

	v := Verdict{SinrDb: sinrDb, AboveMaxRate: sinrDb > m.cfg.MaxRateThresholdDb}
	if m.rlfCount == 1 && m.sweepCount <= m.cfg.Tolerance {
		v.Outage = true
	} else if m.sweepCount == m.cfg.Tolerance {
		v.SweepNeeded = true
	}
	return v
}

// Reset clears both counters, e.g. after a completed sweep.
func (m *Monitor) Reset() {
	m.sweepCount = 0
	m.rlfCount = 0
}

// Counters returns the sweep-update and RLF counters.
func (m *Monitor) Counters() (sweep, rlf int) {
	return m.sweepCount, m.rlfCount
}

// Filter is an exponentially weighted moving average of SINR samples in dB.
type Filter struct {
	Alpha float64
	value float64
	valid bool
}

func (f *Filter) Update(sample float64) float64 {
	if !f.valid || f.Alpha >= 1 {
		f.value, f.valid = sample, true
		return f.value
	}
	f.value = f.Alpha*sample + (1-f.Alpha)*f.value
	return f.value
}

func (f *Filter) Value() (float64, bool) {
	return f.value, f.valid
}

func (f *Filter) Reset() {
	f.valid = false
}
