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

package raytrace

import (
	"github.com/pkg/errors"

	. "github.com/mmwns/mmw-ns/types"
)

// Config names the trace files. LinkFiles are index-aligned with the ENB locations.
type Config struct {
	EnbFile     string   `yaml:"enb_file"`
	WalkFile    string   `yaml:"walk_file"`
	LinkFiles   []string `yaml:"link_files,omitempty"`
	RecordLines int      `yaml:"record_lines"`
	Resolution  float64  `yaml:"resolution"`
	StepMs      int      `yaml:"step_ms"`
}

// Dataset is the complete, read-only ray-tracing input of a simulation.
type Dataset struct {
	Enbs  []Vector
	Walk  []Vector
	Links []*LinkTrace
}

// Load reads all files named by cfg.
func Load(cfg Config) (*Dataset, error) {
	ds := &Dataset{}
	var err error
	if ds.Enbs, err = LoadPositionsFile(cfg.EnbFile); err != nil {
		return nil, errors.Wrap(err, "enb locations")
	}
	if ds.Walk, err = LoadPositionsFile(cfg.WalkFile); err != nil {
		return nil, errors.Wrap(err, "walk")
	}
	if len(ds.Walk) == 0 {
		return nil, errors.Errorf("walk file %s has no positions", cfg.WalkFile)
	}
	if len(cfg.LinkFiles) != len(ds.Enbs) {
		return nil, errors.Errorf("%d link files for %d ENB locations", len(cfg.LinkFiles), len(ds.Enbs))
	}
	cycle := cfg.RecordLines
	if cycle == 0 {
		cycle = RecordLines
	}
	for _, fn := range cfg.LinkFiles {
		lt, err := LoadLinkRecordsFile(fn, cycle, cfg.Resolution)
		if err != nil {
			return nil, err
		}
		ds.Links = append(ds.Links, lt)
	}
	return ds, nil
}

// TxIndexAt returns the index of the ENB location nearest to pos, or -1 if none is within tol.
func (ds *Dataset) TxIndexAt(pos Vector, tol float64) int {
	best, bestDist := -1, tol
	for i, p := range ds.Enbs {
		if d := p.DistanceTo(pos); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Lookup returns the record of transmitter txIdx for the receiver position.
func (ds *Dataset) Lookup(txIdx int, rxPos Vector) (*Record, bool) {
	if txIdx < 0 || txIdx >= len(ds.Links) {
		return nil, false
	}
	return ds.Links[txIdx].Lookup(rxPos)
}
