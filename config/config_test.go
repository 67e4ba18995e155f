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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmwns/mmw-ns/channel"
	. "github.com/mmwns/mmw-ns/types"
)

const scenarioYaml = `
seed: 42
log_level: debug
channel:
  scenario: UMa
  condition: n
  spatial_consistency: true
phy:
  realistic_ia: false
  ssb_symbol_offsets: [4, 10]
  rlm:
    tolerance: 5
    rlf_threshold: -8
gnb_antenna:
  rows: 4
  cols: 4
  sectors: 8
  elevations: [90]
nodes:
  - id: 1
    role: gnb
    position: [0, 0, 25]
    bearing: 0
  - id: 10
    role: ue
    position: [100, 0, 1.5]
    velocity: [1, 0, 0]
`

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	p, err := cfg.ChannelParams()
	require.NoError(t, err)
	assert.Equal(t, channel.ScenarioUMi, p.Scenario)
	assert.Equal(t, channel.ModelStatistical, p.Model)
	assert.True(t, p.RealisticIa)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(scenarioYaml))
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, []int{4, 10}, cfg.Phy.SsbSymbolOffsets)
	assert.Equal(t, 5, cfg.Phy.Rlm.Tolerance)
	assert.Equal(t, -8.0, cfg.Phy.Rlm.RlfThresholdDb)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultConfig().Phy.Rlm.BeamCount, cfg.Phy.Rlm.BeamCount)
	assert.Equal(t, DefaultConfig().UeAntenna, cfg.UeAntenna)
	assert.Equal(t, 4, cfg.GnbAntenna.Rows)

	require.Len(t, cfg.Nodes, 2)
	assert.Equal(t, Vector{X: 100, Z: 1.5}, cfg.Nodes[1].PositionVector())
	assert.Equal(t, Vector{X: 1}, cfg.Nodes[1].VelocityVector())

	p, err := cfg.ChannelParams()
	require.NoError(t, err)
	assert.Equal(t, channel.ScenarioUMa, p.Scenario)
	assert.Equal(t, "n", p.ForceCondition)
	assert.True(t, p.SpatialConsistency)
	assert.False(t, p.RealisticIa)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"scenario":  "channel: {scenario: Suburban}",
		"condition": "channel: {condition: x}",
		"model":     "channel: {model: magic}",
		"raytraced": "channel: {model: raytraced}",
		"scope":     "phy: {sweep_scope: partial}",
		"level":     "log_level: loud",
		"dup-node":  "nodes: [{id: 1, role: gnb}, {id: 1, role: ue}]",
		"role":      "nodes: [{id: 1, role: router}]",
		"node-id":   "nodes: [{id: 0, role: ue}]",
		"yaml":      "phy: [",
	}
	for name, y := range cases {
		_, err := Parse([]byte(y))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYaml), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Nodes, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(scenarioYaml))
	require.NoError(t, err)
	data, err := cfg.Marshal()
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestMarshalRoundTripDefaults(t *testing.T) {
	cfg := DefaultConfig()
	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "link_files")
	assert.NotContains(t, string(data), "nodes")
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
	assert.Nil(t, again.RayTrace.LinkFiles)
	assert.Nil(t, again.Nodes)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	ov, err := ParseOverrides([]string{
		"phy.rlm.tolerance=7",
		"phy.realistic_ia = false",
		"channel.scenario=RMa",
		"ue_antenna.elevations=60,90",
		"seed=3",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.ApplyOverrides(ov))
	assert.Equal(t, 7, cfg.Phy.Rlm.Tolerance)
	assert.False(t, cfg.Phy.RealisticIa)
	assert.Equal(t, "RMa", cfg.Channel.Scenario)
	assert.Equal(t, []float64{60, 90}, cfg.UeAntenna.Elevations)
	assert.Equal(t, int64(3), cfg.Seed)
	assert.Equal(t, DefaultConfig().Phy.Rlm.BeamCount, cfg.Phy.Rlm.BeamCount)

	require.NoError(t, cfg.ApplyOverrides(map[string]interface{}{"phy.hysteresis_db": 1.5}))
	assert.Equal(t, 1.5, cfg.Phy.HysteresisDb)
}

func TestApplyOverridesRejects(t *testing.T) {
	cfg := DefaultConfig()
	before := *cfg

	assert.Error(t, cfg.ApplyOverrides(map[string]interface{}{"phy.no_such_knob": 1}))
	assert.Error(t, cfg.ApplyOverrides(map[string]interface{}{"phy.rlm.tolerance": 0}))
	assert.Error(t, cfg.ApplyOverrides(map[string]interface{}{"phy": 1, "phy.rlm.tolerance": 2}))
	assert.Equal(t, before, *cfg)

	_, err := ParseOverrides([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseOverrides([]string{"=1"})
	assert.Error(t, err)
}
