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

// Package config loads the scenario file: channel and beam-management parameters plus the
// node topology.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/channel"
	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/phy"
	"github.com/mmwns/mmw-ns/raytrace"
	. "github.com/mmwns/mmw-ns/types"
)

type ChannelConfig struct {
	Model              string  `yaml:"model"`
	Scenario           string  `yaml:"scenario"`
	CarrierHz          float64 `yaml:"carrier_hz"`
	UpdatePeriod       uint64  `yaml:"update_period_us"`
	SpatialConsistency bool    `yaml:"spatial_consistency"`
	// Condition fixes the link condition: "l", "n" or "o". Empty draws it per scenario.
	Condition          string  `yaml:"condition"`
	O2iProbability     float64 `yaml:"o2i_probability"`
	ConditionPeriod    uint64  `yaml:"condition_period_us"`
	Blockage           bool    `yaml:"blockage"`
	NumNonSelfBlocking int     `yaml:"non_self_blockers"`
	StrongestPathOnly  bool    `yaml:"strongest_path_only"`
	PedestrianBlockage bool    `yaml:"pedestrian_blockage"`
	PedestrianProb     float64 `yaml:"pedestrian_probability"`
	MaxCacheSize       int     `yaml:"max_cache_size"`
}

// NodeConfig places one node. Walk names a trace-walk file for a moving UE; when empty the node
// moves with constant Velocity.
type NodeConfig struct {
	Id       NodeId     `yaml:"id"`
	Role     string     `yaml:"role"`
	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity"`
	Bearing  float64    `yaml:"bearing"`
	Walk     string     `yaml:"walk"`
}

func (nc *NodeConfig) PositionVector() Vector {
	return Vector{X: nc.Position[0], Y: nc.Position[1], Z: nc.Position[2]}
}

func (nc *NodeConfig) VelocityVector() Vector {
	return Vector{X: nc.Velocity[0], Y: nc.Velocity[1], Z: nc.Velocity[2]}
}

type TraceConfig struct {
	// Dir receives the CSV traces; empty disables them.
	Dir string `yaml:"dir"`
	// MetricsAddr is the listen address of the Prometheus endpoint; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
	// KpiFile receives the KPI summary at exit; empty disables it.
	KpiFile string `yaml:"kpi_file"`
}

type Config struct {
	Seed     int64  `yaml:"seed"`
	LogLevel string `yaml:"log_level"`

	Channel    ChannelConfig   `yaml:"channel"`
	RayTrace   raytrace.Config `yaml:"raytrace"`
	Phy        phy.Config      `yaml:"phy"`
	GnbAntenna antenna.Config  `yaml:"gnb_antenna"`
	UeAntenna  antenna.Config  `yaml:"ue_antenna"`
	Trace      TraceConfig     `yaml:"trace"`

	Nodes []NodeConfig `yaml:"nodes,omitempty"`
}

func DefaultConfig() *Config {
	cp := channel.DefaultParams()
	return &Config{
		LogLevel: "info",
		Channel: ChannelConfig{
			Model:              cp.Model.String(),
			Scenario:           cp.Scenario.String(),
			CarrierHz:          cp.CarrierHz,
			UpdatePeriod:       cp.UpdatePeriod,
			ConditionPeriod:    cp.ConditionPeriod,
			NumNonSelfBlocking: cp.NumNonSelfBlocking,
			PedestrianProb:     cp.PedestrianProb,
			MaxCacheSize:       cp.MaxCacheSize,
		},
		RayTrace: raytrace.Config{
			RecordLines: raytrace.RecordLines,
			Resolution:  1,
			StepMs:      int(cp.RayTraceStep / Millisecond),
		},
		Phy:        phy.DefaultConfig(),
		GnbAntenna: antenna.DefaultGnbConfig(),
		UeAntenna:  antenna.DefaultUeConfig(),
		Trace: TraceConfig{
			Dir: "tmp",
		},
	}
}

// Load reads a YAML scenario file on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func parseModel(s string) (channel.ModelKind, error) {
	switch strings.ToLower(s) {
	case "statistical", "3gpp", "":
		return channel.ModelStatistical, nil
	case "raytraced", "ray-traced", "raytrace":
		return channel.ModelRayTraced, nil
	}
	return channel.ModelStatistical, errors.Errorf("unknown channel model %q", s)
}

func (c *Config) Validate() error {
	model, err := parseModel(c.Channel.Model)
	if err != nil {
		return err
	}
	if _, err := channel.ParseScenario(c.Channel.Scenario); err != nil {
		return err
	}
	switch c.Channel.Condition {
	case "", "l", "n", "o":
	default:
		return errors.Errorf("unknown channel condition %q", c.Channel.Condition)
	}
	if c.Channel.CarrierHz <= 0 {
		return errors.Errorf("invalid carrier frequency %v", c.Channel.CarrierHz)
	}
	if c.Channel.O2iProbability < 0 || c.Channel.O2iProbability > 1 {
		return errors.Errorf("O2I probability %v outside [0, 1]", c.Channel.O2iProbability)
	}
	if model == channel.ModelRayTraced {
		if c.RayTrace.EnbFile == "" || c.RayTrace.WalkFile == "" || len(c.RayTrace.LinkFiles) == 0 {
			return errors.New("ray-traced channel model needs enb, walk and link files")
		}
		if c.RayTrace.StepMs <= 0 {
			return errors.Errorf("ray-trace step must be positive, got %d ms", c.RayTrace.StepMs)
		}
	}
	if err := c.Phy.Validate(); err != nil {
		return errors.Wrap(err, "phy")
	}
	for _, ac := range []antenna.Config{c.GnbAntenna, c.UeAntenna} {
		if ac.Rows <= 0 || ac.Cols <= 0 || ac.Sectors <= 0 || len(ac.Elevations) == 0 {
			return errors.Errorf("invalid antenna %dx%d with %d sectors and %d elevations",
				ac.Rows, ac.Cols, ac.Sectors, len(ac.Elevations))
		}
	}
	if _, err := logger.ParseLevelString(c.LogLevel); err != nil {
		return err
	}

	ids := map[NodeId]bool{}
	for _, n := range c.Nodes {
		if n.Id <= InvalidNodeId {
			return errors.Errorf("invalid node id %d", n.Id)
		}
		if ids[n.Id] {
			return errors.Errorf("duplicate node id %d", n.Id)
		}
		ids[n.Id] = true
		if _, err := ParseNodeRole(n.Role); err != nil {
			return errors.Wrapf(err, "node %d", n.Id)
		}
	}
	return nil
}

// ChannelParams converts the channel section to engine parameters. RealisticIa follows the PHY
// setting so that channel suppression and SSB sweeps agree.
func (c *Config) ChannelParams() (*channel.Params, error) {
	p := channel.DefaultParams()
	var err error
	if p.Model, err = parseModel(c.Channel.Model); err != nil {
		return nil, err
	}
	if p.Scenario, err = channel.ParseScenario(c.Channel.Scenario); err != nil {
		return nil, err
	}
	p.CarrierHz = c.Channel.CarrierHz
	p.UpdatePeriod = c.Channel.UpdatePeriod
	p.RealisticIa = c.Phy.RealisticIa
	p.SpatialConsistency = c.Channel.SpatialConsistency
	p.ForceCondition = c.Channel.Condition
	p.O2iProbability = c.Channel.O2iProbability
	p.ConditionPeriod = c.Channel.ConditionPeriod
	p.Blockage = c.Channel.Blockage
	p.NumNonSelfBlocking = c.Channel.NumNonSelfBlocking
	p.StrongestPathOnly = c.Channel.StrongestPathOnly
	p.PedestrianBlockage = c.Channel.PedestrianBlockage
	p.PedestrianProb = c.Channel.PedestrianProb
	p.MaxCacheSize = c.Channel.MaxCacheSize
	if c.RayTrace.StepMs > 0 {
		p.RayTraceStep = uint64(c.RayTrace.StepMs) * Millisecond
	}
	return p, nil
}
