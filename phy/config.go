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

package phy

import (
	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/beam"
	"github.com/mmwns/mmw-ns/rlm"
	. "github.com/mmwns/mmw-ns/types"
)

// Config holds the beam-management parameters shared by all PHYs. It is read once at
// initialization and not changed afterwards.
type Config struct {
	// Numerology is the NR mu index; 3 is 120 kHz sub-carrier spacing.
	Numerology int `yaml:"numerology"`

	// SSB bursts are sent in frames where frame % SsbPeriodFrames == SsbOffsetFrames.
	SsbPeriodFrames  int   `yaml:"ssb_period_frames"`
	SsbOffsetFrames  int   `yaml:"ssb_offset_frames"`
	SsbSymbolOffsets []int `yaml:"ssb_symbol_offsets"`

	CsiRsEnabled     bool `yaml:"csi_rs_enabled"`
	CsiRsPeriodSlots int  `yaml:"csi_rs_period_slots"`
	CsiRsOffsetSlots int  `yaml:"csi_rs_offset_slots"`
	CsiRsResources   int  `yaml:"csi_rs_resources"`
	ReportedBeams    int  `yaml:"reported_beams"`

	// RealisticIa runs sweeps over SSB bursts; otherwise a sweep completes instantly.
	RealisticIa bool `yaml:"realistic_ia"`
	// SweepScope is "full" or "reduced" (tracking sweeps restricted to the RLM beam pairs).
	SweepScope string `yaml:"sweep_scope"`
	// TrackingPeriodBursts is the number of serving SSB bursts between tracking sweeps; 0 disables them.
	TrackingPeriodBursts int `yaml:"tracking_period_bursts"`

	PostSweepDelay uint64 `yaml:"post_sweep_delay_us"`
	HandoverDelay  uint64 `yaml:"handover_delay_us"`

	GnbTxPowerDbm     float64 `yaml:"gnb_tx_power_dbm"`
	UeNoiseFigureDb   float64 `yaml:"ue_noise_figure_db"`
	BandwidthHz       float64 `yaml:"bandwidth_hz"`
	NumSubbands       int     `yaml:"num_subbands"`
	HysteresisDb      float64 `yaml:"hysteresis_db"`
	TimeToTrigger     int     `yaml:"time_to_trigger"`
	RlmEnabled        bool    `yaml:"rlm_enabled"`
	InterferenceAware bool    `yaml:"interference_aware"`

	Rlm rlm.Config `yaml:"rlm"`
}

func DefaultConfig() Config {
	return Config{
		Numerology:           3,
		SsbPeriodFrames:      2,
		SsbOffsetFrames:      0,
		SsbSymbolOffsets:     []int{2, 8},
		CsiRsEnabled:         true,
		CsiRsPeriodSlots:     40,
		CsiRsOffsetSlots:     1,
		CsiRsResources:       4,
		ReportedBeams:        2,
		RealisticIa:          true,
		SweepScope:           "full",
		TrackingPeriodBursts: 0,
		PostSweepDelay:       5 * Millisecond,
		HandoverDelay:        10 * Millisecond,
		GnbTxPowerDbm:        30,
		UeNoiseFigureDb:      9,
		BandwidthHz:          100e6,
		NumSubbands:          16,
		HysteresisDb:         3,
		TimeToTrigger:        3,
		RlmEnabled:           true,
		InterferenceAware:    true,
		Rlm:                  rlm.DefaultConfig(),
	}
}

func (c *Config) Validate() error {
	if c.Numerology < 0 || c.Numerology > 4 {
		return errors.Errorf("unsupported numerology %d", c.Numerology)
	}
	if c.SsbPeriodFrames <= 0 {
		return errors.Errorf("SSB period must be positive, got %d frames", c.SsbPeriodFrames)
	}
	if c.SsbOffsetFrames < 0 || c.SsbOffsetFrames >= c.SsbPeriodFrames {
		return errors.Errorf("SSB offset %d outside period %d", c.SsbOffsetFrames, c.SsbPeriodFrames)
	}
	if len(c.SsbSymbolOffsets) == 0 {
		return errors.New("no SSB symbol offsets")
	}
	for _, s := range c.SsbSymbolOffsets {
		if s < 0 || s >= SymbolsPerSlot {
			return errors.Errorf("SSB symbol offset %d outside slot", s)
		}
	}
	if c.CsiRsEnabled {
		if c.CsiRsPeriodSlots <= 0 {
			return errors.Errorf("CSI-RS period must be positive, got %d slots", c.CsiRsPeriodSlots)
		}
		if c.CsiRsOffsetSlots < 0 || c.CsiRsOffsetSlots >= c.CsiRsPeriodSlots {
			return errors.Errorf("CSI-RS offset %d outside period %d", c.CsiRsOffsetSlots, c.CsiRsPeriodSlots)
		}
		if c.CsiRsResources <= 0 {
			return errors.Errorf("CSI-RS resource count must be positive, got %d", c.CsiRsResources)
		}
	}
	if c.ReportedBeams <= 0 {
		return errors.Errorf("reported beam count must be positive, got %d", c.ReportedBeams)
	}
	if _, err := beam.ParseScope(c.SweepScope); err != nil {
		return err
	}
	if c.TrackingPeriodBursts < 0 {
		return errors.Errorf("negative tracking period %d", c.TrackingPeriodBursts)
	}
	if c.BandwidthHz <= 0 || c.NumSubbands <= 0 {
		return errors.Errorf("invalid bandwidth %v Hz / %d sub-bands", c.BandwidthHz, c.NumSubbands)
	}
	if c.TimeToTrigger <= 0 {
		return errors.Errorf("time-to-trigger must be positive, got %d", c.TimeToTrigger)
	}
	return errors.Wrap(c.Rlm.Validate(), "rlm")
}

// Scope returns the parsed sweep scope of tracking sweeps.
func (c *Config) Scope() beam.Scope {
	s, _ := beam.ParseScope(c.SweepScope)
	return s
}
