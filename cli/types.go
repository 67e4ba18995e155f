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

package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	. "github.com/mmwns/mmw-ns/types"
)

var CommandInterruptedError = errors.New("command interrupted due to simulation exit")

// ueItem, cellItem and beamItem are the YAML rows of the listing commands.
type ueItem struct {
	Id        NodeId  `yaml:"id"`
	Pos       string  `yaml:"pos"`
	State     string  `yaml:"state"`
	Serving   NodeId  `yaml:"serving"`
	SinrDb    float64 `yaml:"sinr_db"`
	Sweeps    uint64  `yaml:"sweeps"`
	Outages   uint64  `yaml:"outages"`
	Handovers uint64  `yaml:"handovers"`
}

type cellItem struct {
	Id       NodeId   `yaml:"id"`
	Pos      string   `yaml:"pos"`
	Attached []NodeId `yaml:"attached"`
	Ssb      uint64   `yaml:"ssb"`
	CsiRs    uint64   `yaml:"csi_rs"`
	Reports  uint64   `yaml:"reports"`
}

type beamItem struct {
	Cell  NodeId  `yaml:"cell"`
	Tx    string  `yaml:"tx"`
	Rx    string  `yaml:"rx"`
	SnrDb float64 `yaml:"snr_db"`
}

func formatPos(v Vector) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v.X, v.Y, v.Z)
}

func roundDb(db float64) float64 {
	return math.Round(db*10) / 10
}

// parseGoDuration parses a 'go' duration; a bare number is in seconds.
func parseGoDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		if d, err = time.ParseDuration(s + "s"); err != nil {
			return 0, errors.Errorf("could not parse time duration: %s", s)
		}
	}
	if d <= 0 {
		return 0, errors.Errorf("time duration must be positive: %s", s)
	}
	return d, nil
}

// unquote strips the quotes of a String token, if the lexer left them.
func unquote(s string) string {
	if uq, err := strconv.Unquote(s); err == nil {
		return uq
	}
	return s
}

// defaultHeight is the antenna height used when a position omits z.
func defaultHeight(role string) float64 {
	if role == "gnb" {
		return 10
	}
	return 1.5
}

func (p *PositionArg) array(defaultZ float64) [3]float64 {
	z := defaultZ
	if p.Z != nil {
		z = float64(*p.Z)
	}
	return [3]float64{float64(p.X), float64(p.Y), z}
}
