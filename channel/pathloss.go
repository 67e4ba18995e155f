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

package channel

import (
	"math"
)

const (
	minDistance2D = 10.0
	utHeightRef   = 1.5
)

// PathLossDb implements the TR 38.901 Table 7.4.1-1 path loss models, without shadow fading.
// Distances in m, carrier in Hz. O2I links add the low-loss penetration model of 7.4.3.
func PathLossDb(s Scenario, c Condition, carrierHz, d2D, d3D, hBS, hUT float64) float64 {
	fc := carrierHz / 1e9
	d2D = math.Max(d2D, 1)
	d3D = math.Max(d3D, d2D)
	var pl float64
	los := c == ConditionLos

	switch s {
	case ScenarioRMa:
		h, w := 5.0, 20.0
		d2D = math.Max(d2D, minDistance2D)
		d3D = math.Max(d3D, d2D)
		dBP := 2 * math.Pi * hBS * hUT * fc * 1e9 / speedOfLight
		pl1 := func(d float64) float64 {
			return 20*math.Log10(40*math.Pi*d*fc/3) + math.Min(0.03*math.Pow(h, 1.72), 10)*math.Log10(d) -
				math.Min(0.044*math.Pow(h, 1.72), 14.77) + 0.002*math.Log10(h)*d
		}
		if d2D <= dBP {
			pl = pl1(d3D)
		} else {
			pl = pl1(dBP) + 40*math.Log10(d3D/dBP)
		}
		if !los {
			nlos := 161.04 - 7.1*math.Log10(w) + 7.5*math.Log10(h) -
				(24.37-3.7*(h/hBS)*(h/hBS))*math.Log10(hBS) +
				(43.42-3.1*math.Log10(hBS))*(math.Log10(d3D)-3) +
				20*math.Log10(fc) - (3.2*math.Pow(math.Log10(11.75*hUT), 2) - 4.97)
			pl = math.Max(pl, nlos)
		}

	case ScenarioUMa:
		dBP := 4 * (hBS - 1) * (hUT - 1) * fc * 1e9 / speedOfLight
		if d2D <= dBP {
			pl = 28 + 22*math.Log10(d3D) + 20*math.Log10(fc)
		} else {
			pl = 28 + 40*math.Log10(d3D) + 20*math.Log10(fc) - 9*math.Log10(dBP*dBP+(hBS-hUT)*(hBS-hUT))
		}
		if !los {
			pl = math.Max(pl, 13.54+39.08*math.Log10(d3D)+20*math.Log10(fc)-0.6*(hUT-utHeightRef))
		}

	case ScenarioUMi:
		dBP := 4 * (hBS - 1) * (hUT - 1) * fc * 1e9 / speedOfLight
		if d2D <= dBP {
			pl = 32.4 + 21*math.Log10(d3D) + 20*math.Log10(fc)
		} else {
			pl = 32.4 + 40*math.Log10(d3D) + 20*math.Log10(fc) - 9.5*math.Log10(dBP*dBP+(hBS-hUT)*(hBS-hUT))
		}
		if !los {
			pl = math.Max(pl, 35.3*math.Log10(d3D)+22.4+21.3*math.Log10(fc)-0.3*(hUT-utHeightRef))
		}

	case ScenarioInHOfficeOpen, ScenarioInHOfficeMixed:
		pl = 32.4 + 17.3*math.Log10(d3D) + 20*math.Log10(fc)
		if !los {
			pl = math.Max(pl, 38.3*math.Log10(d3D)+17.3+24.9*math.Log10(fc))
		}
	}

	if c == ConditionO2i {
		pl += O2iPenetrationLossDb(fc)
	}
	return pl
}

// O2iPenetrationLossDb is the TR 38.901 Table 7.4.3-2 low-loss model with a mean indoor distance
// of 12.5 m, 30% standard glass and 70% concrete.
func O2iPenetrationLossDb(fcGHz float64) float64 {
	lGlass := 2 + 0.2*fcGHz
	lConcrete := 5 + 4*fcGHz
	plTw := 5 - 10*math.Log10(0.3*math.Pow(10, -lGlass/10)+0.7*math.Pow(10, -lConcrete/10))
	plIn := 0.5 * 12.5
	return plTw + plIn
}
