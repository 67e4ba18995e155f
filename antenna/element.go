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

package antenna

import "math"

// ElementPattern returns the vertical (theta) and horizontal (phi) field components of one
// radiating element, for zenith/azimuth in degrees in the element's local coordinate system.
type ElementPattern interface {
	FieldPattern(zenith, azimuth float64) (fTheta, fPhi float64)
	Name() string
}

// IsotropicElement radiates equally in every direction with unit field.
type IsotropicElement struct{}

func (IsotropicElement) FieldPattern(zenith, azimuth float64) (float64, float64) {
	return 1, 0
}

func (IsotropicElement) Name() string {
	return "iso"
}

// ThreeGppElement is the TR 38.901 Table 7.3-1 single element pattern, vertically polarized.
type ThreeGppElement struct {
	MaxGainDb  float64
	Theta3dB   float64
	Phi3dB     float64
	SlaV       float64
	MaxAttenDb float64
}

func DefaultThreeGppElement() ThreeGppElement {
	return ThreeGppElement{
		MaxGainDb:  8,
		Theta3dB:   65,
		Phi3dB:     65,
		SlaV:       30,
		MaxAttenDb: 30,
	}
}

// GainDb returns the element directional gain in dBi.
func (e ThreeGppElement) GainDb(zenith, azimuth float64) float64 {
	az := wrap180(azimuth)
	av := -math.Min(12*math.Pow((zenith-90)/e.Theta3dB, 2), e.SlaV)
	ah := -math.Min(12*math.Pow(az/e.Phi3dB, 2), e.MaxAttenDb)
	return e.MaxGainDb - math.Min(-(av+ah), e.MaxAttenDb)
}

func (e ThreeGppElement) FieldPattern(zenith, azimuth float64) (float64, float64) {
	return math.Sqrt(math.Pow(10, e.GainDb(zenith, azimuth)/10)), 0
}

func (ThreeGppElement) Name() string {
	return "3gpp"
}

// NewElementPattern returns the named pattern; unknown names fall back to isotropic.
func NewElementPattern(name string) ElementPattern {
	if name == "3gpp" {
		return DefaultThreeGppElement()
	}
	return IsotropicElement{}
}

func wrap180(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
