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

package types

import "math"

// Vector is a position (m) or a velocity (m/s) in the simulation's Cartesian frame.
type Vector struct {
	X, Y, Z float64
}

func (v Vector) Add(o Vector) Vector {
	return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{v.X * f, v.Y * f, v.Z * f}
}

func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// DistanceTo returns the 3D distance between two points.
func (v Vector) DistanceTo(o Vector) float64 {
	return o.Sub(v).Norm()
}

// Distance2DTo returns the horizontal distance between two points.
func (v Vector) Distance2DTo(o Vector) float64 {
	dx := o.X - v.X
	dy := o.Y - v.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Angles returns azimuth and zenith (degrees) of the direction from v towards o.
// Zenith is 0 straight up and 90 in the horizontal plane.
func (v Vector) Angles(o Vector) (azimuth, zenith float64) {
	d := o.Sub(v)
	r := d.Norm()
	if r == 0 {
		return 0, 90
	}
	azimuth = math.Atan2(d.Y, d.X) * 180 / math.Pi
	zenith = math.Acos(math.Max(-1, math.Min(1, d.Z/r))) * 180 / math.Pi
	return
}

// UnitFromAngles returns the unit direction vector for azimuth/zenith given in degrees.
func UnitFromAngles(azimuth, zenith float64) Vector {
	phi := azimuth * math.Pi / 180
	theta := zenith * math.Pi / 180
	return Vector{
		X: math.Sin(theta) * math.Cos(phi),
		Y: math.Sin(theta) * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// WrapAzimuth wraps an angle in degrees into [-180, 180).
func WrapAzimuth(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}

// WrapZenith folds an angle in degrees into [0, 180].
func WrapZenith(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}
