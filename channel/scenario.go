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
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/mmwns/mmw-ns/logger"
)

// Scenario is a TR 38.901 deployment scenario.
type Scenario int

const (
	ScenarioRMa Scenario = iota
	ScenarioUMa
	ScenarioUMi
	ScenarioInHOfficeOpen
	ScenarioInHOfficeMixed
)

var scenarioNames = []string{"RMa", "UMa", "UMi-StreetCanyon", "InH-OfficeOpen", "InH-OfficeMixed"}

func (s Scenario) String() string {
	if s < 0 || int(s) >= len(scenarioNames) {
		logger.Panicf("invalid scenario: %d", int(s))
	}
	return scenarioNames[s]
}

// IsIndoor is true for the InH scenarios, where O2I does not apply.
func (s Scenario) IsIndoor() bool {
	return s == ScenarioInHOfficeOpen || s == ScenarioInHOfficeMixed
}

// ParseScenario accepts the scenario names case-insensitively. Unknown names are an error.
func ParseScenario(name string) (Scenario, error) {
	for i, n := range scenarioNames {
		if strings.EqualFold(n, name) {
			return Scenario(i), nil
		}
	}
	if strings.EqualFold(name, "UMi") {
		return ScenarioUMi, nil
	}
	return 0, errors.Errorf("unknown channel scenario %q (valid: %s)", name, strings.Join(scenarioNames, ", "))
}

// Condition is the propagation condition of a link.
type Condition int8

const (
	ConditionNlos Condition = iota
	ConditionLos
	ConditionO2i
)

func (c Condition) String() string {
	switch c {
	case ConditionLos:
		return "LOS"
	case ConditionNlos:
		return "NLOS"
	case ConditionO2i:
		return "O2I"
	default:
		logger.Panicf("undefined channel condition: %d", int(c))
		return ""
	}
}

// ParseConditionCode decodes the one-letter condition code l, n or o. Any other value is a
// malformed tri-state and aborts.
func ParseConditionCode(code string) Condition {
	switch strings.ToLower(code) {
	case "l", "los":
		return ConditionLos
	case "n", "nlos":
		return ConditionNlos
	case "o", "o2i":
		return ConditionO2i
	default:
		logger.Panicf("undefined channel condition code %q", code)
		return ConditionNlos
	}
}

// lspIndex positions in the correlated large-scale parameter vector.
const (
	lspSF = iota
	lspK
	lspDS
	lspASD
	lspASA
	lspZSD
	lspZSA
	numLsp
)

// xcorr lists the TR 38.901 Table 7.5-6 cross-correlations of one scenario/condition.
type xcorr struct {
	asdDs, asaDs, asaSf, asdSf, dsSf, asdAsa float64
	asdK, asaK, dsK, sfK                     float64
	zsdSf, zsaSf, zsdK, zsaK                 float64
	zsdDs, zsaDs, zsdAsd, zsaAsd             float64
	zsdAsa, zsaAsa, zsdZsa                   float64
}

func (x xcorr) symmetric() *mat.SymDense {
	c := mat.NewSymDense(numLsp, nil)
	for i := 0; i < numLsp; i++ {
		c.SetSym(i, i, 1)
	}
	set := func(i, j int, v float64) { c.SetSym(i, j, v) }
	set(lspASD, lspDS, x.asdDs)
	set(lspASA, lspDS, x.asaDs)
	set(lspASA, lspSF, x.asaSf)
	set(lspASD, lspSF, x.asdSf)
	set(lspDS, lspSF, x.dsSf)
	set(lspASD, lspASA, x.asdAsa)
	set(lspASD, lspK, x.asdK)
	set(lspASA, lspK, x.asaK)
	set(lspDS, lspK, x.dsK)
	set(lspSF, lspK, x.sfK)
	set(lspZSD, lspSF, x.zsdSf)
	set(lspZSA, lspSF, x.zsaSf)
	set(lspZSD, lspK, x.zsdK)
	set(lspZSA, lspK, x.zsaK)
	set(lspZSD, lspDS, x.zsdDs)
	set(lspZSA, lspDS, x.zsaDs)
	set(lspZSD, lspASD, x.zsdAsd)
	set(lspZSA, lspASD, x.zsaAsd)
	set(lspZSD, lspASA, x.zsdAsa)
	set(lspZSA, lspASA, x.zsaAsa)
	set(lspZSD, lspZSA, x.zsdZsa)
	return c
}

// sqrtCorrelation returns the lower Cholesky factor of the correlation matrix. Some tabulated
// matrices are only positive semi-definite; those get a small diagonal loading.
func sqrtCorrelation(c *mat.SymDense) *mat.TriDense {
	var chol mat.Cholesky
	n, _ := c.Dims()
	loaded := mat.NewSymDense(n, nil)
	loaded.CopySym(c)
	for eps := 1e-6; ; eps *= 10 {
		if chol.Factorize(loaded) {
			break
		}
		logger.AssertTrue(eps < 1, "correlation matrix cannot be factorized")
		for i := 0; i < n; i++ {
			loaded.SetSym(i, i, 1+eps)
		}
	}
	var l mat.TriDense
	chol.LTo(&l)
	return &l
}

// lspParams is the parameter set of one (scenario, condition) evaluated for one link geometry.
// Spreads are log10 of ns / degrees; K and SF in dB.
type lspParams struct {
	uLgDS, sigLgDS   float64
	uLgASD, sigLgASD float64
	uLgASA, sigLgASA float64
	uLgZSA, sigLgZSA float64
	uLgZSD, sigLgZSD float64
	offsetZOD        float64
	uK, sigK         float64
	sigSF            float64
	rTau             float64
	uXpr, sigXpr     float64
	numClusters      int
	raysPerCluster   int
	cDS              float64
	cASD             float64
	cASA             float64
	cZSA             float64
	clusterShadowing float64
	sqrtC            *mat.TriDense
}

type tableKey struct {
	s Scenario
	c Condition
}

var (
	sqrtCache     = map[tableKey]*mat.TriDense{}
	sqrtCacheLock sync.Mutex
)

func cachedSqrt(k tableKey, x xcorr) *mat.TriDense {
	sqrtCacheLock.Lock()
	defer sqrtCacheLock.Unlock()
	if l, ok := sqrtCache[k]; ok {
		return l
	}
	l := sqrtCorrelation(x.symmetric())
	sqrtCache[k] = l
	return l
}

// o2iParams are shared by UMa and UMi outdoor-to-indoor links.
func o2iParams(p *lspParams) {
	p.uLgDS, p.sigLgDS = -6.62, 0.32
	p.uLgASD, p.sigLgASD = 1.25, 0.42
	p.uLgASA, p.sigLgASA = 1.76, 0.16
	p.uLgZSA, p.sigLgZSA = 1.01, 0.43
	p.sigSF = 7
	p.rTau = 2.2
	p.uXpr, p.sigXpr = 9, 5
	p.numClusters, p.raysPerCluster = 12, 20
	p.cDS, p.cASD, p.cASA, p.cZSA = 11, 5, 8, 3
	p.clusterShadowing = 4
}

var o2iXcorr = xcorr{asdDs: 0.4, asaDs: 0.4, asaSf: 0.2, asdSf: 0.2, dsSf: -0.5, asdAsa: 0,
	zsdDs: -0.6, zsaDs: -0.2, zsdAsd: -0.2, zsaAsa: 0.5, zsdZsa: 0.5}

// tableFor evaluates TR 38.901 Table 7.5-6/7/8/9/10/11 for one link.
func tableFor(s Scenario, c Condition, fcGHz, d2D, hUT, hBS float64) *lspParams {
	p := &lspParams{}
	var x xcorr
	if s.IsIndoor() && c == ConditionO2i {
		c = ConditionNlos
	}

	switch s {
	case ScenarioUMi:
		fc := math.Max(fcGHz, 2)
		lf := math.Log10(1 + fc)
		switch c {
		case ConditionLos:
			p.uLgDS, p.sigLgDS = -0.24*lf-7.14, 0.38
			p.uLgASD, p.sigLgASD = -0.05*lf+1.21, 0.41
			p.uLgASA, p.sigLgASA = -0.08*lf+1.73, 0.014*lf+0.28
			p.uLgZSA, p.sigLgZSA = -0.1*lf+0.73, -0.04*lf+0.34
			p.uLgZSD = math.Max(-0.21, -14.8*d2D/1000+0.01*math.Abs(hUT-hBS)+0.83)
			p.sigLgZSD = 0.35
			p.uK, p.sigK = 9, 5
			p.sigSF = 4
			p.rTau = 3
			p.uXpr, p.sigXpr = 9, 3
			p.numClusters, p.raysPerCluster = 12, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 5, 3, 17, 7
			p.clusterShadowing = 3
			x = xcorr{asdDs: 0.5, asaDs: 0.8, asaSf: -0.4, asdSf: -0.5, dsSf: -0.4, asdAsa: 0.4,
				asdK: -0.2, asaK: -0.3, dsK: -0.7, sfK: 0.5,
				zsaDs: 0.2, zsdAsd: 0.5, zsaAsd: 0.3}
		case ConditionNlos, ConditionO2i:
			p.uLgDS, p.sigLgDS = -0.24*lf-6.83, 0.16*lf+0.28
			p.uLgASD, p.sigLgASD = -0.23*lf+1.53, 0.11*lf+0.33
			p.uLgASA, p.sigLgASA = -0.08*lf+1.81, 0.05*lf+0.3
			p.uLgZSA, p.sigLgZSA = -0.04*lf+0.92, -0.07*lf+0.41
			p.uLgZSD = math.Max(-0.5, -3.1*d2D/1000+0.01*math.Max(hUT-hBS, 0)+0.2)
			p.sigLgZSD = 0.35
			p.offsetZOD = -math.Pow(10, -1.5*math.Log10(math.Max(10, d2D))+3.3)
			p.sigSF = 7.82
			p.rTau = 2.1
			p.uXpr, p.sigXpr = 8, 3
			p.numClusters, p.raysPerCluster = 19, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 11, 10, 22, 7
			p.clusterShadowing = 3
			x = xcorr{asaDs: 0.4, asaSf: -0.4, dsSf: -0.7,
				zsdDs: -0.5, zsdAsd: 0.5, zsaAsd: 0.5, zsaAsa: 0.2}
			if c == ConditionO2i {
				o2iParams(p)
				x = o2iXcorr
			}
		}

	case ScenarioUMa:
		fc := math.Max(fcGHz, 6)
		lf := math.Log10(fc)
		switch c {
		case ConditionLos:
			p.uLgDS, p.sigLgDS = -6.955-0.0963*lf, 0.66
			p.uLgASD, p.sigLgASD = 1.06+0.1114*lf, 0.28
			p.uLgASA, p.sigLgASA = 1.81, 0.20
			p.uLgZSA, p.sigLgZSA = 0.95, 0.16
			p.uLgZSD = math.Max(-0.5, -2.1*d2D/1000-0.01*(hUT-1.5)+0.75)
			p.sigLgZSD = 0.40
			p.uK, p.sigK = 9, 3.5
			p.sigSF = 4
			p.rTau = 2.5
			p.uXpr, p.sigXpr = 8, 4
			p.numClusters, p.raysPerCluster = 12, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = math.Max(0.25, 6.5622-3.4084*lf), 5, 11, 7
			p.clusterShadowing = 3
			x = xcorr{asdDs: 0.4, asaDs: 0.8, asaSf: -0.5, asdSf: -0.5, dsSf: -0.4,
				asaK: -0.2, dsK: -0.4,
				zsaSf: -0.8, zsdDs: -0.2, zsdAsd: 0.5, zsdAsa: -0.3, zsaAsa: 0.4}
		case ConditionNlos, ConditionO2i:
			p.uLgDS, p.sigLgDS = -6.28-0.204*lf, 0.39
			p.uLgASD, p.sigLgASD = 1.5-0.1144*lf, 0.28
			p.uLgASA, p.sigLgASA = 2.08-0.27*lf, 0.11
			p.uLgZSA, p.sigLgZSA = -0.3236*lf+1.512, 0.16
			p.uLgZSD = math.Max(-0.5, -2.1*d2D/1000-0.01*(hUT-1.5)+0.9)
			p.sigLgZSD = 0.49
			a := 0.208*lf - 0.782
			b := 25.0
			cc := -0.13*lf + 2.03
			e := 7.66*lf - 5.96
			p.offsetZOD = e - math.Pow(10, a*math.Log10(math.Max(b, d2D))+cc-0.07*(hUT-1.5))
			p.sigSF = 6
			p.rTau = 2.3
			p.uXpr, p.sigXpr = 7, 3
			p.numClusters, p.raysPerCluster = 20, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = math.Max(0.25, 6.5622-3.4084*lf), 2, 15, 7
			p.clusterShadowing = 3
			x = xcorr{asdDs: 0.4, asaDs: 0.6, asdSf: -0.6, dsSf: -0.4, asdAsa: 0.4,
				zsaSf: -0.4, zsdDs: -0.5, zsdAsd: 0.5, zsaAsd: -0.1}
			if c == ConditionO2i {
				o2iParams(p)
				x = o2iXcorr
			}
		}

	case ScenarioRMa:
		switch c {
		case ConditionLos:
			p.uLgDS, p.sigLgDS = -7.49, 0.55
			p.uLgASD, p.sigLgASD = 0.90, 0.38
			p.uLgASA, p.sigLgASA = 1.52, 0.24
			p.uLgZSA, p.sigLgZSA = 0.47, 0.40
			p.uLgZSD = math.Max(-1, -0.17*d2D/1000-0.01*(hUT-1.5)+0.22)
			p.sigLgZSD = 0.34
			p.uK, p.sigK = 7, 4
			p.sigSF = 4
			p.rTau = 3.8
			p.uXpr, p.sigXpr = 12, 4
			p.numClusters, p.raysPerCluster = 11, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 0, 2, 3, 3
			p.clusterShadowing = 3
			x = xcorr{dsSf: -0.5, zsdSf: 0.01, zsaSf: -0.17, zsaK: -0.02, zsdDs: -0.05, zsaDs: 0.27,
				zsdAsd: 0.73, zsaAsd: -0.14, zsdAsa: -0.20, zsaAsa: 0.24, zsdZsa: -0.07}
		case ConditionNlos:
			p.uLgDS, p.sigLgDS = -7.43, 0.48
			p.uLgASD, p.sigLgASD = 0.95, 0.45
			p.uLgASA, p.sigLgASA = 1.52, 0.13
			p.uLgZSA, p.sigLgZSA = 0.58, 0.37
			p.uLgZSD = math.Max(-1, -0.19*d2D/1000-0.01*(hUT-1.5)+0.28)
			p.sigLgZSD = 0.30
			p.offsetZOD = rmaZodOffset(d2D)
			p.sigSF = 8
			p.rTau = 1.7
			p.uXpr, p.sigXpr = 7, 3
			p.numClusters, p.raysPerCluster = 10, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 0, 2, 3, 3
			p.clusterShadowing = 3
			x = xcorr{asdDs: -0.4, asdSf: 0.6, dsSf: -0.5,
				zsdSf: -0.04, zsaSf: -0.25, zsdDs: -0.10, zsaDs: -0.40, zsdAsd: 0.42, zsaAsd: -0.27,
				zsdAsa: -0.18, zsaAsa: 0.26, zsdZsa: -0.27}
		case ConditionO2i:
			p.uLgDS, p.sigLgDS = -7.47, 0.24
			p.uLgASD, p.sigLgASD = 0.67, 0.18
			p.uLgASA, p.sigLgASA = 1.66, 0.21
			p.uLgZSA, p.sigLgZSA = 0.93, 0.22
			p.uLgZSD = math.Max(-1, -0.19*d2D/1000-0.01*(hUT-1.5)+0.28)
			p.sigLgZSD = 0.30
			p.offsetZOD = rmaZodOffset(d2D)
			p.sigSF = 8
			p.rTau = 1.7
			p.uXpr, p.sigXpr = 7, 3
			p.numClusters, p.raysPerCluster = 10, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 0, 2, 3, 3
			p.clusterShadowing = 3
			x = xcorr{asdAsa: -0.7, zsdAsd: 0.66, zsaAsd: 0.47, zsdAsa: -0.55, zsaAsa: -0.22}
		}

	case ScenarioInHOfficeOpen, ScenarioInHOfficeMixed:
		fc := math.Max(fcGHz, 6)
		lf := math.Log10(1 + fc)
		switch c {
		case ConditionLos:
			p.uLgDS, p.sigLgDS = -0.01*lf-7.692, 0.18
			p.uLgASD, p.sigLgASD = 1.60, 0.18
			p.uLgASA, p.sigLgASA = -0.19*lf+1.781, 0.12*lf+0.119
			p.uLgZSA, p.sigLgZSA = -0.26*lf+1.44, -0.04*lf+0.264
			p.uLgZSD, p.sigLgZSD = -1.43*lf+2.228, 0.13*lf+0.30
			p.uK, p.sigK = 7, 4
			p.sigSF = 3
			p.rTau = 3.6
			p.uXpr, p.sigXpr = 11, 4
			p.numClusters, p.raysPerCluster = 15, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 0, 5, 8, 9
			p.clusterShadowing = 6
			x = xcorr{asdDs: 0.6, asaDs: 0.8, asaSf: -0.5, asdSf: -0.4, dsSf: -0.8, asdAsa: 0.4,
				dsK: -0.5, sfK: 0.5,
				zsdSf: 0.2, zsaSf: 0.3, zsaK: 0.1, zsdDs: 0.1, zsaDs: 0.2, zsdAsd: 0.5, zsaAsa: 0.5}
		default:
			p.uLgDS, p.sigLgDS = -0.28*lf-7.173, 0.1*lf+0.055
			p.uLgASD, p.sigLgASD = 1.62, 0.25
			p.uLgASA, p.sigLgASA = -0.11*lf+1.863, 0.12*lf+0.059
			p.uLgZSA, p.sigLgZSA = -0.15*lf+1.387, -0.09*lf+0.746
			p.uLgZSD, p.sigLgZSD = 1.08, 0.36
			p.sigSF = 8.03
			p.rTau = 3
			p.uXpr, p.sigXpr = 10, 4
			p.numClusters, p.raysPerCluster = 19, 20
			p.cDS, p.cASD, p.cASA, p.cZSA = 0, 5, 11, 9
			p.clusterShadowing = 3
			x = xcorr{asdDs: 0.4, asaSf: -0.4, dsSf: -0.5,
				zsdDs: -0.27, zsaDs: -0.06, zsdAsd: 0.35, zsaAsd: 0.23, zsdAsa: -0.08, zsaAsa: 0.43, zsdZsa: 0.42}
		}

	default:
		logger.Panicf("invalid scenario: %d", int(s))
	}

	p.sqrtC = cachedSqrt(tableKey{s, c}, x)
	return p
}

func rmaZodOffset(d2D float64) float64 {
	d := math.Max(d2D, 1)
	return (math.Atan((35-3.5)/d) - math.Atan((35-1.5)/d)) * 180 / math.Pi
}

// TR 38.901 Table 7.5-2 and 7.5-4 scaling factors, indexed by cluster count.
var (
	cPhiNlos = map[int]float64{4: 0.779, 5: 0.860, 8: 1.018, 10: 1.090, 11: 1.123, 12: 1.146,
		14: 1.190, 15: 1.211, 16: 1.226, 19: 1.273, 20: 1.289, 25: 1.358}
	cThetaNlos = map[int]float64{8: 0.889, 10: 0.957, 11: 1.031, 12: 1.104, 15: 1.1088,
		19: 1.184, 20: 1.178, 25: 1.282}
)

// Table 7.5-3 ray offset angles within a cluster, for 1 degree rms angle spread.
var rayOffsets = []float64{0.0447, -0.0447, 0.1413, -0.1413, 0.2492, -0.2492, 0.3715, -0.3715,
	0.5129, -0.5129, 0.6797, -0.6797, 0.8844, -0.8844, 1.1481, -1.1481, 1.5195, -1.5195, 2.1551, -2.1551}

func scalingPhi(n int, los bool, kDb float64) float64 {
	c, ok := cPhiNlos[n]
	logger.AssertTrue(ok, "no azimuth scaling factor for %d clusters", n)
	if los {
		c *= 1.1035 - 0.028*kDb - 0.002*kDb*kDb + 0.0001*kDb*kDb*kDb
	}
	return c
}

func scalingTheta(n int, los bool, kDb float64) float64 {
	c, ok := cThetaNlos[n]
	logger.AssertTrue(ok, "no zenith scaling factor for %d clusters", n)
	if los {
		c *= 1.3086 + 0.0339*kDb - 0.0077*kDb*kDb + 0.0002*kDb*kDb*kDb
	}
	return c
}

// delayScalingLos is the TR 38.901 eq. 7.5-3 LOS delay scaling.
func delayScalingLos(kDb float64) float64 {
	return 0.7705 - 0.0433*kDb + 0.0002*kDb*kDb + 0.000017*kDb*kDb*kDb
}
