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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mmwns/mmw-ns/antenna"
	"github.com/mmwns/mmw-ns/mobility"
	"github.com/mmwns/mmw-ns/prng"
	"github.com/mmwns/mmw-ns/raytrace"
	. "github.com/mmwns/mmw-ns/types"
)

type testClock struct {
	now uint64
}

func (c *testClock) Now() uint64 {
	return c.now
}

type testSweeps map[NodeId]bool

func (s testSweeps) IsSweeping(ue NodeId) bool {
	return s[ue]
}

type testLink struct {
	clock  *testClock
	gnb    *mobility.ConstantPosition
	ue     *mobility.ConstantPosition
	gnbAnt *antenna.Array
	ueAnt  *antenna.Array
}

func newTestLink() *testLink {
	return &testLink{
		clock:  &testClock{},
		gnb:    mobility.NewConstantPosition(1, RoleGnb, Vector{Z: 10}),
		ue:     mobility.NewConstantPosition(2, RoleUe, Vector{X: 100, Z: 1.5}),
		gnbAnt: antenna.NewArray(antenna.DefaultGnbConfig()),
		ueAnt:  antenna.NewArray(antenna.DefaultUeConfig()),
	}
}

func (l *testLink) engine(t *testing.T, params *Params) *Engine {
	e, err := NewEngine(params, l.clock, nil)
	require.NoError(t, err)
	return e
}

func (l *testLink) down(e *Engine) (*SpatialChannelMatrix, bool) {
	return e.GetChannel(l.gnb, l.ue, l.gnbAnt, l.ueAnt)
}

func (l *testLink) up(e *Engine) (*SpatialChannelMatrix, bool) {
	return e.GetChannel(l.ue, l.gnb, l.ueAnt, l.gnbAnt)
}

func losParams() *Params {
	p := DefaultParams()
	p.Scenario = ScenarioUMi
	p.ForceCondition = "l"
	return p
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario("umi-streetcanyon")
	require.NoError(t, err)
	assert.Equal(t, ScenarioUMi, s)
	assert.Equal(t, "InH-OfficeMixed", ScenarioInHOfficeMixed.String())

	_, err = ParseScenario("Suburban")
	assert.Error(t, err)
}

func TestConditionCodes(t *testing.T) {
	assert.Equal(t, ConditionLos, ParseConditionCode("l"))
	assert.Equal(t, ConditionO2i, ParseConditionCode("O"))
	assert.Panics(t, func() { ParseConditionCode("x") })
	assert.Panics(t, func() { _ = Condition(7).String() })
}

func TestSqrtCorrelationReproducesTable(t *testing.T) {
	for _, s := range []Scenario{ScenarioRMa, ScenarioUMa, ScenarioUMi, ScenarioInHOfficeOpen} {
		for _, c := range []Condition{ConditionLos, ConditionNlos} {
			p := tableFor(s, c, 28, 100, 1.5, 10)
			var prod mat.Dense
			prod.Mul(p.sqrtC, p.sqrtC.T())
			for i := 0; i < numLsp; i++ {
				assert.InDelta(t, 1.0, prod.At(i, i), 1e-3, "%v %v", s, c)
			}
		}
	}
	p := tableFor(ScenarioUMi, ConditionLos, 28, 100, 1.5, 10)
	var prod mat.Dense
	prod.Mul(p.sqrtC, p.sqrtC.T())
	assert.InDelta(t, -0.7, prod.At(lspDS, lspK), 1e-3)
	assert.Equal(t, 9.0, p.uK)
}

func TestCacheIdempotenceAndSymmetry(t *testing.T) {
	prng.Init(1)
	l := newTestLink()
	e := l.engine(t, losParams())

	m1, ok := l.down(e)
	require.True(t, ok)
	m2, _ := l.down(e)
	assert.Same(t, m1, m2)
	assert.False(t, m1.Reversed)
	assert.Equal(t, l.gnb.Id(), m1.TxId)

	m3, ok := l.up(e)
	require.True(t, ok)
	assert.True(t, m3.Reversed)
	assert.Equal(t, m1.GenerationId, m3.GenerationId)
	assert.Same(t, &m1.Coefficients[0][0][0], &m3.Coefficients[0][0][0])
	tx, rx := m3.ElementCounts()
	assert.Equal(t, l.ueAnt.ElementCount(), tx)
	assert.Equal(t, l.gnbAnt.ElementCount(), rx)
	assert.Equal(t, uint64(1), e.Stats.Generated)
}

func TestCoherenceTime(t *testing.T) {
	prng.Init(2)
	l := newTestLink()
	e := l.engine(t, losParams())

	m1, _ := l.down(e)
	require.Equal(t, ConditionLos, m1.Condition)

	l.clock.now = 50 * Millisecond
	m2, _ := l.down(e)
	assert.Equal(t, m1.GenerationId, m2.GenerationId)
	assert.Equal(t, uint64(0), m2.GeneratedAt)

	l.clock.now = 100 * Millisecond
	m3, _ := l.down(e)
	assert.NotEqual(t, m1.GenerationId, m3.GenerationId)
	assert.Greater(t, m3.GeneratedAt, m1.GeneratedAt)

	m4, _ := l.up(e)
	assert.Equal(t, m3.GenerationId, m4.GenerationId)
}

func TestClusterConsistencyAndDelayOrder(t *testing.T) {
	prng.Init(3)
	for _, s := range []Scenario{ScenarioRMa, ScenarioUMa, ScenarioUMi, ScenarioInHOfficeMixed} {
		for _, c := range []string{"l", "n", "o"} {
			l := newTestLink()
			p := DefaultParams()
			p.Scenario = s
			p.ForceCondition = c
			p.Blockage = true
			e := l.engine(t, p)
			for i := 0; i < 3; i++ {
				l.clock.now += p.UpdatePeriod
				m, ok := l.down(e)
				require.True(t, ok)
				require.NoError(t, m.Validate())
				require.Greater(t, m.NumClusters(), 0)
				assert.Equal(t, 0.0, m.Delays[0])
				for k := 1; k < m.NumClusters(); k++ {
					assert.GreaterOrEqual(t, m.Delays[k], m.Delays[k-1])
				}
				assert.Len(t, m.Blockers, p.NumNonSelfBlocking)
			}
		}
	}
}

func TestNoMeaningfulChannel(t *testing.T) {
	l := newTestLink()
	e := l.engine(t, losParams())
	other := mobility.NewConstantPosition(3, RoleUe, Vector{X: 5})

	_, ok := e.GetChannel(l.ue, other, l.ueAnt, antenna.NewArray(antenna.DefaultUeConfig()))
	assert.False(t, ok)

	l.gnbAnt.SetOmniTx(true)
	_, ok = l.down(e)
	assert.False(t, ok)
	_, ok = l.up(e)
	assert.False(t, ok)
	assert.Equal(t, 0, e.CacheSize())

	l.gnbAnt.SetOmniTx(false)
	l.ueAnt.SetOmniTx(true)
	_, ok = l.down(e)
	assert.False(t, ok)
	_, ok = l.up(e)
	assert.False(t, ok)
	assert.Equal(t, 0, e.CacheSize())

	l.ueAnt.SetOmniTx(false)
	_, ok = l.up(e)
	assert.True(t, ok)
	assert.Equal(t, 1, e.CacheSize())
}

func TestSweepSuppressesStatisticalRefresh(t *testing.T) {
	prng.Init(4)
	l := newTestLink()
	e := l.engine(t, losParams())
	sweeps := testSweeps{l.ue.Id(): true}
	e.SetSweepMonitor(sweeps)

	m1, _ := l.down(e)
	l.clock.now = 500 * Millisecond
	m2, _ := l.down(e)
	assert.Same(t, m1, m2)
	assert.Equal(t, uint64(1), e.Stats.Suppressed)

	sweeps[l.ue.Id()] = false
	m3, _ := l.down(e)
	assert.NotEqual(t, m1.GenerationId, m3.GenerationId)

	// without realistic initial access a sweep does not hold the channel
	p := losParams()
	p.RealisticIa = false
	e2 := l.engine(t, p)
	e2.SetSweepMonitor(testSweeps{l.ue.Id(): true})
	n1, _ := l.down(e2)
	l.clock.now += 100 * Millisecond
	n2, _ := l.down(e2)
	assert.NotEqual(t, n1.GenerationId, n2.GenerationId)
}

func TestConditionChangeRegenerates(t *testing.T) {
	l := newTestLink()
	e := l.engine(t, losParams())
	m1, _ := l.down(e)
	e.SetConditionModel(FixedConditionModel{Condition: ConditionNlos})
	l.clock.now = 1
	m2, _ := l.down(e)
	assert.Equal(t, ConditionNlos, m2.Condition)
	assert.NotEqual(t, m1.GenerationId, m2.GenerationId)
}

func TestSpatialConsistencyEvolves(t *testing.T) {
	prng.Init(5)
	l := newTestLink()
	p := losParams()
	p.SpatialConsistency = true
	e := l.engine(t, p)
	ue := mobility.NewConstantVelocity(2, RoleUe, l.clock, Vector{X: 100, Z: 1.5}, Vector{Y: 3})

	m1, _ := e.GetChannel(l.gnb, ue, l.gnbAnt, l.ueAnt)
	l.clock.now = 100 * Millisecond
	m2, _ := e.GetChannel(l.gnb, ue, l.gnbAnt, l.ueAnt)
	assert.Equal(t, uint64(1), e.Stats.Evolved)
	assert.Equal(t, m1.NumClusters(), m2.NumClusters())
	assert.Equal(t, m1.Lsp, m2.Lsp)
	assert.Equal(t, 0.0, m2.Delays[0])
	require.NoError(t, m2.Validate())
	// the direct path follows the UE
	az, _ := Vector{Z: 10}.Angles(ue.Position())
	assert.InDelta(t, az, m2.AoD[0], 1e-9)
}

func TestSpatialConsistencyKeepsDirectPathFirst(t *testing.T) {
	velocities := []Vector{{Y: 30}, {X: 30}, {X: -30}, {Y: -30}}
	for seed := int64(1); seed <= 4; seed++ {
		for _, v := range velocities {
			prng.Init(seed)
			l := newTestLink()
			p := losParams()
			p.SpatialConsistency = true
			e := l.engine(t, p)
			ue := mobility.NewConstantVelocity(2, RoleUe, l.clock, Vector{X: 100, Z: 1.5}, v)

			for step := 0; step < 30; step++ {
				m, ok := e.GetChannel(l.gnb, ue, l.gnbAnt, l.ueAnt)
				require.True(t, ok)
				require.NoError(t, m.Validate(), "seed %d velocity %v step %d", seed, v, step)
				assert.Equal(t, 0.0, m.Delays[0])
				for i := 1; i < len(m.Delays); i++ {
					assert.GreaterOrEqual(t, m.Delays[i], m.Delays[i-1])
				}
				az, _ := Vector{Z: 10}.Angles(ue.Position())
				require.InDelta(t, az, m.AoD[0], 1e-9, "seed %d velocity %v step %d", seed, v, step)
				l.clock.now += p.UpdatePeriod
			}
			assert.Equal(t, uint64(29), e.Stats.Evolved)
		}
	}
}

func TestSortClustersLos(t *testing.T) {
	idx, sorted := sortClusters([]float64{0, 30, -5, 10}, true)
	assert.Equal(t, []int{0, 2, 3, 1}, idx)
	assert.Equal(t, []float64{0, 0, 10, 30}, sorted)

	idx, sorted = sortClusters([]float64{5, 30, -5}, false)
	assert.Equal(t, []int{2, 0, 1}, idx)
	assert.Equal(t, []float64{0, 10, 35}, sorted)

	idx, sorted = sortClusters(nil, true)
	assert.Empty(t, idx)
	assert.Empty(t, sorted)
}

func TestCachePurge(t *testing.T) {
	l := newTestLink()
	p := losParams()
	p.MaxCacheSize = 2
	e := l.engine(t, p)
	for i := 0; i < 3; i++ {
		ue := mobility.NewConstantPosition(10+i, RoleUe, Vector{X: 50, Y: float64(i)})
		l.clock.now = uint64(i)
		_, ok := e.GetChannel(l.gnb, ue, l.gnbAnt, l.ueAnt)
		require.True(t, ok)
	}
	assert.Equal(t, uint64(1), e.Stats.Purges)
	assert.Equal(t, 1, e.CacheSize())
}

const rtRecords = `100,0,1.5
0







10,0,1.5
1
3.4e-8
80
1
0
90
180
90
`

func newRayTracedEngine(t *testing.T, l *testLink, p *Params) *Engine {
	lt, err := raytrace.LoadLinkRecords(strings.NewReader(rtRecords), raytrace.RecordLines, 1)
	require.NoError(t, err)
	ds := &raytrace.Dataset{Enbs: []Vector{{Z: 10}}, Links: []*raytrace.LinkTrace{lt}}
	p.Model = ModelRayTraced
	e, err := NewEngine(p, l.clock, ds)
	require.NoError(t, err)
	return e
}

func TestRayTracedZeroPaths(t *testing.T) {
	l := newTestLink()
	e := newRayTracedEngine(t, l, DefaultParams())
	m, ok := l.down(e)
	require.True(t, ok)
	assert.Equal(t, 0, m.NumClusters())
	assert.True(t, m.PathLossIncluded)

	prop := NewPropagation(e, 7)
	model := newTestSpectrum()
	tx := spectrumTx(model)
	rx := prop.RxPsd(tx, Endpoint{l.gnb, l.gnbAnt}, Endpoint{l.ue, l.ueAnt})
	assert.InDelta(t, tx.Integral()*1e-20, rx.Integral(), 1e-30)
}

func TestRayTracedRegenerationFollowsTimeIndex(t *testing.T) {
	l := newTestLink()
	l.ue.SetPosition(Vector{X: 10, Z: 1.5})
	p := DefaultParams()
	p.RayTraceStep = 10 * Millisecond
	e := newRayTracedEngine(t, l, p)
	// a sweeping UE never holds a ray-traced channel
	e.SetSweepMonitor(testSweeps{l.ue.Id(): true})

	m1, _ := l.down(e)
	require.Equal(t, 1, m1.NumClusters())
	assert.True(t, m1.IsLos())
	assert.InDelta(t, 34.0, m1.Delays[0], 1e-9)

	l.clock.now = 9 * Millisecond
	m2, _ := l.down(e)
	assert.Same(t, m1, m2)

	l.clock.now = 10 * Millisecond
	m3, _ := l.down(e)
	assert.NotEqual(t, m1.GenerationId, m3.GenerationId)
	assert.Equal(t, 1, m3.TimeIndex)
	assert.Equal(t, uint64(0), e.Stats.Suppressed)
}

func TestPedestrianBlockagePersistsPerTimeIndex(t *testing.T) {
	l := newTestLink()
	l.ue.SetPosition(Vector{X: 10, Z: 1.5})
	p := DefaultParams()
	p.PedestrianBlockage = true
	p.PedestrianProb = 1
	e := newRayTracedEngine(t, l, p)

	m, _ := l.down(e)
	assert.InDelta(t, 1e-10, m.Powers[0], 1e-15)
	e.Forget(l.gnb.Id(), l.ue.Id())
	m2, _ := l.down(e)
	assert.Equal(t, m.Powers[0], m2.Powers[0])
}
