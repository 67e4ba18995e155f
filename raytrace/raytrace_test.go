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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mmwns/mmw-ns/types"
)

const twoRecords = `10,20,1.5
2
1e-7,2.5e-7
80,95.5
1,0
10,-30
90,92
-170,150
90,88
11,20,1.5
0







`

func TestLoadLinkRecords(t *testing.T) {
	lt, err := LoadLinkRecords(strings.NewReader(twoRecords), RecordLines, 1)
	require.NoError(t, err)
	require.Equal(t, 2, lt.Len())

	rec, ok := lt.Lookup(Vector{X: 10.2, Y: 19.9, Z: 1.5})
	require.True(t, ok)
	require.Len(t, rec.Paths, 2)
	assert.InDelta(t, 100, rec.Paths[0].DelayNs, 1e-6)
	assert.InDelta(t, 250, rec.Paths[1].DelayNs, 1e-6)
	assert.True(t, rec.Paths[0].Los)
	assert.False(t, rec.Paths[1].Los)
	assert.Equal(t, -30.0, rec.Paths[1].AoD)
	assert.Equal(t, 150.0, rec.Paths[1].AoA)
	assert.Equal(t, 0, rec.StrongestPath())

	empty, ok := lt.Lookup(Vector{X: 11, Y: 20, Z: 1.5})
	require.True(t, ok)
	assert.Empty(t, empty.Paths)
	assert.Equal(t, -1, empty.StrongestPath())

	_, ok = lt.Lookup(Vector{X: 50})
	assert.False(t, ok)
}

func TestLoadLinkRecordsWithPhase(t *testing.T) {
	in := "0,0,0\n1\n1e-8\n70\n1\n0\n90\n180\n90\n45\n"
	lt, err := LoadLinkRecords(strings.NewReader(in), RecordLinesWithPhase, 1)
	require.NoError(t, err)
	assert.Equal(t, 45.0, lt.Records[0].Paths[0].PhaseDeg)
}

func TestLoadLinkRecordsErrors(t *testing.T) {
	_, err := LoadLinkRecords(strings.NewReader("0,0,0\n1\n1e-8\n70\n2\n0\n90\n180\n90\n"), RecordLines, 1)
	assert.Error(t, err, "LOS flag out of domain")

	_, err = LoadLinkRecords(strings.NewReader("0,0,0\n2\n1e-8\n70\n1\n0\n90\n180\n90\n"), RecordLines, 1)
	assert.Error(t, err, "count mismatch")

	_, err = LoadLinkRecords(strings.NewReader("0,0,0\n1\n1e-8\n"), RecordLines, 1)
	assert.Error(t, err, "truncated")

	_, err = LoadLinkRecords(strings.NewReader(""), 7, 1)
	assert.Error(t, err)
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}
	cfg := Config{
		EnbFile:    write("enb.txt", "0,0,10\n# comment\n100 0 10\n"),
		WalkFile:   write("walk.txt", "10,20,1.5\n11,20,1.5\n"),
		LinkFiles:  []string{write("l0.txt", twoRecords), write("l1.txt", twoRecords)},
		Resolution: 1,
	}
	ds, err := Load(cfg)
	require.NoError(t, err)
	assert.Len(t, ds.Enbs, 2)
	assert.Len(t, ds.Walk, 2)
	assert.Equal(t, 1, ds.TxIndexAt(Vector{X: 100.5, Z: 10}, 1))
	assert.Equal(t, -1, ds.TxIndexAt(Vector{X: 50}, 1))

	_, ok := ds.Lookup(1, ds.Walk[0])
	assert.True(t, ok)

	cfg.LinkFiles = cfg.LinkFiles[:1]
	_, err = Load(cfg)
	assert.Error(t, err)

	cfg.EnbFile = filepath.Join(dir, "missing.txt")
	_, err = Load(cfg)
	assert.Error(t, err)
}
