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
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mmwns/mmw-ns/config"
	. "github.com/mmwns/mmw-ns/types"
)

func TestOutputItemsAsYaml(t *testing.T) {
	var out bytes.Buffer
	cc := &CommandContext{output: &out}
	cc.outputItemsAsYaml([]cellItem{
		{Id: 1, Pos: "(0.0, 0.0, 10.0)", Attached: []NodeId{5, 6}, Ssb: 80},
		{Id: 2, Pos: "(100.0, 0.0, 10.0)"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "- {id: 1, pos: "))
	assert.Contains(t, lines[0], "attached: [5, 6]")
	assert.True(t, strings.HasPrefix(lines[1], "- {id: 2, "))

	var rows []cellItem
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, []NodeId{5, 6}, rows[0].Attached)
}

func TestSaveScenarioReloads(t *testing.T) {
	h := newRunnerHarness(t)
	assert.Equal(t, "Done\n", h.run(t, "move 5 45 -5"))

	fn := filepath.Join(t.TempDir(), "scenario.yaml")
	assert.Equal(t, "Done\n", h.run(t, "save \""+fn+"\""))

	cfg, err := config.Load(fn)
	require.NoError(t, err)
	require.Len(t, cfg.Nodes, 2)
	assert.Equal(t, 1, cfg.Nodes[0].Id)
	assert.Equal(t, "gnb", cfg.Nodes[0].Role)
	assert.Equal(t, [3]float64{45, -5, 1.5}, cfg.Nodes[1].Position)
	assert.Equal(t, int64(7), cfg.Seed)
}
