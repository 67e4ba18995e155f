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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	cmds []string
}

func (h *recordingHandler) HandleCommand(cmd string, output io.Writer) error {
	h.cmds = append(h.cmds, cmd)
	_, err := fmt.Fprintf(output, "ran %s\n", cmd)
	return err
}

func (h *recordingHandler) GetPrompt() string {
	return Prompt
}

func TestCliSkipsBlankAndCommentLines(t *testing.T) {
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	stdout, err := os.Create(filepath.Join(t.TempDir(), "stdout.txt"))
	require.NoError(t, err)
	defer stdout.Close()

	_, err = stdinW.WriteString("time\n\n# a comment\n  ues  \n")
	require.NoError(t, err)
	require.NoError(t, stdinW.Close())

	h := &recordingHandler{}
	cli := newCliInstance()
	require.NoError(t, cli.Run(h, &CliOptions{Stdin: stdinR, Stdout: stdout}))
	assert.Equal(t, []string{"time", "ues"}, h.cmds)

	data, err := os.ReadFile(stdout.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "ran ues")
}
