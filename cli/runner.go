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

// Package cli implements the interactive console of the simulator. It parses commands and
// executes them on the simulation's dispatcher loop.
package cli

import (
	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/logger"
	"github.com/mmwns/mmw-ns/progctx"
	"github.com/mmwns/mmw-ns/simulation"
)

// Run runs the console until it is closed, then cancels the program context.
func Run(ctx *progctx.ProgCtx, sim *simulation.Simulation, options *CliOptions) {
	var err error
	defer func() {
		if err != nil {
			ctx.Cancel(errors.Wrapf(err, "console exit"))
		} else {
			ctx.Cancel("console exit")
		}
	}()

	ctx.WaitAdd("cli", 1)
	defer ctx.WaitDone("cli")

	rt := NewCmdRunner(ctx, sim)
	logger.SetStdoutCallback(Cli)
	defer logger.SetStdoutCallback(nil)

	err = Cli.Run(rt, options)
	if errors.Is(err, ctx.Err()) {
		err = nil
	}
}
