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

package logger

import (
	"fmt"
	"sync"

	. "github.com/mmwns/mmw-ns/types"
)

// NodeLogger is a node-specific log object. Its display level can be raised to watch an
// individual gNB or UE without changing the global level.
type NodeLogger struct {
	Id           NodeId
	Role         NodeRole
	displayLevel Level
	prefix       string
}

var (
	nodeLogs = make(map[NodeId]*NodeLogger, 10)
	mutex    = sync.Mutex{}
)

// GetNodeLogger returns the NodeLogger for the given node, creating it on first use.
func GetNodeLogger(id NodeId, role NodeRole) *NodeLogger {
	mutex.Lock()
	defer mutex.Unlock()

	nl, ok := nodeLogs[id]
	if !ok {
		nl = &NodeLogger{
			Id:           id,
			Role:         role,
			displayLevel: currentLevel,
			prefix:       GetNodeName(id, role) + " ",
		}
		nodeLogs[id] = nl
	}
	return nl
}

// ResetNodeLoggers forgets all node loggers, e.g. when a new simulation is built.
func ResetNodeLoggers() {
	mutex.Lock()
	defer mutex.Unlock()
	nodeLogs = make(map[NodeId]*NodeLogger, 10)
}

func (nl *NodeLogger) SetDisplayLevel(level Level) {
	nl.displayLevel = level
}

func (nl *NodeLogger) GetDisplayLevel() Level {
	return nl.displayLevel
}

func (nl *NodeLogger) Logf(level Level, format string, args []interface{}) {
	if !enabled(level, nl.displayLevel) && !enabled(level, currentLevel) {
		return
	}
	if len(args) > 0 {
		format = fmt.Sprintf(format, args...)
	}
	emit(level, nl.prefix+format)
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	nl.Logf(TraceLevel, format, args)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	nl.Logf(DebugLevel, format, args)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	nl.Logf(InfoLevel, format, args)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	nl.Logf(WarnLevel, format, args)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	nl.Logf(ErrorLevel, format, args)
}

func (nl *NodeLogger) Panicf(format string, args ...interface{}) {
	nl.Logf(PanicLevel, format, args)
}
