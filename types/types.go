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

import (
	"fmt"
	"math"
	"strings"

	"github.com/simonlingoogle/go-simplelogger"
)

type NodeId = int

const (
	MaxNodeId     NodeId = 0xffff
	InvalidNodeId NodeId = 0
)

// Simulated time is kept in microseconds.
const (
	Ever        uint64 = math.MaxUint64
	Microsecond uint64 = 1
	Millisecond        = 1000 * Microsecond
	Second             = 1000 * Millisecond
)

// NodeRole tells which kind of device a node handle belongs to.
type NodeRole int

const (
	RoleInvalid NodeRole = iota
	RoleGnb
	RoleUe
	RoleAnchor
)

func (r NodeRole) String() string {
	switch r {
	case RoleGnb:
		return "gnb"
	case RoleUe:
		return "ue"
	case RoleAnchor:
		return "anchor"
	case RoleInvalid:
		return "invalid"
	default:
		simplelogger.Panicf("invalid node role: %d", int(r))
		return "invalid"
	}
}

func ParseNodeRole(s string) (NodeRole, error) {
	switch strings.ToLower(s) {
	case "gnb", "enb", "cell":
		return RoleGnb, nil
	case "ue":
		return RoleUe, nil
	case "anchor", "lte", "coordinator":
		return RoleAnchor, nil
	default:
		return RoleInvalid, fmt.Errorf("unknown node role: %q", s)
	}
}

// GetNodeName returns the display name of a node as used in logs.
func GetNodeName(id NodeId, role NodeRole) string {
	return fmt.Sprintf("%s-%d", role, id)
}
