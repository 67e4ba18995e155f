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
	"strconv"
	"strings"

	"github.com/alecthomas/participle"
	"github.com/pkg/errors"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Beams    *BeamsCmd    `| @@` //nolint
	Cells    *CellsCmd    `| @@` //nolint
	Channel  *ChannelCmd  `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Move     *MoveCmd     `| @@` //nolint
	Omni     *OmniCmd     `| @@` //nolint
	Save     *SaveCmd     `| @@` //nolint
	Sweep    *SweepCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Ues      *UesCmd      `| @@` //nolint
}

// Coord is a coordinate in meters. It accepts a leading minus sign.
type Coord float64

func (c *Coord) Capture(values []string) error {
	v, err := strconv.ParseFloat(strings.Join(values, ""), 64)
	if err != nil {
		return errors.Wrap(err, "coordinate")
	}
	*c = Coord(v)
	return nil
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type AddNodeId struct {
	Val int `"id" @Int` //nolint
}

// noinspection GoStructTag
type PositionArg struct {
	X Coord  `@("-"? (Int|Float))`     //nolint
	Y Coord  `@("-"? (Int|Float))`     //nolint
	Z *Coord `[ @("-"? (Int|Float)) ]` //nolint
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd  struct{}     `"add"`               //nolint
	Role string       `@( "gnb" | "ue" )`   //nolint
	Pos  *PositionArg `( "pos" @@`          //nolint
	Id   *AddNodeId   `| @@`                //nolint
	Walk *string      `| "walk" @String )*` //nolint
}

// noinspection GoStructTag
type BeamsCmd struct {
	Cmd struct{}     `"beams"` //nolint
	Ue  NodeSelector `@@`      //nolint
}

// noinspection GoStructTag
type CellsCmd struct {
	Cmd struct{} `"cells"` //nolint
}

// noinspection GoStructTag
type ChannelCmd struct {
	Cmd struct{}     `"channel"` //nolint
	A   NodeSelector `@@`        //nolint
	B   NodeSelector `@@`        //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{}  `"go"`                                     //nolint
	Time string    `( @((Int|Float)["h"|"us"|"m"|"ms"|"s"]) ` //nolint
	Ever *EverFlag `| @@ )`                                   //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd  struct{} `"kpi"`               //nolint
	Save *string  `[ "save" @String ]` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                     //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"off"|"T"|"D"|"I"|"N"|"W"|"E" )]` //nolint
}

// noinspection GoStructTag
type MoveCmd struct {
	Cmd    struct{}     `"move"` //nolint
	Target NodeSelector `@@`     //nolint
	Pos    PositionArg  `@@`     //nolint
}

// noinspection GoStructTag
type OmniCmd struct {
	Cmd  struct{}     `"omni"`                 //nolint
	Cell NodeSelector `@@`                     //nolint
	Mode string       `[ @( "on" | "off" ) ]` //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd  struct{} `"save"`  //nolint
	File string   `@String` //nolint
}

// noinspection GoStructTag
type SweepCmd struct {
	Cmd struct{}     `"sweep"` //nolint
	Ue  NodeSelector `@@`      //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// noinspection GoStructTag
type UesCmd struct {
	Cmd struct{} `"ues"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}
