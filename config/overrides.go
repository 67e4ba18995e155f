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

package config

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// ParseOverrides turns "section.key=value" arguments into an override map.
func ParseOverrides(args []string) (map[string]interface{}, error) {
	res := map[string]interface{}{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("override %q is not key=value", a)
		}
		res[k] = strings.TrimSpace(v)
	}
	return res, nil
}

// nest expands dotted keys into nested maps.
func nest(flat map[string]interface{}) (map[string]interface{}, error) {
	root := map[string]interface{}{}
	for key, val := range flat {
		parts := strings.Split(key, ".")
		m := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p]
			if !ok {
				sub := map[string]interface{}{}
				m[p] = sub
				m = sub
				continue
			}
			sub, ok := next.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("override %q conflicts with key %q", key, p)
			}
			m = sub
		}
		last := parts[len(parts)-1]
		if _, ok := m[last]; ok {
			return nil, errors.Errorf("override %q given twice", key)
		}
		m[last] = val
	}
	return root, nil
}

// ApplyOverrides sets individual attributes by their dotted YAML path, e.g.
// "phy.rlm.tolerance": 5. Values are converted weakly, so strings from the command line work.
// Unknown keys are an error and leave the configuration unchanged.
func (c *Config) ApplyOverrides(overrides map[string]interface{}) error {
	if len(overrides) == 0 {
		return nil
	}
	nested, err := nest(overrides)
	if err != nil {
		return err
	}

	// the decoder writes slices in place, so the copy must not share backing arrays
	updated := c.clone()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &updated,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return errors.Wrap(err, "override decoder")
	}
	if err := dec.Decode(nested); err != nil {
		return errors.Wrap(err, "apply overrides")
	}
	if err := updated.Validate(); err != nil {
		return errors.Wrap(err, "apply overrides")
	}
	*c = updated
	return nil
}

func (c *Config) clone() Config {
	cc := *c
	cc.Phy.SsbSymbolOffsets = append([]int(nil), c.Phy.SsbSymbolOffsets...)
	cc.GnbAntenna.Elevations = append([]float64(nil), c.GnbAntenna.Elevations...)
	cc.UeAntenna.Elevations = append([]float64(nil), c.UeAntenna.Elevations...)
	cc.RayTrace.LinkFiles = append([]string(nil), c.RayTrace.LinkFiles...)
	cc.Nodes = append([]NodeConfig(nil), c.Nodes...)
	return cc
}
