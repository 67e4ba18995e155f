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

package trace

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"

	"github.com/mmwns/mmw-ns/logger"
	. "github.com/mmwns/mmw-ns/types"
)

type sweepRow struct {
	TimeUs    uint64  `csv:"time_us"`
	Origin    string  `csv:"origin"`
	Ue        int     `csv:"ue"`
	Cell      int     `csv:"cell"`
	SnrDb     float64 `csv:"snr_db"`
	PrevSnrDb float64 `csv:"prev_snr_db"`
	Sector    int     `csv:"sector"`
	Elevation float64 `csv:"elevation"`
}

type handoverRow struct {
	TimeUs uint64 `csv:"time_us"`
	Kind   string `csv:"kind"`
	Ue     int    `csv:"ue"`
	Source int    `csv:"source_cell"`
	Target int    `csv:"target_cell"`
}

type sinrRow struct {
	TimeUs uint64  `csv:"time_us"`
	Ue     int     `csv:"ue"`
	Cell   int     `csv:"cell"`
	SinrDb float64 `csv:"sinr_db"`
}

type csvStream struct {
	file io.Closer
	w    *csv.Writer
	enc  *csvutil.Encoder
}

func newCsvStream(w io.Writer, c io.Closer) *csvStream {
	cw := csv.NewWriter(w)
	return &csvStream{file: c, w: cw, enc: csvutil.NewEncoder(cw)}
}

func (s *csvStream) write(v interface{}) {
	if err := s.enc.Encode(v); err != nil {
		logger.Errorf("csv trace write failed: %v", err)
	}
}

func (s *csvStream) close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// CsvSink writes one CSV file per event type.
type CsvSink struct {
	sweeps    *csvStream
	handovers *csvStream
	sinr      *csvStream
}

// NewCsvSink creates beam-sweeps.csv, handovers.csv and sinr.csv in dir.
func NewCsvSink(dir string) (*CsvSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create trace dir %s", dir)
	}
	var files []*os.File
	open := func(name string) (*os.File, error) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			for _, o := range files {
				_ = o.Close()
			}
			return nil, errors.Wrapf(err, "create trace file %s", name)
		}
		files = append(files, f)
		return f, nil
	}
	sw, err := open("beam-sweeps.csv")
	if err != nil {
		return nil, err
	}
	ho, err := open("handovers.csv")
	if err != nil {
		return nil, err
	}
	si, err := open("sinr.csv")
	if err != nil {
		return nil, err
	}
	return &CsvSink{
		sweeps:    newCsvStream(sw, sw),
		handovers: newCsvStream(ho, ho),
		sinr:      newCsvStream(si, si),
	}, nil
}

// NewCsvSinkWriters writes to caller-owned writers; Close only flushes them.
func NewCsvSinkWriters(sweeps, handovers, sinr io.Writer) *CsvSink {
	return &CsvSink{
		sweeps:    newCsvStream(sweeps, nil),
		handovers: newCsvStream(handovers, nil),
		sinr:      newCsvStream(sinr, nil),
	}
}

func (c *CsvSink) OnBeamSweep(ev BeamSweepTraceEvent) {
	c.sweeps.write(sweepRow{
		TimeUs:    ev.Timestamp,
		Origin:    ev.Origin.String(),
		Ue:        ev.UeId,
		Cell:      ev.CellId,
		SnrDb:     ev.SnrDb,
		PrevSnrDb: ev.PrevSnrDb,
		Sector:    ev.Beam.Sector,
		Elevation: ev.Beam.Elevation,
	})
}

func (c *CsvSink) OnHandover(ev HandoverEvent) {
	c.handovers.write(handoverRow{
		TimeUs: ev.Timestamp,
		Kind:   ev.Kind.String(),
		Ue:     ev.UeId,
		Source: ev.SourceCell,
		Target: ev.TargetCell,
	})
}

func (c *CsvSink) OnSinr(s SinrSample) {
	c.sinr.write(sinrRow{TimeUs: s.Timestamp, Ue: s.UeId, Cell: s.CellId, SinrDb: s.SinrDb})
}

// Close flushes all streams and closes the files it created.
func (c *CsvSink) Close() error {
	var first error
	for _, s := range []*csvStream{c.sweeps, c.handovers, c.sinr} {
		if err := s.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
