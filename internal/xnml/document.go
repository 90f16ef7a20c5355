// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package xnml reads and writes local-normalization data documents: the A
// and B affine-field matrices a normalization run produces, alongside the
// reference/target identity and scale that produced them.
package xnml

import "github.com/mlnoga/starcal/internal/starerr"

// FormatVersion is the XNML document version this codec reads and writes.
const FormatVersion = "1.0"

// Geometry is the reference image's pixel dimensions.
type Geometry struct {
	Width  int32
	Height int32
}

// Matrix is one channel-indexed 2-D array of double-precision samples, the
// payload shape shared by the A and B fields.
type Matrix struct {
	Width, Height, Channels int32
	Data                    []float64 // channel-major, each plane width*height
}

func (m Matrix) validate() error {
	expect := int64(m.Width) * int64(m.Height) * int64(m.Channels)
	if expect != int64(len(m.Data)) {
		return starerr.New(starerr.GeometryMismatch, "xnml matrix declares %dx%dx%d but carries %d samples", m.Width, m.Height, m.Channels, len(m.Data))
	}
	return nil
}

// Document is the parsed content of one XNML file.
type Document struct {
	Version            string
	ReferenceImage     string
	TargetImage        string
	NormalizationScale int32
	ReferenceGeometry  Geometry
	CreationTime       string // ISO-8601 UTC
	A, B               Matrix
	Compress           bool
}

// Validate checks the invariants the codec enforces on parse: a
// normalization scale of at least 32, matching A/B shape and channel count, and internally consistent
// matrix dimensions.
func (d *Document) Validate() error {
	if d.NormalizationScale < 32 {
		return starerr.New(starerr.ConfigurationError, "xnml: normalizationScale %d must be >= 32", d.NormalizationScale)
	}
	if err := d.A.validate(); err != nil {
		return err
	}
	if err := d.B.validate(); err != nil {
		return err
	}
	if d.A.Width != d.B.Width || d.A.Height != d.B.Height || d.A.Channels != d.B.Channels {
		return starerr.New(starerr.GeometryMismatch, "xnml: A and B matrices disagree on shape: %dx%dx%d vs %dx%dx%d",
			d.A.Width, d.A.Height, d.A.Channels, d.B.Width, d.B.Height, d.B.Channels)
	}
	return nil
}
