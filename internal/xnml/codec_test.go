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

package xnml

import "testing"

func sampleDocument(compress bool) *Document {
	data := make([]float64, 4*4*3)
	for i := range data {
		data[i] = float64(i) * 0.125
	}
	return &Document{
		ReferenceImage:     "/data/reference.fits",
		TargetImage:        "/data/target.fits",
		NormalizationScale: 128,
		ReferenceGeometry:  Geometry{Width: 4, Height: 4},
		CreationTime:       "2026-08-01T00:00:00Z",
		A:                  Matrix{Width: 4, Height: 4, Channels: 3, Data: append([]float64(nil), data...)},
		B:                  Matrix{Width: 4, Height: 4, Channels: 3, Data: append([]float64(nil), data...)},
		Compress:           compress,
	}
}

func TestRoundTrip_Uncompressed(t *testing.T) {
	doc := sampleDocument(false)
	blob, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got, err := Unmarshal(blob)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for i := range doc.A.Data {
		if got.A.Data[i] != doc.A.Data[i] {
			t.Fatalf("A[%d]=%v, want %v (bit-exact required without compression)", i, got.A.Data[i], doc.A.Data[i])
		}
	}
}

func TestRoundTrip_Compressed(t *testing.T) {
	doc := sampleDocument(true)
	blob, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got, err := Unmarshal(blob)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for i := range doc.A.Data {
		if got.A.Data[i] != doc.A.Data[i] {
			t.Fatalf("A[%d]=%v, want %v after compress/decompress cycle", i, got.A.Data[i], doc.A.Data[i])
		}
	}
	if !got.Compress {
		t.Error("expected Compress to round-trip as true")
	}
}

func TestValidate_RejectsScaleBelow32(t *testing.T) {
	doc := sampleDocument(false)
	doc.NormalizationScale = 31
	if err := doc.Validate(); err == nil {
		t.Fatal("expected validation error for scale < 32")
	}
}

func TestValidate_RejectsMismatchedABShape(t *testing.T) {
	doc := sampleDocument(false)
	doc.B.Width = 2
	doc.B.Data = doc.B.Data[:2*4*3]
	if err := doc.Validate(); err == nil {
		t.Fatal("expected validation error for A/B shape mismatch")
	}
}

func TestValidate_RejectsInconsistentMatrixDimensions(t *testing.T) {
	doc := sampleDocument(false)
	doc.A.Data = doc.A.Data[:len(doc.A.Data)-1]
	if err := doc.Validate(); err == nil {
		t.Fatal("expected validation error for sample count not matching width*height*channels")
	}
}

func TestDecodeMatrix_DetectsChecksumMismatch(t *testing.T) {
	m := encodeMatrix(Matrix{Width: 2, Height: 2, Channels: 1, Data: []float64{1, 2, 3, 4}}, true)
	m.Checksum = "0000000000000000"
	if _, err := decodeMatrix(m); err == nil {
		t.Fatal("expected checksum mismatch to be detected")
	}
}
