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

package defectmap

import "testing"

func TestApply_ReplacesHotPixelWithMeanOfNeighbors(t *testing.T) {
	const width, height = 5, 5
	data := make([]float32, width*height)
	mask := make([]float32, width*height)
	for i := range data {
		data[i] = 1.0
	}
	data[2*width+2] = 100.0 // hot pixel at center
	mask[2*width+2] = 1

	s := &Settings{Interpolation: Mean, Shape: Square, Radius: 1}
	out, err := Apply(s, data, mask, width, height)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[2*width+2] != 1.0 {
		t.Errorf("got %f, want 1.0", out[2*width+2])
	}
	if out[0] != data[0] {
		t.Error("unmasked pixels must not change")
	}
}

func TestApply_MedianIgnoresOtherMaskedNeighbors(t *testing.T) {
	const width, height = 3, 3
	data := []float32{
		1, 1, 1,
		1, 99, 1,
		1, 1, 98,
	}
	mask := []float32{
		0, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
	s := &Settings{Interpolation: Median, Shape: Square, Radius: 1}
	out, err := Apply(s, data, mask, width, height)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[1*width+1] != 1 {
		t.Errorf("center: got %f, want 1", out[1*width+1])
	}
}

func TestApply_RejectsGeometryMismatch(t *testing.T) {
	s := &Settings{Interpolation: Mean, Shape: Square, Radius: 1}
	if _, err := Apply(s, make([]float32, 4), make([]float32, 3), 2, 2); err == nil {
		t.Fatal("expected a geometry mismatch error")
	}
}

func TestApply_RejectsZeroRadius(t *testing.T) {
	s := &Settings{Interpolation: Mean, Shape: Square, Radius: 0}
	if _, err := Apply(s, make([]float32, 4), make([]float32, 4), 2, 2); err == nil {
		t.Fatal("expected a configuration error for radius < 1")
	}
}

func TestApply_CFARestrictsToSameParityNeighbors(t *testing.T) {
	// 4x4 RGGB-like single-channel plane: defect at (2,2), nearest same
	// parity neighbors at even offsets should dominate the estimate.
	const width, height = 4, 4
	data := make([]float32, width*height)
	mask := make([]float32, width*height)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			data[y*width+x] = 5.0
		}
	}
	data[0*width+0] = 50 // same-parity diagonal neighbor at offset (-2,-2), which CFA mode samples
	data[2*width+2] = 500
	mask[2*width+2] = 1

	s := &Settings{Interpolation: Mean, Shape: Square, Radius: 2, CFA: true}
	out, err := Apply(s, data, mask, width, height)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[2*width+2] == 500 {
		t.Error("defective pixel should have been replaced")
	}
	// Only (0,0), (2,0) and (0,2) share (2,2)'s parity: mean of 50, 5, 5.
	if got := out[2*width+2]; got != 20 {
		t.Errorf("got %f, want 20 from the same-parity neighbors only", got)
	}
}

func TestNeighborOffsets_HorizontalExcludesVerticalNeighbors(t *testing.T) {
	offsets := neighborOffsets(Horizontal, 2)
	for _, o := range offsets {
		if o.dy != 0 {
			t.Fatalf("horizontal shape produced a vertical offset: %+v", o)
		}
	}
	if len(offsets) != 4 {
		t.Errorf("got %d offsets, want 4", len(offsets))
	}
}
