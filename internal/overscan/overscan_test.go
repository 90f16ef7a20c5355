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

package overscan

import "testing"

func TestSubtract_DisabledConfigIsNoOp(t *testing.T) {
	data := []float32{1, 2, 3, 4}
	out, w, h, err := Subtract(append([]float32(nil), data...), 2, 2, 1, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 2 || h != 2 {
		t.Fatalf("got %dx%d, want 2x2", w, h)
	}
	for i := range data {
		if out[i] != data[i] {
			t.Errorf("pixel %d: got %f, want %f", i, out[i], data[i])
		}
	}
}

func TestSubtract_RemovesMedianOfSourceFromTarget(t *testing.T) {
	// 4x4 single-channel frame: rows 0-1 are an overscan strip at 0.1,
	// rows 2-3 are science data at 0.5.
	const width, height = 4, 4
	data := make([]float32, width*height)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			v := float32(0.5)
			if y < 2 {
				v = 0.1
			}
			data[y*width+x] = v
		}
	}
	cfg := Config{
		Enabled: true,
		Regions: [4]Region{
			{
				Enabled:    true,
				SourceRect: Rectangle{X0: 0, Y0: 0, X1: width, Y1: 2},
				TargetRect: Rectangle{X0: 0, Y0: 2, X1: width, Y1: height},
			},
		},
	}
	out, w, h, err := Subtract(data, width, height, 1, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != width || h != height {
		t.Fatalf("got %dx%d, want %dx%d", w, h, width, height)
	}
	for y := int32(2); y < height; y++ {
		for x := int32(0); x < width; x++ {
			got := out[y*width+x]
			if diff := got - 0.4; diff > 1e-5 || diff < -1e-5 {
				t.Errorf("(%d,%d): got %f, want 0.4", x, y, got)
			}
		}
	}
}

func TestSubtract_CropsToImageRect(t *testing.T) {
	const width, height = 4, 4
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(i)
	}
	cfg := Config{ImageRect: Rectangle{X0: 1, Y0: 1, X1: 3, Y1: 3}}
	out, w, h, err := Subtract(data, width, height, 1, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != 2 || h != 2 {
		t.Fatalf("got %dx%d, want 2x2", w, h)
	}
	want := []float32{5, 6, 9, 10}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("pixel %d: got %f, want %f", i, out[i], v)
		}
	}
}

func TestSubtract_RejectsInvalidRegion(t *testing.T) {
	cfg := Config{
		Enabled: true,
		Regions: [4]Region{
			{Enabled: true, SourceRect: Rectangle{X0: 3, Y0: 0, X1: 1, Y1: 1}},
		},
	}
	if _, _, _, err := Subtract(make([]float32, 16), 4, 4, 1, cfg); err == nil {
		t.Fatal("expected a configuration error for an inverted source rect")
	}
}
