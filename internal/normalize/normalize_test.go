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

package normalize

import (
	"math"
	"testing"

	"github.com/mlnoga/starcal/internal/starerr"
)

func syntheticFrame(width, height int32, seed float32) []float32 {
	data := make([]float32, width*height)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			data[y*width+x] = 0.3 + 0.1*float32(math.Sin(float64(x)/17+float64(seed))) +
				0.1*float32(math.Cos(float64(y)/23+float64(seed)))
		}
	}
	return data
}

func TestBuildNormalization_IdenticalFramesYieldUnitField(t *testing.T) {
	const width, height = 64, 64
	frame := syntheticFrame(width, height, 0)

	s := NewSettingsDefault()
	s.Scale = 32
	s.RejectOutliers = false
	s.HotPixelFilterRadius = 0

	result, err := BuildNormalization(s, frame, frame, width, height, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const epsilon = 0.05
	for _, v := range result.Fields[0].A {
		if math.Abs(float64(v-1)) > epsilon {
			t.Errorf("A=%f for identical frames, want ~1", v)
		}
	}
	for _, v := range result.Fields[0].B {
		if math.Abs(float64(v)) > epsilon {
			t.Errorf("B=%f for identical frames, want ~0", v)
		}
	}
}

func TestBuildNormalization_GeometryMismatch(t *testing.T) {
	s := NewSettingsDefault()
	s.Scale = 32
	ref := make([]float32, 64*64)
	tgt := make([]float32, 32*32)

	_, err := BuildNormalization(s, ref, tgt, 64, 64, 1)
	if !starerr.Is(err, starerr.GeometryMismatch) {
		t.Fatalf("expected GeometryMismatch, got %v", err)
	}
}

func TestBuildNormalization_InsufficientSize(t *testing.T) {
	s := NewSettingsDefault()
	s.Scale = 128 // requires min(width,height) >= 256
	const width, height = 64, 64
	ref := make([]float32, width*height)
	tgt := make([]float32, width*height)

	_, err := BuildNormalization(s, ref, tgt, width, height, 1)
	if !starerr.Is(err, starerr.InsufficientData) {
		t.Fatalf("expected InsufficientData for undersized frame, got %v", err)
	}
}

func TestBuildNormalization_NoScaleForcesUnitA(t *testing.T) {
	const width, height = 64, 64
	ref := syntheticFrame(width, height, 0)
	tgt := syntheticFrame(width, height, 1)

	s := NewSettingsDefault()
	s.Scale = 32
	s.NoScale = true
	s.RejectOutliers = false

	result, err := BuildNormalization(s, ref, tgt, width, height, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range result.Fields[0].A {
		if v != 1 {
			t.Errorf("noScale should force A=1 everywhere, got %f", v)
		}
	}
}

func TestDilate3x3_GrowsSinglePixel(t *testing.T) {
	width, height := int32(5), int32(5)
	mask := make([]bool, width*height)
	mask[2*width+2] = true // center pixel

	out := dilate3x3(mask, width, height)
	for y := int32(1); y <= 3; y++ {
		for x := int32(1); x <= 3; x++ {
			if !out[y*width+x] {
				t.Errorf("expected (%d,%d) to be set after dilation", x, y)
			}
		}
	}
	if out[0] {
		t.Error("corner pixel should remain unset")
	}
}
