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

package calib

import (
	"math"
	"testing"

	"github.com/valyala/fastrand"
)

// TestOptimizeDarkScale_RecoversKnownFactor builds a synthetic dark and a
// target equal to k*dark plus independent noise, and checks the optimizer
// recovers a non-negative scale near k.
func TestOptimizeDarkScale_RecoversKnownFactor(t *testing.T) {
	const width, height = 64, 64
	const trueK = 1.3

	var rng fastrand.RNG
	dark := make([]float32, width*height)
	target := make([]float32, width*height)
	for i := range dark {
		dark[i] = float32(rng.Uint32n(1000)) / 1000
		noise := (float32(rng.Uint32n(1000))/1000 - 0.5) * 0.01
		target[i] = trueK*dark[i] + noise
	}

	s := NewSettingsDefault()
	s.DarkOptimizationWindow = 0
	s.DarkOptimizationLow = 0 // keep every pixel above the dark's median
	result := OptimizeDarkScale(s, target, dark, width, height)

	if result.K < 0 {
		t.Fatalf("dark scale must be non-negative, got %f", result.K)
	}
	if result.Disabled {
		t.Fatal("expected optimization to run with a well-populated synthetic dark")
	}
	if math.Abs(float64(result.K)-trueK) > 0.05 {
		t.Errorf("got dark scale %f, want near %f", result.K, trueK)
	}
}

func TestOptimizeDarkScale_DisablesBelowMinimumSamples(t *testing.T) {
	const width, height = 4, 4
	dark := make([]float32, width*height)
	target := make([]float32, width*height)
	for i := range dark {
		dark[i] = float32(i) / 16
	}

	s := NewSettingsDefault()
	s.DarkOptimizationWindow = 0
	s.DarkOptimizationLow = 1e6 // with a non-zero MAD, puts the threshold above every pixel
	result := OptimizeDarkScale(s, target, dark, width, height)

	if !result.Disabled {
		t.Fatal("expected optimization to disable when fewer than 16 pixels survive thresholding")
	}
	if result.K != 1 {
		t.Errorf("disabled optimization should report k=1, got %f", result.K)
	}
}

func TestCropToWindow_SmallerThanFrameCentersCrop(t *testing.T) {
	width, height := int32(8), int32(8)
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(i)
	}
	wt, _, ww, wh := cropToWindow(data, data, width, height, 4)
	if ww != 4 || wh != 4 {
		t.Fatalf("got window %dx%d, want 4x4", ww, wh)
	}
	// Top-left of the centred 4x4 window on an 8x8 frame starts at (2,2).
	if wt[0] != data[2*int(width)+2] {
		t.Errorf("window not centred: got %f, want %f", wt[0], data[2*int(width)+2])
	}
}

func TestCropToWindow_LargerThanFrameIsNoOp(t *testing.T) {
	width, height := int32(4), int32(4)
	data := make([]float32, width*height)
	wt, _, ww, wh := cropToWindow(data, data, width, height, 1024)
	if ww != width || wh != height {
		t.Fatalf("got %dx%d, want unchanged %dx%d", ww, wh, width, height)
	}
	if len(wt) != len(data) {
		t.Errorf("expected unchanged data slice length")
	}
}
