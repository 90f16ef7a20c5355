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

package superbias

import (
	"math"
	"testing"

	"github.com/mlnoga/starcal/internal/starerr"
)

func TestTrimmedMean_ZeroFactorIsPlainMean(t *testing.T) {
	samples := []float32{1, 2, 3, 4, 5}
	got := trimmedMean(samples, 0)
	if got != 3 {
		t.Errorf("got %f, want 3", got)
	}
}

func TestTrimmedMean_DropsExtremes(t *testing.T) {
	samples := []float32{-100, 1, 2, 3, 100}
	got := trimmedMean(samples, 0.2)
	if math.Abs(float64(got-2)) > 1e-6 {
		t.Errorf("got %f, want 2 after trimming one sample from each end", got)
	}
}

func TestGenerate_RejectsInvalidLayerCount(t *testing.T) {
	s := NewSettingsDefault()
	s.MultiscaleLayers = 0
	_, err := Generate(s, make([]float32, 16), 4, 4, 1)
	if !starerr.Is(err, starerr.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGenerate_RejectsInvalidTrimmingFactor(t *testing.T) {
	s := NewSettingsDefault()
	s.TrimmingFactor = 0.5
	_, err := Generate(s, make([]float32, 16), 4, 4, 1)
	if !starerr.Is(err, starerr.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGenerate_RejectsEmptyInput(t *testing.T) {
	s := NewSettingsDefault()
	_, err := Generate(s, nil, 0, 0, 1)
	if !starerr.Is(err, starerr.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGenerate_RejectsInvalidChannelCount(t *testing.T) {
	s := NewSettingsDefault()
	_, err := Generate(s, make([]float32, 16), 4, 4, 0)
	if !starerr.Is(err, starerr.ConfigurationError) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestGenerate_ZeroTrimmingIsColumnRowMean(t *testing.T) {
	const width, height = 4, 4
	bias := []float32{
		0.1, 0.2, 0.3, 0.4,
		0.1, 0.2, 0.3, 0.4,
		0.1, 0.2, 0.3, 0.4,
		0.1, 0.2, 0.3, 0.4,
	}

	s := NewSettingsDefault()
	s.Columns = true
	s.Rows = false
	s.TrimmingFactor = 0
	s.ExcludeLargeScale = false
	s.MultiscaleLayers = 1

	outputs, err := Generate(s, bias, width, height, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outputs) != 1 || outputs[0].Orientation != Vertical {
		t.Fatalf("expected one vertical output, got %+v", outputs)
	}
}

func TestGenerate_BothOrientationsRequested(t *testing.T) {
	const width, height = 8, 8
	bias := make([]float32, width*height)
	for i := range bias {
		bias[i] = float32(i%7) / 10
	}

	s := NewSettingsDefault()
	s.Columns = true
	s.Rows = true

	outputs, err := Generate(s, bias, width, height, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs, want 2", len(outputs))
	}
}

// TestGenerate_MultiChannelKeepsChannelsIndependent builds a 2-channel bias
// where channel 0's columns are a reverse ramp of channel 1's, and checks
// that each channel's vertical superbias reports distinct per-column means
// instead of averaging across channels.
func TestGenerate_MultiChannelKeepsChannelsIndependent(t *testing.T) {
	const width, height, channels = 4, 4, 2
	plane0 := make([]float32, width*height)
	plane1 := make([]float32, width*height)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			plane0[y*width+x] = float32(x) / 10  // columns 0, .1, .2, .3
			plane1[y*width+x] = float32(3-x) / 10 // columns .3, .2, .1, 0
		}
	}
	bias := append(append([]float32(nil), plane0...), plane1...)

	s := NewSettingsDefault()
	s.Columns = true
	s.Rows = false
	s.TrimmingFactor = 0
	s.ExcludeLargeScale = false
	s.MultiscaleLayers = 1

	outputs, err := Generate(s, bias, width, height, channels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("expected one vertical output, got %+v", outputs)
	}

	got := outputs[0].Data
	planeSize := int32(width * height)
	ch0 := got[0:planeSize]
	ch1 := got[planeSize : 2*planeSize]

	if math.Abs(float64(ch0[0]-ch1[3])) > 1e-5 {
		t.Errorf("channel 0 column 0 (%f) should match channel 1 column 3 (%f)", ch0[0], ch1[3])
	}
	if math.Abs(float64(ch0[0]-ch0[3])) < 1e-3 {
		t.Errorf("channel 0's own columns should differ: col0=%f col3=%f", ch0[0], ch0[3])
	}
}
