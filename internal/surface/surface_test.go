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

package surface

import "testing"

func TestNewBicubicSpline_ReproducesGridPointsExactly(t *testing.T) {
	const nx, ny = 4, 4
	values := make([]float32, nx*ny)
	for i := range values {
		values[i] = float32(i) * 0.5
	}
	s := NewBicubicSpline(values, nx, ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			got := s.Eval(float64(i), float64(j))
			want := values[j*nx+i]
			if diff := got - want; diff > 1e-3 || diff < -1e-3 {
				t.Errorf("(%d,%d): got %f, want %f", i, j, got, want)
			}
		}
	}
}

func TestNewBicubicSpline_ClampsOutOfRangeCoordinates(t *testing.T) {
	values := []float32{1, 2, 3, 4}
	s := NewBicubicSpline(values, 2, 2)
	inBounds := s.Eval(0, 0)
	clamped := s.Eval(-5, -5)
	if clamped != inBounds {
		t.Errorf("got %f, want %f (clamped to (0,0))", clamped, inBounds)
	}
}

func TestNewBackground_ConstantFrameYieldsConstantModel(t *testing.T) {
	const width, height = 128, 128
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 0.3
	}
	bg, err := NewBackground(data, width, height, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := bg.At(width/2, height/2)
	if diff := v - 0.3; diff > 1e-3 || diff < -1e-3 {
		t.Errorf("got %f, want 0.3", v)
	}
}

func TestNewBackground_InsufficientTilesFails(t *testing.T) {
	const width, height = 8, 8
	data := make([]float32, width*height)
	if _, err := NewBackground(data, width, height, 32); err == nil {
		t.Fatal("expected an insufficient-data error for a too-small grid")
	}
}
