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

package multiscale

import "github.com/mlnoga/starcal/internal/median"

// MMT is the multiscale median transform: a non-linear analogue of the
// starlet transform that substitutes a median filter for convolution at
// each scale, preserving edges the linear transform would blur.
type MMT struct {
	Width, Height int32
	Details       [][]float32
	Residual      []float32
}

// mmtWindow returns the square median filter window size for layer j,
// growing as 2^(j+1)+1.
func mmtWindow(j int) int32 {
	return int32(1<<uint(j+1)) + 1
}

// DecomposeMMT runs the multiscale median transform on data for the given
// number of layers.
func DecomposeMMT(data []float32, width, height int32, layers int) *MMT {
	approx := append([]float32(nil), data...)
	details := make([][]float32, layers)

	for j := 0; j < layers; j++ {
		smoothed := median.FilterSquare(approx, width, height, mmtWindow(j))
		detail := make([]float32, len(approx))
		for i := range approx {
			detail[i] = approx[i] - smoothed[i]
		}
		details[j] = detail
		approx = smoothed
	}

	return &MMT{Width: width, Height: height, Details: details, Residual: approx}
}

// Reconstruct sums the (possibly zeroed) detail layers back onto the
// residual. Layer j is omitted when keep[j] is false or j >= len(keep);
// a nil keep keeps every layer.
func (m *MMT) Reconstruct(keep []bool) []float32 {
	out := append([]float32(nil), m.Residual...)
	for j, detail := range m.Details {
		if keep != nil && (j >= len(keep) || !keep[j]) {
			continue
		}
		for i, d := range detail {
			out[i] += d
		}
	}
	return out
}

// ResidualOnly decomposes data to `layers` scales and reconstructs keeping
// only the residual, producing the large-scale model used by superbias
// generation.
func ResidualOnly(data []float32, width, height int32, layers int) []float32 {
	return DecomposeMMT(data, width, height, layers).Reconstruct([]bool{})
}
