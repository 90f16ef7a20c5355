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

// Package defectmap replaces the pixels a defect mask marks as bad with an
// estimate drawn from their surviving neighborhood, for the DefectMap CLI
// command.
package defectmap

import (
	"math"

	"github.com/mlnoga/starcal/internal/median"
	"github.com/mlnoga/starcal/internal/qsort"
	"github.com/mlnoga/starcal/internal/starerr"
)

// Interpolation selects the statistic used to estimate a defective pixel.
type Interpolation int

const (
	Mean Interpolation = iota
	Median
	Minimum
	Maximum
	Gaussian
)

// Shape selects the neighborhood a defective pixel is estimated from.
type Shape int

const (
	Square Shape = iota
	Circular
	Horizontal
	Vertical
)

// Settings configures one defect-map application.
type Settings struct {
	Interpolation Interpolation
	Shape         Shape
	Radius        int32 // neighborhood half-width/radius, in pixels
	CFA           bool  // restrict neighborhoods to same-parity pixels of a Bayer mosaic
}

// Apply replaces every pixel in data for which mask is non-zero with an
// estimate drawn from its neighborhood per s, leaving data and mask
// unmodified. mask and data must share data's dimensions.
func Apply(s *Settings, data, mask []float32, width, height int32) ([]float32, error) {
	if len(data) != len(mask) {
		return nil, starerr.New(starerr.GeometryMismatch, "defectmap: mask and data dimensions disagree")
	}
	if s.Radius < 1 {
		return nil, starerr.New(starerr.ConfigurationError, "defectmap: radius must be >= 1")
	}

	out := append([]float32(nil), data...)
	offsets := neighborOffsets(s.Shape, s.Radius)

	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			idx := y*width + x
			if mask[idx] == 0 {
				continue
			}
			out[idx] = estimate(s, data, mask, width, height, x, y, offsets)
		}
	}
	return out, nil
}

type offset struct{ dx, dy int32 }

// neighborOffsets enumerates the relative positions sampled for one
// defective pixel, before any CFA parity filtering.
func neighborOffsets(shape Shape, radius int32) []offset {
	var offsets []offset
	switch shape {
	case Horizontal:
		for dx := -radius; dx <= radius; dx++ {
			if dx != 0 {
				offsets = append(offsets, offset{dx, 0})
			}
		}
	case Vertical:
		for dy := -radius; dy <= radius; dy++ {
			if dy != 0 {
				offsets = append(offsets, offset{0, dy})
			}
		}
	case Circular:
		radiusSq := radius * radius
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if dx*dx+dy*dy <= radiusSq {
					offsets = append(offsets, offset{dx, dy})
				}
			}
		}
	default: // Square
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx != 0 || dy != 0 {
					offsets = append(offsets, offset{dx, dy})
				}
			}
		}
	}
	return offsets
}

// estimate computes the replacement value for the defective pixel at
// (x, y), sampling only non-masked, in-bounds neighbors, and (in CFA mode)
// only neighbors sharing (x, y)'s Bayer parity.
func estimate(s *Settings, data, mask []float32, width, height, x, y int32, offsets []offset) float32 {
	samples := make([]float32, 0, len(offsets))
	weights := make([]float32, 0, len(offsets))
	sigma := float64(s.Radius) / 2
	if sigma <= 0 {
		sigma = 1
	}

	for _, o := range offsets {
		xx, yy := x+o.dx, y+o.dy
		if xx < 0 || xx >= width || yy < 0 || yy >= height {
			continue
		}
		if s.CFA && (o.dx%2 != 0 || o.dy%2 != 0) {
			continue
		}
		idx := yy*width + xx
		if mask[idx] != 0 {
			continue
		}
		samples = append(samples, data[idx])
		if s.Interpolation == Gaussian {
			weights = append(weights, gaussianWeight(o.dx, o.dy, sigma))
		}
	}
	if len(samples) == 0 {
		return data[y*width+x]
	}

	switch s.Interpolation {
	case Median:
		return qsort.QSelectMedianFloat32(append([]float32(nil), samples...))
	case Minimum:
		return minOf(samples)
	case Maximum:
		return maxOf(samples)
	case Gaussian:
		return weightedMean(samples, weights)
	default: // Mean
		return plainMean(samples)
	}
}

func gaussianWeight(dx, dy int32, sigma float64) float32 {
	d2 := float64(dx*dx + dy*dy)
	return float32(math.Exp(-d2 / (2 * sigma * sigma)))
}

func plainMean(samples []float32) float32 {
	var sum float32
	for _, v := range samples {
		sum += v
	}
	return sum / float32(len(samples))
}

func weightedMean(samples, weights []float32) float32 {
	var sum, wsum float32
	for i, v := range samples {
		sum += v * weights[i]
		wsum += weights[i]
	}
	if wsum == 0 {
		return plainMean(samples)
	}
	return sum / wsum
}

func minOf(samples []float32) float32 {
	m := samples[0]
	for _, v := range samples[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(samples []float32) float32 {
	m := samples[0]
	for _, v := range samples[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// FilterWhole applies a plain neighborhood filter (ignoring any defect
// mask) to an entire frame, the way DefectMap's square/circular median
// options behave when no CFA parity restriction or masking applies --
// delegates to the shared median package the multiscale transforms use.
func FilterWhole(data []float32, width, height, radius int32, shape Shape) []float32 {
	if shape == Circular {
		return median.FilterCircular(data, width, height, radius)
	}
	return median.FilterSquare(data, width, height, 2*radius+1)
}
