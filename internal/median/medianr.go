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

package median

import "github.com/mlnoga/starcal/internal/qsort"

// FilterSquare applies a windowSize x windowSize median filter to data
// (a width x height image), replicating edge pixels at the boundary.
// windowSize must be odd; generalizes medianFilter3x3PureGo to arbitrary
// window sizes for the multiscale median transform's growing scales.
func FilterSquare(data []float32, width, height, windowSize int32) []float32 {
	if windowSize <= 1 {
		return append([]float32(nil), data...)
	}
	half := windowSize / 2
	out := make([]float32, len(data))
	buf := make([]float32, windowSize*windowSize)

	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			n := 0
			for dy := -half; dy <= half; dy++ {
				yy := clampCoord(y+dy, height)
				row := yy * width
				for dx := -half; dx <= half; dx++ {
					xx := clampCoord(x+dx, width)
					buf[n] = data[row+xx]
					n++
				}
			}
			out[y*width+x] = qsort.QSelectMedianFloat32(buf[:n])
		}
	}
	return out
}

// FilterCircular applies a median filter over a circular neighborhood of
// the given radius, excluding corner pixels outside the disc -- the
// circular variant used where a square window would bias oriented
// structures.
func FilterCircular(data []float32, width, height, radius int32) []float32 {
	if radius <= 0 {
		return append([]float32(nil), data...)
	}
	out := make([]float32, len(data))
	buf := make([]float32, 0, (2*radius+1)*(2*radius+1))
	radiusSq := radius * radius

	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			buf = buf[:0]
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if dx*dx+dy*dy > radiusSq {
						continue
					}
					yy := clampCoord(y+dy, height)
					xx := clampCoord(x+dx, width)
					buf = append(buf, data[yy*width+xx])
				}
			}
			out[y*width+x] = qsort.QSelectMedianFloat32(buf)
		}
	}
	return out
}

func clampCoord(v, limit int32) int32 {
	if v < 0 {
		return 0
	}
	if v >= limit {
		return limit - 1
	}
	return v
}
