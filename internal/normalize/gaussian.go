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

import "math"

const sqrt2 = 1.4142135623730951

// reflect maps an out-of-bounds coordinate back into [0,size-1] by
// reflection at the edges.
func reflect(size, x int) int {
	if x < 0 {
		return -x - 1
	}
	if x >= size {
		return 2*size - x - 1
	}
	return x
}

// gaussianDefiniteIntegral is the definite integral of the Gaussian with
// midpoint mu and standard deviation sigma, evaluated at x.
func gaussianDefiniteIntegral(mu, sigma, x float32) float32 {
	return 0.5 * (1 + float32(math.Erf(float64((x-mu)/(sqrt2*sigma)))))
}

// gaussianKernel1D builds a normalized 1-D Gaussian kernel for the given
// standard deviation via symbolic integration, truncating once the tail
// mass drops below 1%.
func gaussianKernel1D(sigma float32) []float32 {
	mu := float32(0)
	acceptOut := float32(0.01)
	radius := 0
	for {
		val := gaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
		if val < acceptOut {
			radius--
			break
		}
		radius++
	}
	width := 2*radius + 1
	kernel := make([]float32, width)

	sum := float32(0)
	lower := gaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius))
	for i := 0; i <= radius; i++ {
		upper := gaussianDefiniteIntegral(mu, sigma, float32(-0.5)-float32(radius)+float32(i+1))
		delta := upper - lower
		kernel[i] = delta
		sum += delta
		lower = upper
	}
	for i := 1; i <= radius; i++ {
		value := kernel[radius-i]
		kernel[radius+i] = value
		sum += value
	}
	factor := 1.0 / sum
	for i := range kernel {
		kernel[i] *= factor
	}
	return kernel
}

func convolve1DX(res, data []float32, width int, kernel []float32) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := float32(0)
			for i := -k; i <= k; i++ {
				x1 := reflect(width, x+i)
				sum += data[y*width+x1] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

func convolve1DY(res, data []float32, width int, kernel []float32) {
	height := len(data) / width
	k := len(kernel) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum := float32(0)
			for i := -k; i <= k; i++ {
				y1 := reflect(height, y+i)
				sum += data[y1*width+x] * kernel[i+k]
			}
			res[y*width+x] = sum
		}
	}
}

// gaussianBlur separably convolves data (a width x height image) with a
// Gaussian of the given radius, treated as its standard deviation.
func gaussianBlur(data []float32, width int, radius float32) []float32 {
	if radius <= 0 {
		return append([]float32(nil), data...)
	}
	kernel := gaussianKernel1D(radius)
	tmp := make([]float32, len(data))
	res := make([]float32, len(data))
	convolve1DX(tmp, data, width, kernel)
	convolve1DY(res, tmp, width, kernel)
	return res
}
