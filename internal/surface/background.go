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

// Package surface models smooth 2-D functions fitted to sparse or gridded
// scatter data: the background model used by the normalization engine,
// and the bicubic spline that interpolates A/B coefficient grids at
// fractional grid coordinates.
package surface

import (
	"fmt"
	"math"

	"github.com/mlnoga/starcal/internal/qsort"
	"github.com/mlnoga/starcal/internal/starerr"
)

// minTiles is the minimum number of surviving tiles below which background
// sampling fails with InsufficientData.
const minTiles = 16

// gridSteps is the resolution of the coarse regular evaluation grid the
// Shepard interpolant is precomputed onto.
const gridSteps = 16

// clipLow and clipHigh bound the pixel range considered when computing a
// tile's median, excluding saturated and below-zero samples.
const clipLow, clipHigh = 0, 0.92

// shepardRadius is the interpolation radius in normalized image coordinates,
// i.e. a fraction of the image's larger dimension.
const shepardRadius = 0.1

// outlierSigma is the clipping multiple applied to the tile-median MAD,
// unscaled (no Gaussian-equivalent conversion).
const outlierSigma = 3 * 1.5

// Background is a gridded Shepard-interpolated background model: a sparse
// scatter of robust per-tile medians feeding a smooth surface evaluator.
type Background struct {
	Width, Height int32

	samples []sample // accepted tile medians, in normalized image coordinates

	coarse    []float32 // gridSteps x gridSteps precomputed evaluation grid
	coarseDim int32

	OutlierTiles int // tile medians rejected as outliers
	TotalTiles   int // tiles considered, before rejection
}

type sample struct {
	u, v float32 // normalized coordinates in [0,1]
	val  float32
}

// NewBackground partitions data (a width x height image) into delta x delta
// tiles, takes the clipped median of each (ignoring zero pixels), rejects
// tile medians more than outlierSigma MADs from the median of medians, and
// fits a Shepard interpolant with radius shepardRadius over what survives.
// It fails with starerr.InsufficientData when fewer than minTiles tiles
// survive.
func NewBackground(data []float32, width, height, delta int32) (*Background, error) {
	if delta <= 0 {
		delta = 40
	}
	tilesX := (width + delta - 1) / delta
	tilesY := (height + delta - 1) / delta

	type tile struct {
		cx, cy float32 // tile center, pixel coordinates
		median float32
	}
	tiles := make([]tile, 0, tilesX*tilesY)

	buf := make([]float32, 0, delta*delta)
	for ty := int32(0); ty < tilesY; ty++ {
		y0 := ty * delta
		y1 := y0 + delta
		if y1 > height {
			y1 = height
		}
		for tx := int32(0); tx < tilesX; tx++ {
			x0 := tx * delta
			x1 := x0 + delta
			if x1 > width {
				x1 = width
			}

			buf = buf[:0]
			for y := y0; y < y1; y++ {
				row := y * width
				for x := x0; x < x1; x++ {
					v := data[row+x]
					if v <= 0 || v < clipLow || v > clipHigh {
						continue
					}
					buf = append(buf, v)
				}
			}
			if len(buf) == 0 {
				continue
			}
			sorted := append([]float32(nil), buf...)
			med := qsort.QSelectMedianFloat32(sorted)
			tiles = append(tiles, tile{
				cx:     float32(x0+x1) * 0.5,
				cy:     float32(y0+y1) * 0.5,
				median: med,
			})
		}
	}

	if len(tiles) == 0 {
		return nil, starerr.New(starerr.InsufficientData, "background sampling: no non-zero tiles in %dx%d image", width, height)
	}

	medians := make([]float32, len(tiles))
	for i, t := range tiles {
		medians[i] = t.median
	}
	medOfMedians := qsort.QSelectMedianFloat32(append([]float32(nil), medians...))
	absDev := make([]float32, len(medians))
	for i, m := range medians {
		absDev[i] = float32(math.Abs(float64(m - medOfMedians)))
	}
	mad := qsort.QSelectMedianFloat32(absDev)
	lo, hi := medOfMedians-outlierSigma*mad, medOfMedians+outlierSigma*mad

	samples := make([]sample, 0, len(tiles))
	for _, t := range tiles {
		if t.median < lo || t.median > hi {
			continue
		}
		samples = append(samples, sample{
			u:   t.cx / float32(width),
			v:   t.cy / float32(height),
			val: t.median,
		})
	}

	if len(samples) < minTiles {
		return nil, starerr.Wrap(starerr.InsufficientData, nil,
			"background sampling: %d tiles survived, need at least %d", len(samples), minTiles)
	}

	b := &Background{
		Width:        width,
		Height:       height,
		samples:      samples,
		coarseDim:    gridSteps,
		OutlierTiles: len(tiles) - len(samples),
		TotalTiles:   len(tiles),
	}
	b.precomputeCoarseGrid()
	return b, nil
}

// shepardEval evaluates the modified Shepard interpolant at normalized
// coordinates (u,v), following Franke & Nielson's local weighting: points
// within shepardRadius contribute weight ((R-d)/(R*d))^2, points beyond it
// contribute nothing. Falls back to the nearest sample when none are within
// radius.
func (b *Background) shepardEval(u, v float32) float32 {
	var weightSum, valueSum float64
	var nearestVal float32
	nearestDist := float32(math.MaxFloat32)

	for _, s := range b.samples {
		du, dv := u-s.u, v-s.v
		d := float32(math.Sqrt(float64(du*du + dv*dv)))
		if d < nearestDist {
			nearestDist = d
			nearestVal = s.val
		}
		if d < 1e-9 {
			return s.val
		}
		if d >= shepardRadius {
			continue
		}
		w := (shepardRadius - d) / (shepardRadius * d)
		w *= w
		weightSum += float64(w)
		valueSum += float64(w) * float64(s.val)
	}

	if weightSum == 0 {
		return nearestVal
	}
	return float32(valueSum / weightSum)
}

func (b *Background) precomputeCoarseGrid() {
	n := int(b.coarseDim)
	b.coarse = make([]float32, n*n)
	for j := 0; j < n; j++ {
		v := float32(j) / float32(n-1)
		for i := 0; i < n; i++ {
			u := float32(i) / float32(n-1)
			b.coarse[j*n+i] = b.shepardEval(u, v)
		}
	}
}

// At returns the bilinearly interpolated background value at pixel
// coordinates (x,y), queried against the precomputed coarse grid.
func (b *Background) At(x, y int32) float32 {
	n := b.coarseDim
	u := float32(x) / float32(b.Width-1) * float32(n-1)
	v := float32(y) / float32(b.Height-1) * float32(n-1)

	xl := int32(u)
	yl := int32(v)
	if xl >= n-1 {
		xl = n - 2
	}
	if yl >= n-1 {
		yl = n - 2
	}
	if xl < 0 {
		xl = 0
	}
	if yl < 0 {
		yl = 0
	}
	xr, yr := u-float32(xl), v-float32(yl)

	c00 := b.coarse[yl*n+xl]
	c10 := b.coarse[yl*n+xl+1]
	c01 := b.coarse[(yl+1)*n+xl]
	c11 := b.coarse[(yl+1)*n+xl+1]

	top := c00*(1-xr) + c10*xr
	bot := c01*(1-xr) + c11*xr
	return top*(1-yr) + bot*yr
}

// Render evaluates the background model over the full image resolution.
func (b *Background) Render() []float32 {
	dest := make([]float32, int(b.Width)*int(b.Height))
	for y := int32(0); y < b.Height; y++ {
		row := y * b.Width
		for x := int32(0); x < b.Width; x++ {
			dest[row+x] = b.At(x, y)
		}
	}
	return dest
}

// Subtract removes the rendered background from dest in place.
func (b *Background) Subtract(dest []float32) error {
	if int(b.Width)*int(b.Height) != len(dest) {
		return fmt.Errorf("background size %dx%d does not match destination size %d", b.Width, b.Height, len(dest))
	}
	for y := int32(0); y < b.Height; y++ {
		row := y * b.Width
		for x := int32(0); x < b.Width; x++ {
			dest[row+x] -= b.At(x, y)
		}
	}
	return nil
}

// SubstituteZeros replaces every non-positive sample in dest with the local
// background value from the model, the "initial background substitution"
// step shared by the normalization engine's reference and target channels.
func (b *Background) SubstituteZeros(dest []float32) {
	for y := int32(0); y < b.Height; y++ {
		row := y * b.Width
		for x := int32(0); x < b.Width; x++ {
			if dest[row+x] <= 0 {
				dest[row+x] = b.At(x, y)
			}
		}
	}
}
