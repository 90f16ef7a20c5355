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

	"github.com/mlnoga/starcal/internal/median"
	"github.com/mlnoga/starcal/internal/multiscale"
	"github.com/mlnoga/starcal/internal/starerr"
	"github.com/mlnoga/starcal/internal/surface"
)

// Field is one channel's affine normalization field: per-pixel scale A and
// offset B sampled on a coarse grid, to be queried through a bicubic
// spline at the caller's resolution.
type Field struct {
	A, B   []float32
	Width  int32 // coarse grid dimensions
	Height int32
}

// Result is the outcome of BuildNormalization: one Field per channel, plus
// the coarse grid's spline evaluators for direct sampling.
type Result struct {
	Fields      []Field
	ASpline     []*surface.BicubicSpline
	BSpline     []*surface.BicubicSpline
	RefBackgrounds, TargetBackgrounds [][]float32 // per channel, full resolution
}

// A returns the per-channel A (scale) field evaluated at fractional
// coarse-grid coordinates (x, y), clamped to the grid; reference pixel
// coordinates are not rescaled to the grid.
func (r *Result) A(channel int, x, y float64) float32 {
	return r.ASpline[channel].Eval(x, y)
}

// B returns the per-channel B (offset) field evaluated at fractional
// coarse-grid coordinates (x, y), clamped to the grid; reference pixel
// coordinates are not rescaled to the grid.
func (r *Result) B(channel int, x, y float64) float32 {
	return r.BSpline[channel].Eval(x, y)
}

const minDimension = 256

// BuildNormalization computes the (A, B) affine normalization fields
// mapping target onto reference, per channel, following the engine's
// eight-step algorithm: zero-exclusion masking, background substitution,
// optional hot-pixel removal and noise reduction, outlier rejection,
// background re-estimation at the normalization scale, a pointwise A/B
// solve, and a final smoothing/downsampling pass.
func BuildNormalization(s *Settings, reference, target []float32, width, height, channels int32) (*Result, error) {
	if len(reference) != len(target) {
		return nil, starerr.New(starerr.GeometryMismatch, "reference and target sample counts differ: %d vs %d", len(reference), len(target))
	}
	if int64(width)*int64(height)*int64(channels) != int64(len(reference)) {
		return nil, starerr.New(starerr.GeometryMismatch, "reference size does not match %dx%dx%d", width, height, channels)
	}
	minSide := width
	if height < minSide {
		minSide = height
	}
	required := int32(minDimension)
	if 2*s.Scale > required {
		required = 2 * s.Scale
	}
	if minSide < required {
		return nil, starerr.New(starerr.InsufficientData, "frame %dx%d is smaller than the minimum %d for scale %d", width, height, required, s.Scale)
	}

	planeSize := width * height
	result := &Result{
		Fields:  make([]Field, channels),
		ASpline: make([]*surface.BicubicSpline, channels),
		BSpline: make([]*surface.BicubicSpline, channels),
		RefBackgrounds:    make([][]float32, channels),
		TargetBackgrounds: make([][]float32, channels),
	}

	for c := int32(0); c < channels; c++ {
		ref := append([]float32(nil), reference[c*planeSize:(c+1)*planeSize]...)
		tgt := append([]float32(nil), target[c*planeSize:(c+1)*planeSize]...)

		// Step 1: zero-exclusion masking, symmetric across both frames.
		for i := range ref {
			if ref[i] < zeroExclusionThreshold || tgt[i] < zeroExclusionThreshold {
				ref[i] = 0
				tgt[i] = 0
			}
		}

		// Step 2: initial background substitution.
		bgRef, err := surface.NewBackground(ref, width, height, backgroundTileSize)
		if err != nil {
			return nil, err
		}
		bgTgt, err := surface.NewBackground(tgt, width, height, backgroundTileSize)
		if err != nil {
			return nil, err
		}
		bgRef.SubstituteZeros(ref)
		bgTgt.SubstituteZeros(tgt)

		// Step 3: optional hot-pixel removal.
		if s.HotPixelFilterRadius == 1 {
			ref = median.FilterSquare(ref, width, height, 3)
			tgt = median.FilterSquare(tgt, width, height, 3)
		} else if s.HotPixelFilterRadius > 1 {
			ref = median.FilterCircular(ref, width, height, s.HotPixelFilterRadius)
			tgt = median.FilterCircular(tgt, width, height, s.HotPixelFilterRadius)
		}

		// Step 4: optional noise reduction.
		if s.NoiseReductionFilterRadius > 0 {
			ref = gaussianBlur(ref, int(width), float32(s.NoiseReductionFilterRadius))
			tgt = gaussianBlur(tgt, int(width), float32(s.NoiseReductionFilterRadius))
		}

		// Step 5: outlier rejection, dilation, and re-substitution.
		if s.RejectOutliers {
			refBgPlane := bgRef.Render()
			tgtBgPlane := bgTgt.Render()
			refOut, tgtOut := classifyOutliers(ref, tgt, refBgPlane, tgtBgPlane, s.BackgroundLimit, s.ReferenceThreshold, s.TargetThreshold)
			refOut = dilate3x3(refOut, width, height)
			tgtOut = dilate3x3(tgtOut, width, height)
			for i := range ref {
				if refOut[i] {
					ref[i] = 0
				}
				if tgtOut[i] {
					tgt[i] = 0
				}
			}
			bgRef.SubstituteZeros(ref)
			bgTgt.SubstituteZeros(tgt)
		}

		result.RefBackgrounds[c] = bgRef.Render()
		result.TargetBackgrounds[c] = bgTgt.Render()

		// Step 6: background re-estimation at the normalization scale.
		scaleFactor := int32(math.Max(1, math.Round(float64(s.Scale)/32)))
		rb := largeScaleResidual(ref, width, height, scaleFactor)
		tb := largeScaleResidual(tgt, width, height, scaleFactor)

		// Step 7: pointwise A/B solve.
		a := make([]float32, len(ref))
		b := make([]float32, len(ref))
		for i := range ref {
			b[i] = rb[i] - tb[i]
			if s.NoScale {
				a[i] = 1
			} else if tgt[i] != 0 {
				a[i] = (ref[i] - b[i]) / tgt[i]
			} else {
				a[i] = 1
			}
		}

		// Step 8: smooth A, then downsample both to the coarse grid.
		a = median.FilterSquare(a, width, height, 3)

		ratio := 2.0 / float64(s.Scale)
		coarseW := int32(math.Max(1, math.Round(float64(width)*ratio)))
		coarseH := int32(math.Max(1, math.Round(float64(height)*ratio)))
		coarseA := downsampleAverage(a, width, height, coarseW, coarseH)
		coarseB := downsampleAverage(b, width, height, coarseW, coarseH)

		result.Fields[c] = Field{A: coarseA, B: coarseB, Width: coarseW, Height: coarseH}
		result.ASpline[c] = surface.NewBicubicSpline(coarseA, int(coarseW), int(coarseH))
		result.BSpline[c] = surface.NewBicubicSpline(coarseB, int(coarseW), int(coarseH))
	}

	return result, nil
}

// largeScaleResidual extracts the background-scale component of data via
// the multiscale median transform at 16 layers, optionally box-downsampling
// by scaleFactor first and upsampling the residual back via bicubic spline
// to keep the transform cheap at large normalization scales.
func largeScaleResidual(data []float32, width, height, scaleFactor int32) []float32 {
	const layers = 16
	if scaleFactor <= 1 {
		return multiscale.ResidualOnly(data, width, height, layers)
	}

	dw := maxInt32(1, width/scaleFactor)
	dh := maxInt32(1, height/scaleFactor)
	down := downsampleAverage(data, width, height, dw, dh)
	residual := multiscale.ResidualOnly(down, dw, dh, layers)

	spline := surface.NewBicubicSpline(residual, int(dw), int(dh))
	out := make([]float32, width*height)
	for y := int32(0); y < height; y++ {
		gy := float64(y) / float64(height-1) * float64(dh-1)
		for x := int32(0); x < width; x++ {
			gx := float64(x) / float64(width-1) * float64(dw-1)
			out[y*width+x] = spline.Eval(gx, gy)
		}
	}
	return out
}

// downsampleAverage box-averages data from width x height down to
// outW x outH tiles.
func downsampleAverage(data []float32, width, height, outW, outH int32) []float32 {
	out := make([]float32, outW*outH)
	for oy := int32(0); oy < outH; oy++ {
		y0 := oy * height / outH
		y1 := (oy + 1) * height / outH
		if y1 <= y0 {
			y1 = y0 + 1
		}
		if y1 > height {
			y1 = height
		}
		for ox := int32(0); ox < outW; ox++ {
			x0 := ox * width / outW
			x1 := (ox + 1) * width / outW
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if x1 > width {
				x1 = width
			}
			var sum float64
			count := 0
			for y := y0; y < y1; y++ {
				row := y * width
				for x := x0; x < x1; x++ {
					sum += float64(data[row+x])
					count++
				}
			}
			if count > 0 {
				out[oy*outW+ox] = float32(sum / float64(count))
			}
		}
	}
	return out
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
