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

	"gonum.org/v1/gonum/optimize"

	"github.com/mlnoga/starcal/internal/multiscale"
	"github.com/mlnoga/starcal/internal/qsort"
)

const (
	goldenRatio  = 1.618034
	goldenC      = 1 - 1/goldenRatio
	bracketTiny  = 1e-20
	bracketLimit = 10.0
	sectionTol   = 5e-4
	noCorrelationThreshold = 0.005
)

// objective returns the k-sigma noise estimate of target-k*dark's first
// starlet detail layer, the shared criterion for both the bracket and
// golden-section phases of dark-scale optimization.
func objective(target, dark []float32, width, height int32, k float64) float64 {
	diff := make([]float32, len(target))
	kf := float32(k)
	for i := range target {
		diff[i] = target[i] - kf*dark[i]
	}
	return float64(multiscale.KSigmaNoise(diff, width, height).Sigma)
}

// bracketMinimum implements the classic Numerical-Recipes-style mnbrak:
// starting from (a,b)=(0.5,2.0), it walks downhill, expanding by the
// golden ratio and refining with parabolic extrapolation (limited to
// b+10*(c-b)) until f(b) is bracketed between f(a) and f(c).
func bracketMinimum(f func(float64) float64) (a, b, c, fa, fb, fc float64) {
	a, b = 0.5, 2.0
	fa, fb = f(a), f(b)
	if fb > fa {
		a, b = b, a
		fa, fb = fb, fa
	}
	c = b + goldenRatio*(b-a)
	fc = f(c)

	for fb > fc {
		r := (b - a) * (fb - fc)
		q := (b - c) * (fb - fa)
		denom := q - r
		if math.Abs(denom) < bracketTiny {
			denom = bracketTiny
		}
		u := b - ((b-c)*q-(b-a)*r)/(2*denom)
		ulim := b + bracketLimit*(c-b)

		var fu float64
		switch {
		case (b-u)*(u-c) > 0:
			fu = f(u)
			if fu < fc {
				a, fa = b, fb
				b, fb = u, fu
				return a, b, c, fa, fb, fc
			} else if fu > fb {
				c, fc = u, fu
				return a, b, c, fa, fb, fc
			}
			u = c + goldenRatio*(c-b)
			fu = f(u)
		case (c-u)*(u-ulim) > 0:
			fu = f(u)
			if fu < fc {
				b, c = c, u
				fb, fc = fc, fu
				u = c + goldenRatio*(c-b)
				fu = f(u)
			}
		case (u-ulim)*(ulim-c) >= 0:
			u = ulim
			fu = f(u)
		default:
			u = c + goldenRatio*(c-b)
			fu = f(u)
		}
		a, b, c = b, c, u
		fa, fb, fc = fb, fc, fu
	}
	return a, b, c, fa, fb, fc
}

// goldenSectionSearch narrows the bracket (a,b,c) until the interval width
// falls below sectionTol, returning the minimizer.
func goldenSectionSearch(f func(float64) float64, a, b, c float64) float64 {
	x0, x3 := a, c
	var x1, x2 float64
	if math.Abs(c-b) > math.Abs(b-a) {
		x1 = b
		x2 = b + goldenC*(c-b)
	} else {
		x2 = b
		x1 = b - goldenC*(b-a)
	}
	f1, f2 := f(x1), f(x2)

	for math.Abs(x3-x0) > sectionTol {
		if f2 < f1 {
			x0, x1, x2 = x1, x2, goldenRatio1(x1, x2, x3)
			f1 = f2
			f2 = f(x2)
		} else {
			x3, x2, x1 = x2, x1, goldenRatio2(x0, x1, x2)
			f2 = f1
			f1 = f(x1)
		}
	}
	if f1 < f2 {
		return x1
	}
	return x2
}

func goldenRatio1(x1, x2, x3 float64) float64 { return goldenC*x2 + (1-goldenC)*x3 }
func goldenRatio2(x0, x1, x2 float64) float64 { return goldenC*x1 + (1-goldenC)*x0 }

// DarkScaleResult is the outcome of optimizing one channel's dark-scale
// factor.
type DarkScaleResult struct {
	K             float32
	Disabled      bool
	NoCorrelation bool
}

// OptimizeDarkScale finds the per-channel scale k minimizing the k-sigma
// noise of target-k*dark, excluding dark pixels below
// median+lowSigma*1.4826*MAD (computed over the full frame) from the
// objective's support, and disabling optimization (k=1) if fewer than 16
// pixels of the full frame survive thresholding. Only once that full-frame
// decision is made does it crop target and dark to a centred square window
// when s.DarkOptimizationWindow is set and smaller than the frame.
func OptimizeDarkScale(s *Settings, target, dark []float32, width, height int32) DarkScaleResult {
	threshold, fullCount := thresholdDark(dark, s.DarkOptimizationLow)
	if fullCount < 16 {
		return DarkScaleResult{K: 1, Disabled: true}
	}

	wt, wd, ww, wh := cropToWindow(target, dark, width, height, s.DarkOptimizationWindow)
	kept := filterByThreshold(wt, wd, threshold)
	keptTarget, keptDark := kept.target, kept.dark

	f := func(k float64) float64 {
		return objective(keptTarget, keptDark, kept.width, kept.height, k)
	}

	a, b, c, _, _, _ := bracketMinimum(f)
	lo, hi := a, c
	if lo > hi {
		lo, hi = hi, lo
	}
	k := goldenSectionSearch(f, a, b, c)

	// Polish with a Nelder-Mead line search inside the bracket, the same
	// gonum/optimize pattern used for frame alignment.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			kk := x[0]
			if kk < lo || kk > hi {
				return math.Inf(1)
			}
			return f(kk)
		},
	}
	if result, err := optimize.Minimize(problem, []float64{k}, nil, &optimize.NelderMead{}); err == nil && result.F < f(k) {
		k = result.X[0]
	}

	if k < 0 {
		k = 0
	}
	_ = ww
	_ = wh
	return DarkScaleResult{
		K:             float32(k),
		NoCorrelation: k < noCorrelationThreshold,
	}
}

func cropToWindow(target, dark []float32, width, height, window int32) (wt, wd []float32, ww, wh int32) {
	if window <= 0 || (window >= width && window >= height) {
		return target, dark, width, height
	}
	ww, wh = window, window
	if ww > width {
		ww = width
	}
	if wh > height {
		wh = height
	}
	x0 := (width - ww) / 2
	y0 := (height - wh) / 2
	wt = make([]float32, ww*wh)
	wd = make([]float32, ww*wh)
	for y := int32(0); y < wh; y++ {
		srcRow := (y0 + y) * width
		dstRow := y * ww
		copy(wt[dstRow:dstRow+ww], target[srcRow+x0:srcRow+x0+ww])
		copy(wd[dstRow:dstRow+ww], dark[srcRow+x0:srcRow+x0+ww])
	}
	return wt, wd, ww, wh
}

type thresholded struct {
	target, dark  []float32
	width, height int32
}

// thresholdDark computes median+lowSigma*1.4826*MAD over the full dark
// frame and reports how many of its samples are at or above that
// threshold, the statistic the disable-below-16-survivors decision is
// made from before any window cropping happens.
func thresholdDark(dark []float32, lowSigma float32) (threshold float32, keptCount int) {
	sorted := append([]float32(nil), dark...)
	median := qsort.QSelectMedianFloat32(sorted)

	absDev := make([]float32, len(dark))
	for i, v := range dark {
		absDev[i] = float32(math.Abs(float64(v - median)))
	}
	mad := qsort.QSelectMedianFloat32(absDev)
	threshold = median + lowSigma*1.4826*mad

	for _, v := range dark {
		if v >= threshold {
			keptCount++
		}
	}
	return threshold, keptCount
}

// filterByThreshold keeps pixels whose dark value is at or above threshold,
// compacting both planes -- sufficient for the k-sigma objective, which
// only cares about the surviving sample distribution, not spatial layout.
func filterByThreshold(target, dark []float32, threshold float32) thresholded {
	var keptTarget, keptDark []float32
	for i, v := range dark {
		if v >= threshold {
			keptTarget = append(keptTarget, target[i])
			keptDark = append(keptDark, v)
		}
	}
	return thresholded{target: keptTarget, dark: keptDark, width: int32(len(keptTarget)), height: 1}
}
