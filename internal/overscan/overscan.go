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

// Package overscan crops and corrects overscan regions ahead of bias/dark/
// flat calibration.
package overscan

import (
	"github.com/mlnoga/starcal/internal/qsort"
	"github.com/mlnoga/starcal/internal/starerr"
)

// Rectangle is a half-open integer range, x0 <= x1 and y0 <= y1, with
// non-negative coordinates.
type Rectangle struct {
	X0, Y0, X1, Y1 int32
}

// Normal reports whether the rectangle satisfies its invariant.
func (r Rectangle) Normal() bool {
	return r.X0 >= 0 && r.Y0 >= 0 && r.X0 <= r.X1 && r.Y0 <= r.Y1
}

func (r Rectangle) Width() int32  { return r.X1 - r.X0 }
func (r Rectangle) Height() int32 { return r.Y1 - r.Y0 }

func (r Rectangle) equals(o Rectangle) bool {
	return r.X0 == o.X0 && r.Y0 == o.Y0 && r.X1 == o.X1 && r.Y1 == o.Y1
}

// Region is a single overscan correction source, feeding one targetRect.
type Region struct {
	Enabled    bool
	SourceRect Rectangle
	TargetRect Rectangle
}

// Config bundles up to four overscan regions, a global enable flag, and the
// final science-image crop rectangle.
type Config struct {
	Enabled   bool
	Regions   [4]Region
	ImageRect Rectangle
}

// clipLow and clipHigh bound the overscan median's range-clipped statistics.
const clipLow, clipHigh = 0.00002, 0.99998

// Subtract corrects data (channels planes of width*height float32 samples,
// each plane contiguous) in place for every enabled overscan region in cfg,
// grouping regions that share an identical targetRect so their source
// pixels contribute to one correction value per channel, then crops to
// cfg.ImageRect. data is replaced with the cropped result.
func Subtract(data []float32, width, height, channels int32, cfg Config) ([]float32, int32, int32, error) {
	if !cfg.Enabled {
		return cropAll(data, width, height, channels, cfg.ImageRect)
	}

	planeSize := width * height

	// Group enabled regions by identical targetRect.
	type group struct {
		target  Rectangle
		sources []Rectangle
	}
	var groups []group
	for _, r := range cfg.Regions {
		if !r.Enabled {
			continue
		}
		if !r.SourceRect.Normal() || !r.TargetRect.Normal() {
			return nil, 0, 0, starerr.New(starerr.ConfigurationError, "invalid overscan region")
		}
		found := false
		for i := range groups {
			if groups[i].target.equals(r.TargetRect) {
				groups[i].sources = append(groups[i].sources, r.SourceRect)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, group{target: r.TargetRect, sources: []Rectangle{r.SourceRect}})
		}
	}

	for c := int32(0); c < channels; c++ {
		plane := data[c*planeSize : (c+1)*planeSize]
		for _, g := range groups {
			var samples []float32
			for _, src := range g.sources {
				for y := src.Y0; y < src.Y1; y++ {
					row := y * width
					for x := src.X0; x < src.X1; x++ {
						v := plane[row+x]
						if v < clipLow || v > clipHigh {
							continue
						}
						samples = append(samples, v)
					}
				}
			}
			if len(samples) == 0 {
				continue
			}
			correction := qsort.QSelectMedianFloat32(samples)
			for y := g.target.Y0; y < g.target.Y1; y++ {
				row := y * width
				for x := g.target.X0; x < g.target.X1; x++ {
					plane[row+x] -= correction
				}
			}
		}
	}

	return cropAll(data, width, height, channels, cfg.ImageRect)
}

func cropAll(data []float32, width, height, channels int32, rect Rectangle) ([]float32, int32, int32, error) {
	if rect.X1 == 0 && rect.Y1 == 0 {
		return data, width, height, nil // zero-value rect means "no crop"
	}
	if !rect.Normal() || rect.X1 > width || rect.Y1 > height {
		return nil, 0, 0, starerr.New(starerr.GeometryMismatch, "image rect %v exceeds frame %dx%d", rect, width, height)
	}

	newWidth, newHeight := rect.Width(), rect.Height()
	planeSize := width * height
	newPlaneSize := newWidth * newHeight
	out := make([]float32, channels*newPlaneSize)

	for c := int32(0); c < channels; c++ {
		src := data[c*planeSize : (c+1)*planeSize]
		dst := out[c*newPlaneSize : (c+1)*newPlaneSize]
		for y := int32(0); y < newHeight; y++ {
			srcRow := (rect.Y0 + y) * width
			dstRow := y * newWidth
			copy(dst[dstRow:dstRow+newWidth], src[srcRow+rect.X0:srcRow+rect.X0+newWidth])
		}
	}
	return out, newWidth, newHeight, nil
}
