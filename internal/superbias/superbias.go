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
	"sort"

	"github.com/mlnoga/starcal/internal/multiscale"
	"github.com/mlnoga/starcal/internal/starerr"
)

// Orientation names one of the two superbias outputs.
type Orientation string

const (
	Vertical   Orientation = "vertical"   // column-oriented mean
	Horizontal Orientation = "horizontal" // row-oriented mean
)

// Output is one generated superbias plane, tagged with its orientation for
// the IMAGETYP history annotation.
type Output struct {
	Orientation Orientation
	Data        []float32
}

// Generate builds up to two superbias planes (vertical, horizontal) from a
// channels-plane master bias, per s's column/row/exclude-large-scale
// configuration. Each channel is processed independently, the way
// calib.Calibrate fuses calibration frames one channelPlane at a time.
func Generate(s *Settings, bias []float32, width, height, channels int32) ([]Output, error) {
	if len(bias) == 0 {
		return nil, starerr.New(starerr.ConfigurationError, "superbias: empty input")
	}
	if channels < 1 {
		return nil, starerr.New(starerr.ConfigurationError, "superbias: channels %d out of range [1,...]", channels)
	}
	if s.MultiscaleLayers < 1 || s.MultiscaleLayers > 10 {
		return nil, starerr.New(starerr.ConfigurationError, "superbias: multiscaleLayers %d out of range [1,10]", s.MultiscaleLayers)
	}
	if s.TrimmingFactor < 0 || s.TrimmingFactor > 0.4 {
		return nil, starerr.New(starerr.ConfigurationError, "superbias: trimmingFactor %f out of range [0,0.4]", s.TrimmingFactor)
	}
	if !s.Columns && !s.Rows {
		return nil, starerr.New(starerr.ConfigurationError, "superbias: at least one of columns or rows must be requested")
	}

	layers := int(s.MultiscaleLayers)

	// Step 1: large-scale extraction, one channel plane at a time.
	largeScale := make([]float32, len(bias))
	for c := int32(0); c < channels; c++ {
		plane := channelPlane(bias, width, height, c)
		var residual []float32
		if s.UseMedianTransform {
			residual = multiscale.ResidualOnly(plane, width, height, layers)
		} else {
			residual = multiscale.StarletResidualOnly(plane, width, height, layers)
		}
		copy(channelPlane(largeScale, width, height, c), residual)
	}

	// Step 2: optionally subtract the large-scale model from the input
	// before column/row averaging.
	working := bias
	if s.ExcludeLargeScale {
		working = make([]float32, len(bias))
		for i := range bias {
			working[i] = bias[i] - largeScale[i]
		}
	}

	var outputs []Output
	if s.Columns {
		data := append([]float32(nil), largeScale...)
		for c := int32(0); c < channels; c++ {
			addColumnMeans(channelPlane(data, width, height, c), channelPlane(working, width, height, c), width, height, s.TrimmingFactor)
		}
		clip01InPlace(data)
		outputs = append(outputs, Output{Orientation: Vertical, Data: data})
	}
	if s.Rows {
		data := append([]float32(nil), largeScale...)
		for c := int32(0); c < channels; c++ {
			addRowMeans(channelPlane(data, width, height, c), channelPlane(working, width, height, c), width, height, s.TrimmingFactor)
		}
		clip01InPlace(data)
		outputs = append(outputs, Output{Orientation: Horizontal, Data: data})
	}
	return outputs, nil
}

// channelPlane returns the c-th width*height plane of a channels-major
// buffer, the same slicing calib.channelPlane uses.
func channelPlane(data []float32, width, height, c int32) []float32 {
	planeSize := width * height
	return data[c*planeSize : (c+1)*planeSize]
}

// addColumnMeans computes each column's trimmed mean over working and adds
// it as a constant to every pixel of that column in dest.
func addColumnMeans(dest, working []float32, width, height int32, trimmingFactor float32) {
	col := make([]float32, height)
	for x := int32(0); x < width; x++ {
		for y := int32(0); y < height; y++ {
			col[y] = working[y*width+x]
		}
		mean := trimmedMean(col, trimmingFactor)
		for y := int32(0); y < height; y++ {
			dest[y*width+x] += mean
		}
	}
}

// addRowMeans is the row-oriented symmetric counterpart of addColumnMeans.
func addRowMeans(dest, working []float32, width, height int32, trimmingFactor float32) {
	row := make([]float32, width)
	for y := int32(0); y < height; y++ {
		copy(row, working[y*width:(y+1)*width])
		mean := trimmedMean(row, trimmingFactor)
		for x := int32(0); x < width; x++ {
			dest[y*width+x] += mean
		}
	}
}

// trimmedMean sorts a copy of samples, discards trimmingFactor*len(samples)
// entries from each end, and returns the mean of what remains.
func trimmedMean(samples []float32, trimmingFactor float32) float32 {
	sorted := append([]float32(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	trim := int(trimmingFactor * float32(len(sorted)))
	lo, hi := trim, len(sorted)-trim
	if hi <= lo {
		lo, hi = 0, len(sorted)
	}

	var sum float64
	for _, v := range sorted[lo:hi] {
		sum += float64(v)
	}
	return float32(sum / float64(hi-lo))
}

func clip01InPlace(data []float32) {
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		} else if v > 1 {
			data[i] = 1
		}
	}
}
