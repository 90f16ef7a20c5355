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
	"fmt"

	"github.com/mlnoga/starcal/internal/fits"
	"github.com/mlnoga/starcal/internal/overscan"
)

const flatFloor = 1e-15

// Frame is a calibration operand: a channels planes of width*height
// float32 samples, normalized to [0,1].
type Frame struct {
	Data                    []float32
	Width, Height, Channels int32
}

// channelsOf reports the channel count, defaulting to the third axis of
// naxisn when present and otherwise 1.
func channelsOf(naxisn []int32) int32 {
	if len(naxisn) >= 3 && naxisn[2] > 0 {
		return naxisn[2]
	}
	return 1
}

// FrameOf adapts a calibrated fits.Image into a Frame.
func FrameOf(img *fits.Image) Frame {
	w, h := int32(0), int32(0)
	if len(img.Naxisn) >= 2 {
		w, h = img.Naxisn[0], img.Naxisn[1]
	}
	return Frame{Data: img.Data, Width: w, Height: h, Channels: channelsOf(img.Naxisn)}
}

// NoiseRecord is the per-channel noise evaluation written to the output
// record's history.
type NoiseRecord struct {
	Estimate      float32
	Fraction      float32
	AlgorithmName string
}

// Result bundles the calibrated frame with the per-channel dark-scale and
// noise evaluation outcomes, for history annotation.
type Result struct {
	Image    *fits.Image
	DarkScale []DarkScaleResult
	Noise     []NoiseRecord
	IsCFA     bool
}

// Calibrate runs the six-step calibration pipeline on target, with
// optional bias, dark and flat masters (each may be nil to indicate
// absence) and an overscan configuration applied first.
//
// The engine fuses steps 3-5 (bias subtraction, dark subtraction, flat
// division) into one generalized per-channel loop rather than the
// original's eight specialized inner loops for the presence/absence
// combinations of bias, dark, dark-scale!=1 and flat -- correctness is
// identical, the specialization only mattered for the original's
// hand-vectorized C++ hot loops.
func Calibrate(s *Settings, targetImg *fits.Image, bias, dark, flat *fits.Image, oscan overscan.Config) (*Result, error) {
	target := FrameOf(targetImg)

	correctedData, w, h, err := overscan.Subtract(target.Data, target.Width, target.Height, target.Channels, oscan)
	if err != nil {
		return nil, err
	}
	target.Data, target.Width, target.Height = correctedData, w, h

	isCFA := false
	if s.CFAMode == CFAForce {
		isCFA = true
	} else if s.CFAMode == CFADetect {
		isCFA = DetectCFA(target.Data, target.Width, target.Height, target.Channels)
	}

	pedestal := pedestalNormalized(pedestalDN(s, &targetImg.Header))

	darkScaleResults := make([]DarkScaleResult, target.Channels)
	for c := int32(0); c < target.Channels; c++ {
		if dark == nil || !s.OptimizeDarks {
			darkScaleResults[c] = DarkScaleResult{K: 1}
			continue
		}
		darkFrame := FrameOf(dark)
		tPlane := channelPlane(target.Data, target.Width, target.Height, c)
		dPlane := channelPlane(darkFrame.Data, darkFrame.Width, darkFrame.Height, min32(c, darkFrame.Channels-1))

		optTarget, optDark := tPlane, dPlane
		optW, optH := target.Width, target.Height
		if isCFA {
			optTarget, optW, optH = Bin2x2(tPlane, target.Width, target.Height)
			optDark, _, _ = Bin2x2(dPlane, target.Width, target.Height)
		}
		darkScaleResults[c] = OptimizeDarkScale(s, optTarget, optDark, optW, optH)
	}

	planeSize := target.Width * target.Height
	out := make([]float32, len(target.Data))

	var biasFrame, darkFrame, flatFrame Frame
	if bias != nil {
		biasFrame = FrameOf(bias)
	}
	if dark != nil {
		darkFrame = FrameOf(dark)
	}
	if flat != nil {
		flatFrame = FrameOf(flat)
	}

	for c := int32(0); c < target.Channels; c++ {
		k := float32(1)
		if dark != nil {
			k = darkScaleResults[c].K
		}

		var flatMean float32 = 1
		var flatPlane []float32
		if flat != nil {
			flatPlane = channelPlane(flatFrame.Data, flatFrame.Width, flatFrame.Height, min32(c, flatFrame.Channels-1))
			flatMean = meanPositive(flatPlane)
			if flatMean <= 0 {
				flatMean = 1
			}
		}

		var biasPlane, darkPlane []float32
		if bias != nil {
			biasPlane = channelPlane(biasFrame.Data, biasFrame.Width, biasFrame.Height, min32(c, biasFrame.Channels-1))
		}
		if dark != nil {
			darkPlane = channelPlane(darkFrame.Data, darkFrame.Width, darkFrame.Height, min32(c, darkFrame.Channels-1))
		}

		for i := int32(0); i < planeSize; i++ {
			v := target.Data[c*planeSize+i] - pedestal
			if biasPlane != nil {
				v -= biasPlane[i]
			}
			if darkPlane != nil {
				v -= k * darkPlane[i]
			}
			if flatPlane != nil {
				f := flatPlane[i]
				if f < flatFloor {
					f = flatFloor
				}
				v = v * flatMean / f
			}
			v += s.OutputPedestal / dnNormalizer
			v = clip01(v)
			out[c*planeSize+i] = v
		}
	}

	target.Data = out
	noise := evaluateNoise(s, target, isCFA)

	outImg := fits.NewImageFromNaxisn([]int32{target.Width, target.Height, target.Channels}, out)
	outImg.Header = targetImg.Header
	appendHistory(outImg, s, darkScaleResults, noise, isCFA)

	return &Result{Image: outImg, DarkScale: darkScaleResults, Noise: noise, IsCFA: isCFA}, nil
}

// evaluateNoise runs the configured noise estimator per channel on the
// calibrated frame, binning 2x2 first when the frame is CFA-mosaiced.
func evaluateNoise(s *Settings, f Frame, isCFA bool) []NoiseRecord {
	estimator := noiseAlgorithmFunc(s.NoiseAlgorithm)
	out := make([]NoiseRecord, f.Channels)
	for c := int32(0); c < f.Channels; c++ {
		plane := channelPlane(f.Data, f.Width, f.Height, c)
		w, h := f.Width, f.Height
		if isCFA {
			plane, w, h = Bin2x2(plane, w, h)
		}
		res := estimator(plane, w, h)
		out[c] = NoiseRecord{
			Estimate:      res.Sigma,
			Fraction:      float32(res.Count) / float32(w*h),
			AlgorithmName: string(res.Algorithm),
		}
	}
	return out
}

func appendHistory(img *fits.Image, s *Settings, darkScale []DarkScaleResult, noise []NoiseRecord, isCFA bool) {
	var lines []string
	if s.PedestalMode != PedestalLiteral || s.PedestalDN != 0 {
		lines = append(lines, fmt.Sprintf("calibration.pedestal: %v DN", pedestalDN(s, &img.Header)))
	}
	def := NewSettingsDefault()
	for _, p := range []struct {
		name         string
		value, deflt interface{}
	}{
		{"optimizeDarks", s.OptimizeDarks, def.OptimizeDarks},
		{"darkOptimizationLow", s.DarkOptimizationLow, def.DarkOptimizationLow},
		{"darkOptimizationWindow", s.DarkOptimizationWindow, def.DarkOptimizationWindow},
		{"cfaMode", s.CFAMode, def.CFAMode},
		{"noiseAlgorithm", s.NoiseAlgorithm, def.NoiseAlgorithm},
		{"sampleFormat", s.SampleFormat, def.SampleFormat},
		{"outputPedestal", s.OutputPedestal, def.OutputPedestal},
	} {
		if p.value != p.deflt {
			lines = append(lines, fmt.Sprintf("calibration.%s: %v", p.name, p.value))
		}
	}
	for c, d := range darkScale {
		if d.Disabled {
			lines = append(lines, fmt.Sprintf("calibration.darkOptimization[%d]: disabled", c))
		} else if d.NoCorrelation {
			lines = append(lines, fmt.Sprintf("calibration.darkScale[%d]: %.6f (no correlation)", c, d.K))
		} else {
			lines = append(lines, fmt.Sprintf("calibration.darkScale[%d]: %.6f", c, d.K))
		}
	}
	for c, n := range noise {
		lines = append(lines, fmt.Sprintf("calibration.noise[%d]: %.6g (%s, fraction %.4f)", c, n.Estimate, n.AlgorithmName, n.Fraction))
	}
	if isCFA {
		lines = append(lines, "calibration.cfa: detected")
	}
	delete(img.Header.Floats, "PEDESTAL")
	for k := range img.Header.Strings {
		if len(k) >= 5 && k[:5] == "NOISE" {
			delete(img.Header.Strings, k)
		}
	}
	img.AppendCalibrationHistory(lines...)
}

func channelPlane(data []float32, width, height, c int32) []float32 {
	planeSize := width * height
	return data[c*planeSize : (c+1)*planeSize]
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func meanPositive(data []float32) float32 {
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return float32(sum / float64(len(data)))
}

func clip01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
