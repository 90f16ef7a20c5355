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

// Package calib implements the per-frame calibration pipeline: overscan
// correction, bias/dark/flat fusion, dark-scale optimization, pedestal
// handling and noise evaluation.
package calib

import (
	"encoding/json"

	"github.com/mlnoga/starcal/internal/multiscale"
)

// PedestalMode selects how the calibration pedestal value is sourced.
type PedestalMode int

const (
	// PedestalLiteral uses Settings.PedestalDN directly.
	PedestalLiteral PedestalMode = iota
	// PedestalKeyword looks up the default "PEDESTAL" header keyword.
	PedestalKeyword
	// PedestalCustomKeyword looks up Settings.PedestalKeyword, case-insensitively.
	PedestalCustomKeyword
)

// CFAMode controls whether CFA (Bayer) detection runs automatically, is
// forced on, or is ignored entirely.
type CFAMode int

const (
	CFADetect CFAMode = iota
	CFAForce
	CFAIgnore
)

// NoiseAlgorithm selects which multiscale noise estimator evaluates the
// calibrated frame.
type NoiseAlgorithm int

const (
	NoiseKSigma NoiseAlgorithm = iota
	NoiseMRS
)

// SampleFormat is the output pixel encoding for calibrated frames.
type SampleFormat int

const (
	SampleInt16 SampleFormat = iota
	SampleInt32
	SampleFloat32
	SampleFloat64
)

// Settings configures one calibration run, JSON-tagged in the teacher's
// idiom with UnmarshalJSON applying defaults for any omitted field.
type Settings struct {
	PedestalMode    PedestalMode `json:"pedestalMode"`
	PedestalDN      float32      `json:"pedestalDN"`
	PedestalKeyword string       `json:"pedestalKeyword"`

	OptimizeDarks          bool    `json:"optimizeDarks"`
	DarkOptimizationLow    float32 `json:"darkOptimizationLow"`
	DarkOptimizationWindow int32   `json:"darkOptimizationWindow"`
	CFAMode                CFAMode `json:"cfaMode"`

	NoiseAlgorithm NoiseAlgorithm `json:"noiseAlgorithm"`
	SampleFormat   SampleFormat   `json:"sampleFormat"`
	OutputPedestal float32        `json:"outputPedestal"`
}

// NewSettingsDefault returns the calibration settings PixInsight's
// ImageCalibration process ships as defaults.
func NewSettingsDefault() *Settings {
	return &Settings{
		PedestalMode:           PedestalLiteral,
		PedestalDN:             0,
		PedestalKeyword:        "PEDESTAL",
		OptimizeDarks:          true,
		DarkOptimizationLow:    3.0,
		DarkOptimizationWindow: 1024,
		CFAMode:                CFADetect,
		NoiseAlgorithm:         NoiseMRS,
		SampleFormat:           SampleFloat32,
		OutputPedestal:         0,
	}
}

// UnmarshalJSON unmarshals Settings, applying NewSettingsDefault's values
// to any field absent from data.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type defaults Settings
	def := defaults(*NewSettingsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*s = Settings(def)
	return nil
}

func noiseAlgorithmFunc(a NoiseAlgorithm) func(data []float32, width, height int32) multiscale.NoiseResult {
	if a == NoiseKSigma {
		return multiscale.KSigmaNoise
	}
	return multiscale.MRSNoise
}
