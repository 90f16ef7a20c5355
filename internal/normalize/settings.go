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

// Package normalize builds per-tile affine (A, B) normalization fields that
// map a target frame's local background and gain onto a reference frame.
package normalize

import "encoding/json"

// Settings configures one BuildNormalization run.
type Settings struct {
	BackgroundLimit            float32 `json:"backgroundLimit"`
	ReferenceThreshold         float32 `json:"referenceThreshold"`
	TargetThreshold            float32 `json:"targetThreshold"`
	HotPixelFilterRadius       int32   `json:"hotPixelFilterRadius"`
	NoiseReductionFilterRadius int32   `json:"noiseReductionFilterRadius"`
	Scale                      int32   `json:"scale"`
	NoScale                    bool    `json:"noScale"`
	RejectOutliers             bool    `json:"rejectOutliers"`
}

// zeroExclusionThreshold is the sample magnitude below which a pixel is
// treated as absent data in either frame.
const zeroExclusionThreshold = 4.5e-5

// backgroundTileSize is the gridded background model's default tile
// spacing.
const backgroundTileSize = 40

// NewSettingsDefault returns the local normalization engine's published
// defaults.
func NewSettingsDefault() *Settings {
	return &Settings{
		BackgroundLimit:            0.05,
		ReferenceThreshold:         0.5,
		TargetThreshold:            0.5,
		HotPixelFilterRadius:       2,
		NoiseReductionFilterRadius: 0,
		Scale:                      128,
		NoScale:                    false,
		RejectOutliers:             true,
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
