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

// Package superbias builds column- and row-oriented superbias frames from
// a master bias, isolating its large-scale structure before trimmed-mean
// averaging.
package superbias

import "encoding/json"

// Settings configures one superbias generation run.
type Settings struct {
	Columns           bool    `json:"columns"`
	Rows              bool    `json:"rows"`
	UseMedianTransform bool   `json:"useMedianTransform"`
	ExcludeLargeScale bool    `json:"excludeLargeScale"`
	MultiscaleLayers  int32   `json:"multiscaleLayers"`
	TrimmingFactor    float32 `json:"trimmingFactor"`
}

// NewSettingsDefault returns PixInsight's Superbias process defaults.
func NewSettingsDefault() *Settings {
	return &Settings{
		Columns:            true,
		Rows:               false,
		UseMedianTransform: true,
		ExcludeLargeScale:  true,
		MultiscaleLayers:   7,
		TrimmingFactor:     0.2,
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
