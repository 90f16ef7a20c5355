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

package batch

import (
	"encoding/json"

	"github.com/mlnoga/starcal/internal/calib"
	"github.com/mlnoga/starcal/internal/normalize"
	"github.com/mlnoga/starcal/internal/overscan"
	"github.com/mlnoga/starcal/internal/starerr"
	"github.com/mlnoga/starcal/internal/superbias"
)

var (
	errEmptyTargets        = starerr.New(starerr.ConfigurationError, "batch: job has no targets")
	errNoCalibrationFrames = starerr.New(starerr.ConfigurationError, "batch: calibrate job needs at least one of bias, dark, flat")
	errNoReference         = starerr.New(starerr.ConfigurationError, "batch: normalize job needs a reference frame")
	errUnknownOperation    = starerr.New(starerr.ConfigurationError, "batch: unknown operation")
)

// Operation selects which engine a Job dispatches its targets to.
type Operation string

const (
	OpCalibrate Operation = "calibrate"
	OpNormalize Operation = "normalize"
	OpSuperbias Operation = "superbias"
)

// Job is the top-level document the CLI's run command reads from disk and
// the restapi package accepts as a request body: one operation, applied to
// every path in Targets, configured by whichever settings block the
// operation uses.
type Job struct {
	Operation Operation `json:"operation"`
	Targets   []string  `json:"targets"`

	Reference string `json:"reference,omitempty"` // normalize: path to the reference frame
	Bias      string `json:"bias,omitempty"`       // calibrate: path to the master bias
	Dark      string `json:"dark,omitempty"`       // calibrate: path to the master dark
	Flat      string `json:"flat,omitempty"`       // calibrate: path to the master flat

	Preview bool `json:"preview,omitempty"` // normalize: also write an A/B palette-mapped PNG per target

	Calibrate *calib.Settings     `json:"calibrate,omitempty"`
	Normalize *normalize.Settings `json:"normalize,omitempty"`
	Superbias *superbias.Settings `json:"superbias,omitempty"`
	Overscan  *overscan.Config    `json:"overscan,omitempty"`

	Batch Config `json:"batch"`
}

// UnmarshalJSON unmarshals Job, applying NewConfigDefault to the embedded
// Batch config whenever the document omits it.
func (j *Job) UnmarshalJSON(data []byte) error {
	type alias Job
	aux := alias{Batch: *NewConfigDefault()}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*j = Job(aux)
	return nil
}

// Validate reports a configuration error if Job has no targets, names an
// unknown operation, asks to calibrate with no bias, dark or flat master,
// or asks to normalize with no reference. No settings block is required.
func (j *Job) Validate() error {
	if len(j.Targets) == 0 {
		return errEmptyTargets
	}
	switch j.Operation {
	case OpCalibrate:
		if j.Bias == "" && j.Dark == "" && j.Flat == "" {
			return errNoCalibrationFrames
		}
	case OpNormalize:
		if j.Reference == "" {
			return errNoReference
		}
	case OpSuperbias:
		// Targets alone are sufficient; Superbias settings fall back to
		// superbias.NewSettingsDefault() when nil.
	default:
		return errUnknownOperation
	}
	return nil
}
