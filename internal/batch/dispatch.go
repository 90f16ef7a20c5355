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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mlnoga/starcal/internal/calib"
	"github.com/mlnoga/starcal/internal/fits"
	internallog "github.com/mlnoga/starcal/internal/log"
	"github.com/mlnoga/starcal/internal/normalize"
	"github.com/mlnoga/starcal/internal/overscan"
	"github.com/mlnoga/starcal/internal/superbias"
)

// writePreviews writes the channel-0 A and B palette-mapped PNGs for a
// completed normalization solve, named after target's resolved output path.
func writePreviews(result *normalize.Result, target string, cfg *Config) error {
	for _, field := range []string{"A", "B"} {
		path := OutputName(cfg, target, 0, 1, fmt.Sprintf("_%s.png", field))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = result.WritePreview(f, 0, field)
		closeErr := f.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

// Run dispatches every target in j through the driver sized by PlanWorkers.
// Calibration writes the calibrated frame at the target's OutputName,
// superbias writes one file per requested orientation, and normalization
// writes only the optional preview PNGs. After all targets finish, Run
// writes a one-line summary per target to logWriter.
func Run(ctx context.Context, j *Job, logWriter io.Writer) ([]TargetResult, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}

	workers := PlanWorkers(j.Batch.FileThreadOverload, 0)
	d := NewDriver(&j.Batch, workers)

	var bias, dark, flat *fits.Image
	var reference []float32
	var refWidth, refHeight, refChannels int32
	var err error

	switch j.Operation {
	case OpCalibrate:
		if j.Bias != "" {
			if bias, err = fits.NewImageFromFile(j.Bias, 0, logWriter); err != nil {
				return nil, err
			}
		}
		if j.Dark != "" {
			if dark, err = fits.NewImageFromFile(j.Dark, 0, logWriter); err != nil {
				return nil, err
			}
		}
		if j.Flat != "" {
			if flat, err = fits.NewImageFromFile(j.Flat, 0, logWriter); err != nil {
				return nil, err
			}
		}
	case OpNormalize:
		refImg, err := fits.NewImageFromFile(j.Reference, 0, logWriter)
		if err != nil {
			return nil, err
		}
		reference = refImg.Data
		refWidth, refHeight, refChannels = refImg.Naxisn[0], refImg.Naxisn[1], channelsOf(refImg.Naxisn)
	}

	oscan := overscan.Config{}
	if j.Overscan != nil {
		oscan = *j.Overscan
	}

	work := func(ctx context.Context, target string, buf *internallog.Buffer) error {
		switch j.Operation {
		case OpCalibrate:
			img, err := fits.NewImageFromFile(target, 0, buf)
			if err != nil {
				return err
			}
			fmt.Fprintf(buf, "%s: %s\n", target, img.Stats.StringEager())
			settings := j.Calibrate
			if settings == nil {
				settings = calib.NewSettingsDefault()
			}
			result, err := calib.Calibrate(settings, img, bias, dark, flat, oscan)
			if err != nil {
				return err
			}
			out := OutputName(&j.Batch, target, 0, 1, ".fits")
			return result.Image.WriteFile(out)

		case OpNormalize:
			img, err := fits.NewImageFromFile(target, 0, buf)
			if err != nil {
				return err
			}
			fmt.Fprintf(buf, "%s: %s\n", target, img.Stats.StringEager())
			settings := j.Normalize
			if settings == nil {
				settings = normalize.NewSettingsDefault()
			}
			width, height, channels := img.Naxisn[0], img.Naxisn[1], channelsOf(img.Naxisn)
			if width != refWidth || height != refHeight || channels != refChannels {
				return fmt.Errorf("normalize: %s geometry disagrees with reference", target)
			}
			result, err := normalize.BuildNormalization(settings, reference, img.Data, width, height, channels)
			if err != nil {
				return err
			}
			if j.Preview {
				if err := writePreviews(result, target, &j.Batch); err != nil {
					return err
				}
			}
			fmt.Fprintf(buf, "normalized %s\n", target)
			return nil

		case OpSuperbias:
			img, err := fits.NewImageFromFile(target, 0, buf)
			if err != nil {
				return err
			}
			fmt.Fprintf(buf, "%s: %s\n", target, img.Stats.StringEager())
			settings := j.Superbias
			if settings == nil {
				settings = superbias.NewSettingsDefault()
			}
			outputs, err := superbias.Generate(settings, img.Data, img.Naxisn[0], img.Naxisn[1], channelsOf(img.Naxisn))
			if err != nil {
				return err
			}
			for _, o := range outputs {
				out := OutputName(&j.Batch, target, 0, 1, fmt.Sprintf("_%s.fits", o.Orientation))
				if err := superbias.ToImage(o, img.Naxisn).WriteFile(out); err != nil {
					return err
				}
			}
			return nil
		}
		return fmt.Errorf("batch: unsupported operation %q", j.Operation)
	}

	results := d.Run(ctx, j.Targets, work)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(logWriter, "%s: error: %v\n", r.Target, r.Err)
		} else {
			fmt.Fprintf(logWriter, "%s: done\n", r.Target)
		}
	}
	return results, nil
}

func channelsOf(naxisn []int32) int32 {
	if len(naxisn) < 3 {
		return 1
	}
	return naxisn[2]
}
