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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/mlnoga/starcal/internal/batch"
	"github.com/mlnoga/starcal/internal/calib"
	"github.com/mlnoga/starcal/internal/defectmap"
	"github.com/mlnoga/starcal/internal/fits"
	"github.com/mlnoga/starcal/internal/restapi"
	"github.com/mlnoga/starcal/internal/superbias"
)

const version = "0.1.0"

var addr = flag.String("addr", "", "address to serve the job-submission API on, empty=gin default")
var job = flag.String("job", "", "JSON batch.Job document to run")

var out = flag.String("out", "", "output directory, empty=alongside each input")
var bias = flag.String("bias", "", "master bias frame `file`")
var dark = flag.String("dark", "", "master dark frame `file`")
var flat = flag.String("flat", "", "master flat frame `file`")
var reference = flag.String("reference", "", "reference frame `file` for normalization")
var preview = flag.Bool("preview", false, "normalize: also write an A/B palette-mapped PNG per target")

var cfa = flag.String("cfa", "auto", "color filter array handling: auto, force, or ignore")

var defectMap = flag.String("map", "", "defect mask `file` for the defectmap command")
var defectStat = flag.String("interpolation", "mean", "defectmap estimator: mean, median, minimum, maximum, gaussian")
var defectShape = flag.String("shape", "square", "defectmap neighborhood: square, circular, horizontal, vertical")
var defectRadius = flag.Int64("radius", 2, "defectmap neighborhood radius in pixels")
var defectCFA = flag.Bool("defectCFA", false, "restrict defectmap neighborhoods to same Bayer-parity pixels")

var columns = flag.Bool("columns", true, "superbias: average column residuals")
var rows = flag.Bool("rows", false, "superbias: average row residuals")
var trimmingFactor = flag.Float64("trimmingFactor", 0.2, "superbias: trimmed-mean fraction discarded from each tail")

func main() {
	var logWriter io.Writer = os.Stdout
	start := time.Now()

	flag.Usage = func() {
		fmt.Fprintf(logWriter, `Starcal Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (calibrate|normalize|superbias|defectmap|run|serve|legal|version) (img0.fits ... imgn.fits)

Commands:
  calibrate  Apply bias/dark/flat calibration to the given target frames
  normalize  Compute a local-normalization solution against -reference
  superbias  Generate a superbias from the given master bias frame(s)
  defectmap  Replace pixels marked by -map with neighborhood estimates
  run        Run a JSON batch.Job document from the file given by -job
  serve      Serve the job-submission HTTP API
  legal      Show license and attribution information
  version    Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "calibrate":
		err = runCalibrate(logWriter, args[1:])
	case "normalize":
		err = runNormalize(logWriter, args[1:])
	case "superbias":
		err = runSuperbias(logWriter, args[1:])
	case "defectmap":
		err = runDefectMap(logWriter, args[1:])
	case "run":
		err = runJob(logWriter)
	case "serve":
		err = restapi.Serve(*addr)
	case "legal":
		fmt.Fprint(logWriter, legal)
	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
	case "help", "?":
		flag.Usage()
	default:
		fmt.Fprintf(logWriter, "Unknown command %q\n\n", args[0])
		flag.Usage()
		return
	}

	if err != nil {
		fmt.Fprintf(logWriter, "Error: %s\n", err.Error())
		os.Exit(1)
	}

	elapsed := time.Since(start).Round(time.Millisecond * 10)
	fmt.Fprintf(logWriter, "\nDone after %s\n", elapsed)
}

func runCalibrate(logWriter io.Writer, targets []string) error {
	j := &batch.Job{
		Operation: batch.OpCalibrate,
		Targets:   targets,
		Bias:      *bias,
		Dark:      *dark,
		Flat:      *flat,
		Calibrate: calib.NewSettingsDefault(),
		Batch:     *batch.NewConfigDefault(),
	}
	j.Batch.OutDir = *out
	switch strings.ToLower(*cfa) {
	case "auto":
		j.Calibrate.CFAMode = calib.CFADetect
	case "force":
		j.Calibrate.CFAMode = calib.CFAForce
	case "ignore":
		j.Calibrate.CFAMode = calib.CFAIgnore
	default:
		return fmt.Errorf("calibrate: unknown -cfa mode %q", *cfa)
	}
	_, err := batch.Run(context.Background(), j, logWriter)
	return err
}

func runNormalize(logWriter io.Writer, targets []string) error {
	j := &batch.Job{
		Operation: batch.OpNormalize,
		Targets:   targets,
		Reference: *reference,
		Preview:   *preview,
		Batch:     *batch.NewConfigDefault(),
	}
	j.Batch.OutDir = *out
	_, err := batch.Run(context.Background(), j, logWriter)
	return err
}

func runSuperbias(logWriter io.Writer, targets []string) error {
	j := &batch.Job{
		Operation: batch.OpSuperbias,
		Targets:   targets,
		Superbias: superbias.NewSettingsDefault(),
		Batch:     *batch.NewConfigDefault(),
	}
	j.Batch.OutDir = *out
	j.Superbias.Columns = *columns
	j.Superbias.Rows = *rows
	j.Superbias.TrimmingFactor = float32(*trimmingFactor)
	_, err := batch.Run(context.Background(), j, logWriter)
	return err
}

func runDefectMap(logWriter io.Writer, targets []string) error {
	if *defectMap == "" {
		return fmt.Errorf("defectmap: -map is required")
	}
	maskImg, err := fits.NewImageFromFile(*defectMap, 0, logWriter)
	if err != nil {
		return err
	}

	s := &defectmap.Settings{
		Interpolation: parseInterpolation(*defectStat),
		Shape:         parseShape(*defectShape),
		Radius:        int32(*defectRadius),
		CFA:           *defectCFA,
	}

	for _, target := range targets {
		img, err := fits.NewImageFromFile(target, 0, logWriter)
		if err != nil {
			return err
		}
		corrected, err := defectmap.Apply(s, img.Data, maskImg.Data, img.Naxisn[0], img.Naxisn[1])
		if err != nil {
			return err
		}
		img.Data = corrected
		outPath := batch.OutputName(batch.NewConfigDefault(), target, 0, 1, ".fits")
		if *out != "" {
			cfg := batch.NewConfigDefault()
			cfg.OutDir = *out
			outPath = batch.OutputName(cfg, target, 0, 1, ".fits")
		}
		if err := img.WriteFile(outPath); err != nil {
			return err
		}
		fmt.Fprintf(logWriter, "%s -> %s\n", target, outPath)
	}
	return nil
}

func parseInterpolation(s string) defectmap.Interpolation {
	switch strings.ToLower(s) {
	case "median":
		return defectmap.Median
	case "minimum":
		return defectmap.Minimum
	case "maximum":
		return defectmap.Maximum
	case "gaussian":
		return defectmap.Gaussian
	default:
		return defectmap.Mean
	}
}

func parseShape(s string) defectmap.Shape {
	switch strings.ToLower(s) {
	case "circular":
		return defectmap.Circular
	case "horizontal":
		return defectmap.Horizontal
	case "vertical":
		return defectmap.Vertical
	default:
		return defectmap.Square
	}
}

func runJob(logWriter io.Writer) error {
	if *job == "" {
		return fmt.Errorf("run: -job is required")
	}
	content, err := ioutil.ReadFile(*job)
	if err != nil {
		return err
	}
	var j batch.Job
	if err := json.Unmarshal(content, &j); err != nil {
		return err
	}
	if m, err := json.MarshalIndent(&j, "", "  "); err == nil {
		fmt.Fprintf(logWriter, "Running job:\n%s\n\n", m)
	}
	results, err := batch.Run(context.Background(), &j, logWriter)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Fprintf(logWriter, "\n%d targets, %d failed\n", len(results), failed)
	return nil
}
