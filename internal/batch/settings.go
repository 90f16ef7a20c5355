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

// Package batch drives an ordered list of calibration/normalization
// targets across a bounded worker pool, resolving output file names and
// honoring a per-run error policy.
package batch

import "encoding/json"

// ErrorPolicy controls how the driver reacts to a per-target failure.
type ErrorPolicy int

const (
	// Continue logs the failure and proceeds to the next target.
	Continue ErrorPolicy = iota
	// Abort propagates the failure and cancels every in-flight worker.
	Abort
	// AskUser surfaces a prompt through the host; in headless mode it
	// behaves as Continue.
	AskUser
)

// Config configures one batch run.
type Config struct {
	ErrorPolicy        ErrorPolicy `json:"errorPolicy"`
	FileThreadOverload float32     `json:"fileThreadOverload"`
	MaxFileReadThreads int32       `json:"maxFileReadThreads"`
	MaxFileWriteThreads int32      `json:"maxFileWriteThreads"`
	OutDir             string      `json:"outDir"`
	Prefix             string      `json:"prefix"`
	Postfix            string      `json:"postfix"`
	Headless           bool        `json:"headless"`
}

// NewConfigDefault returns the batch driver's published defaults.
func NewConfigDefault() *Config {
	return &Config{
		ErrorPolicy:         Continue,
		FileThreadOverload:  1.0,
		MaxFileReadThreads:  1,
		MaxFileWriteThreads: 1,
		Headless:            true,
	}
}

// UnmarshalJSON unmarshals Config, applying NewConfigDefault's values to
// any field absent from data.
func (c *Config) UnmarshalJSON(data []byte) error {
	type defaults Config
	def := defaults(*NewConfigDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*c = Config(def)
	return nil
}

// effectivePolicy folds AskUser down to Continue whenever the run is
// headless, since there is no host to surface a prompt through.
func (c *Config) effectivePolicy() ErrorPolicy {
	if c.Headless && c.ErrorPolicy == AskUser {
		return Continue
	}
	return c.ErrorPolicy
}
