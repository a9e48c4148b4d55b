// Package config loads the small set of numeric parameters the
// cmd/testaddremove harness needs (tolerance, timing fuzz, and the maximum
// time horizon for period extension) from a YAML file, so the harness isn't
// bespoke flag parsing for every knob. This is deliberately not a general
// configuration system: spec.md's Non-goals exclude configuration-as-a-
// product, and this package carries only what the harness itself consumes.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Params is the (tol, timeFuzz, maxTime) triple the original
// testAddRemoveTag.cpp harness took from argv, plus the minTime floor
// introduced by this repo's ClampMin handling.
type Params struct {
	Tolerance float64 `yaml:"tolerance"`
	TimeFuzz  float64 `yaml:"timeFuzz"`
	MaxTime   float64 `yaml:"maxTime"`
	MinTime   float64 `yaml:"minTime"`

	// BatchSize mirrors the original DB_Filer's steps_per_tx constant: how
	// many hits ReferenceFiler batches before logging a flush.
	BatchSize int `yaml:"batchSize"`
}

// Default returns the parameter set the original harness used when no
// config file was given: 2% tolerance, 10ms timing fuzz, a 60s horizon.
func Default() Params {
	return Params{Tolerance: 0.02, TimeFuzz: 0.01, MaxTime: 60.0, MinTime: 0.0, BatchSize: 16}
}

// Load reads and validates a YAML parameter file at path.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate reports whether p's parameters are within the automaton's
// NumericDomain (spec.md §7): tolerance/fuzz/maxTime must be finite and
// non-negative, and maxTime must be positive (it is not checked against any
// tag's period).
func (p Params) Validate() error {
	for _, v := range []float64{p.Tolerance, p.TimeFuzz, p.MaxTime, p.MinTime} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("config: parameters must be finite, got %v", v)
		}
	}
	if p.Tolerance < 0 {
		return fmt.Errorf("config: tolerance must be >= 0, got %v", p.Tolerance)
	}
	if p.TimeFuzz < 0 {
		return fmt.Errorf("config: timeFuzz must be >= 0, got %v", p.TimeFuzz)
	}
	if p.MaxTime <= 0 {
		return fmt.Errorf("config: maxTime must be > 0, got %v", p.MaxTime)
	}
	if p.MinTime < 0 {
		return fmt.Errorf("config: minTime must be >= 0, got %v", p.MinTime)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("config: batchSize must be > 0, got %v", p.BatchSize)
	}
	return nil
}
