// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package resp defines neural response instance sets and the contract for
the engines that produce them.

An InstanceSet holds repeated stochastic draws of a neural response to
one fixed stimulus, as a 3D tensor indexed [trial, time, unit].  Sets
are produced by a Provider (an optics / photoreceptor / ganglion-cell
simulation, or the synthetic PoissonProvider in this package) and are
read-only once produced.
*/
package resp

import (
	"fmt"

	"github.com/emer/etable/v2/etensor"
)

// NoiseModes are the supported noise regimes for response generation.
type NoiseModes int32

const (
	// NoNoise returns the deterministic mean response, replicated
	// across the requested trials.
	NoNoise NoiseModes = iota

	// RandomNoise returns independent stochastic draws per trial.
	RandomNoise

	NoiseModesN
)

var noiseModeNames = []string{"None", "Random"}

func (nm NoiseModes) String() string {
	if nm < 0 || nm >= NoiseModesN {
		return fmt.Sprintf("NoiseModes(%d)", nm)
	}
	return noiseModeNames[nm]
}

// NoiseModeFromString returns the mode named by s, or an error for an
// unrecognized name.  Unknown modes are never defaulted silently.
func NoiseModeFromString(s string) (NoiseModes, error) {
	for i, nm := range noiseModeNames {
		if nm == s {
			return NoiseModes(i), nil
		}
	}
	return 0, fmt.Errorf("resp: unknown noise mode: %q", s)
}

// Stimulus describes one stimulus presented to a response provider.
// Contrast is linear (0 = null / background-only stimulus).
type Stimulus struct {
	Name     string  `desc:"descriptive label, used in logs"`
	Contrast float64 `min:"0" desc:"linear stimulus contrast relative to background -- 0 is the null stimulus"`
}

// Null returns true for a zero-contrast (null) stimulus.
func (st *Stimulus) Null() bool {
	return st.Contrast == 0
}

// Provider is the contract for engines that compute response instances
// for a stimulus.  Implementations must support at least the NoNoise
// and RandomNoise modes, and must be deterministic when constructed
// with an explicit random seed.
type Provider interface {
	// Responses computes n response instances for the given stimulus
	// under the given noise mode.
	Responses(stim Stimulus, n int, noise NoiseModes) (*InstanceSet, error)
}

// InstanceSet is a set of response instances for one fixed stimulus:
// a [trial, time, unit] tensor of response magnitudes (e.g., isomerization
// or spike counts per integration bin).
type InstanceSet struct {
	Stim Stimulus        `desc:"stimulus these instances were computed for"`
	Resp etensor.Float64 `view:"no-inline" desc:"response values, [trial, time, unit]"`
}

// NewInstanceSet returns an InstanceSet with allocated (zero) responses
// of the given dimensions.
func NewInstanceSet(stim Stimulus, nTrials, nTimes, nUnits int) *InstanceSet {
	is := &InstanceSet{Stim: stim}
	is.Resp.SetShape([]int{nTrials, nTimes, nUnits}, nil, []string{"trial", "time", "unit"})
	return is
}

func (is *InstanceSet) NTrials() int { return is.Resp.Dim(0) }
func (is *InstanceSet) NTimes() int  { return is.Resp.Dim(1) }
func (is *InstanceSet) NUnits() int  { return is.Resp.Dim(2) }

// Value returns the response for the given trial, time bin, and unit.
func (is *InstanceSet) Value(trial, time, unit int) float64 {
	return is.Resp.Value([]int{trial, time, unit})
}

// Set sets the response for the given trial, time bin, and unit.
func (is *InstanceSet) Set(trial, time, unit int, v float64) {
	is.Resp.Set([]int{trial, time, unit}, v)
}

// TrialFlat copies trial ti's [time, unit] responses into a flat
// time-major slice, allocating if flat is nil or too short.
func (is *InstanceSet) TrialFlat(ti int, flat []float64) []float64 {
	nt, nu := is.NTimes(), is.NUnits()
	if cap(flat) < nt*nu {
		flat = make([]float64, nt*nu)
	}
	flat = flat[:nt*nu]
	st := ti * nt * nu
	copy(flat, is.Resp.Values[st:st+nt*nu])
	return flat
}

// SameShape returns an error reporting the offending dimensions if the
// two sets differ in trial count or per-trial shape.
func (is *InstanceSet) SameShape(ot *InstanceSet) error {
	if is.NTrials() != ot.NTrials() || is.NTimes() != ot.NTimes() || is.NUnits() != ot.NUnits() {
		return fmt.Errorf("resp: instance set shapes differ: [%d %d %d] vs [%d %d %d]",
			is.NTrials(), is.NTimes(), is.NUnits(), ot.NTrials(), ot.NTimes(), ot.NUnits())
	}
	return nil
}
