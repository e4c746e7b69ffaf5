// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package pool reduces per-trial neural responses to feature vectors by
spatial or spatiotemporal pooling.

Each trial of an InstanceSet is [time, unit]; pooling collapses the
unit axis per time bin (or flattens everything for NoPool), yielding
one feature row per trial.  Trials are independent, so the per-trial
work is distributed across goroutines.
*/
package pool

import (
	"fmt"
	"math"

	"github.com/emer/etable/v2/etensor"
	"github.com/emer/psyphy/resp"
	"gonum.org/v1/gonum/mat"
)

// PoolTypes are the supported pooling strategies.
type PoolTypes int32

const (
	// NoPool flattens each trial's [time, unit] responses into one
	// feature vector, preserving every unit.
	NoPool PoolTypes = iota

	// FullField sums across units at each time bin.
	FullField

	// LinearKernel takes the dot product of a weight kernel with the
	// unit responses at each time bin.  The kernel is either a [unit]
	// tensor (reused at every bin) or a [time, unit] tensor (indexed
	// per bin).
	LinearKernel

	// QuadEnergy combines a direct and a quadrature linear kernel as
	// the Euclidean norm of the pair at each time bin (energy model).
	QuadEnergy

	PoolTypesN
)

var poolTypeNames = []string{"NoPool", "FullField", "LinearKernel", "QuadEnergy"}

func (pt PoolTypes) String() string {
	if pt < 0 || pt >= PoolTypesN {
		return fmt.Sprintf("PoolTypes(%d)", pt)
	}
	return poolTypeNames[pt]
}

// PoolTypeFromString returns the pooling type named by s, or an error.
func PoolTypeFromString(s string) (PoolTypes, error) {
	for i, nm := range poolTypeNames {
		if nm == s {
			return PoolTypes(i), nil
		}
	}
	return 0, fmt.Errorf("pool: unknown pooling type: %q", s)
}

// Params specifies the pooling applied to response instances.
type Params struct {
	Type PoolTypes        `desc:"pooling strategy"`
	Wts  *etensor.Float64 `view:"no-inline" desc:"pooling kernel for LinearKernel and QuadEnergy: [unit] for a static spatial kernel, [time, unit] for spatiotemporal"`
	Quad *etensor.Float64 `view:"no-inline" desc:"quadrature-phase kernel for QuadEnergy, same shape rules as Wts"`
}

func (pp *Params) Defaults() {
	pp.Type = NoPool
}

// Validate checks the configuration against the response dimensions,
// returning a descriptive error for unknown types or kernel shape
// mismatches.
func (pp *Params) Validate(nTimes, nUnits int) error {
	if pp.Type < 0 || pp.Type >= PoolTypesN {
		return fmt.Errorf("pool: unknown pooling type: %d", pp.Type)
	}
	switch pp.Type {
	case LinearKernel:
		return kernelShapeErr("Wts", pp.Wts, nTimes, nUnits)
	case QuadEnergy:
		if err := kernelShapeErr("Wts", pp.Wts, nTimes, nUnits); err != nil {
			return err
		}
		return kernelShapeErr("Quad", pp.Quad, nTimes, nUnits)
	}
	return nil
}

func kernelShapeErr(nm string, k *etensor.Float64, nTimes, nUnits int) error {
	if k == nil {
		return fmt.Errorf("pool: %s kernel is nil", nm)
	}
	switch k.NumDims() {
	case 1:
		if k.Dim(0) != nUnits {
			return fmt.Errorf("pool: %s kernel has %d units, responses have %d", nm, k.Dim(0), nUnits)
		}
	case 2:
		if k.Dim(0) != nTimes || k.Dim(1) != nUnits {
			return fmt.Errorf("pool: %s kernel is [%d %d], responses are [%d %d]", nm, k.Dim(0), k.Dim(1), nTimes, nUnits)
		}
	default:
		return fmt.Errorf("pool: %s kernel must be 1D or 2D, is %dD", nm, k.NumDims())
	}
	return nil
}

// NFeatures returns the per-trial feature dimensionality for responses
// with the given per-trial shape.
func (pp *Params) NFeatures(nTimes, nUnits int) int {
	if pp.Type == NoPool {
		return nTimes * nUnits
	}
	return nTimes
}

// kernelAt returns the kernel row for the given time bin: a 1D kernel
// is reused at every bin, a 2D kernel is indexed per bin.
func kernelAt(k *etensor.Float64, tm, nUnits int) []float64 {
	if k.NumDims() == 1 {
		return k.Values
	}
	st := tm * nUnits
	return k.Values[st : st+nUnits]
}

// Pool reduces the instance set to one feature row per trial, as
// specified by the params.  The returned matrix is nTrials x NFeatures.
func (pp *Params) Pool(rs *resp.InstanceSet) (*mat.Dense, error) {
	nTr, nTm, nUn := rs.NTrials(), rs.NTimes(), rs.NUnits()
	if err := pp.Validate(nTm, nUn); err != nil {
		return nil, err
	}
	nf := pp.NFeatures(nTm, nUn)
	out := mat.NewDense(nTr, nf, nil)
	parallelTrials(nTr, func(ti int) {
		row := out.RawRowView(ti)
		switch pp.Type {
		case NoPool:
			rs.TrialFlat(ti, row)
		case FullField:
			for tm := 0; tm < nTm; tm++ {
				sum := 0.0
				for ui := 0; ui < nUn; ui++ {
					sum += rs.Value(ti, tm, ui)
				}
				row[tm] = sum
			}
		case LinearKernel:
			for tm := 0; tm < nTm; tm++ {
				row[tm] = dotAt(rs, pp.Wts, ti, tm, nUn)
			}
		case QuadEnergy:
			for tm := 0; tm < nTm; tm++ {
				d := dotAt(rs, pp.Wts, ti, tm, nUn)
				q := dotAt(rs, pp.Quad, ti, tm, nUn)
				row[tm] = math.Hypot(d, q)
			}
		}
	})
	return out, nil
}

func dotAt(rs *resp.InstanceSet, k *etensor.Float64, ti, tm, nUn int) float64 {
	kv := kernelAt(k, tm, nUn)
	sum := 0.0
	for ui := 0; ui < nUn; ui++ {
		sum += kv[ui] * rs.Value(ti, tm, ui)
	}
	return sum
}
