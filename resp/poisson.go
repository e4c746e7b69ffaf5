// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resp

import (
	"fmt"

	"github.com/emer/emergent/v2/erand"
	"github.com/emer/etable/v2/etensor"
)

// PoissonProvider is a synthetic response provider with per-unit
// Poisson count statistics whose mean rate scales linearly with
// stimulus contrast.  It stands in for a full optics + mosaic
// simulation in tests and examples, and provides the reference
// generative model for the Poisson ideal observer in the decode
// package.
type PoissonProvider struct {
	NTimes int             `min:"1" def:"1" desc:"number of time bins per trial"`
	NUnits int             `min:"1" def:"16" desc:"number of response units"`
	Base   float64         `min:"0" def:"10" desc:"baseline mean count per unit per time bin, present at all contrasts"`
	Gain   float64         `min:"0" def:"100" desc:"stimulus-driven mean count per unit of contrast, scaled by the unit weight profile"`
	Weight etensor.Float64 `view:"no-inline" desc:"per-unit stimulus weight profile in [0,1] -- allocated by Defaults or set by the caller"`
	Rnd    erand.Rand      `view:"-" desc:"random source for noisy draws -- set to a seeded source for reproducibility; nil uses the global source"`
}

func (pp *PoissonProvider) Defaults() {
	pp.NTimes = 1
	pp.NUnits = 16
	pp.Base = 10
	pp.Gain = 100
	pp.Update()
}

// Update reallocates the unit weight profile if its length no longer
// matches NUnits, using a uniform profile of 1s.
func (pp *PoissonProvider) Update() {
	if pp.Weight.Len() != pp.NUnits {
		pp.Weight.SetShape([]int{pp.NUnits}, nil, []string{"unit"})
		for i := 0; i < pp.NUnits; i++ {
			pp.Weight.Values[i] = 1
		}
	}
}

// MeanRate returns the mean count for given unit at given contrast.
func (pp *PoissonProvider) MeanRate(unit int, contrast float64) float64 {
	return pp.Base + pp.Gain*contrast*pp.Weight.Values[unit]
}

// Responses implements the Provider contract.  NoNoise replicates the
// mean rates across trials; RandomNoise draws independent Poisson
// counts per trial, time bin, and unit.
func (pp *PoissonProvider) Responses(stim Stimulus, n int, noise NoiseModes) (*InstanceSet, error) {
	if n < 1 {
		return nil, fmt.Errorf("resp: requested %d response instances, need at least 1", n)
	}
	if noise < 0 || noise >= NoiseModesN {
		return nil, fmt.Errorf("resp: unknown noise mode: %d", noise)
	}
	is := NewInstanceSet(stim, n, pp.NTimes, pp.NUnits)
	for ti := 0; ti < n; ti++ {
		for tm := 0; tm < pp.NTimes; tm++ {
			for ui := 0; ui < pp.NUnits; ui++ {
				lam := pp.MeanRate(ui, stim.Contrast)
				v := lam
				if noise == RandomNoise {
					if pp.Rnd != nil {
						v = erand.PoissonGen(lam, -1, pp.Rnd)
					} else {
						v = erand.PoissonGen(lam, -1)
					}
				}
				is.Set(ti, tm, ui, v)
			}
		}
	}
	return is, nil
}
