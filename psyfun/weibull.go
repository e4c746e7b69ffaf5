// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package psyfun provides the psychometric function machinery: the
Weibull function over log10 contrast, accumulation of proportion
correct across tested contrasts, and maximum-likelihood fitting.

All stimulus levels here are log10 contrast; callers exponentiate to
recover linear contrast.
*/
package psyfun

import (
	"fmt"
	"math"
)

// Weibull is a Weibull psychometric function parameterized directly in
// log10 contrast:
//
//	P(x) = Guess + (1 - Guess - Lapse) * (1 - exp(-10^(Slope*(x-Threshold))))
//
// At x = Threshold the function passes through
// Guess + (1-Guess-Lapse)*(1 - 1/e), which for the TAFC defaults
// (Guess = 0.5, Lapse = 0) is 0.81606.
type Weibull struct {
	Threshold float64 `desc:"threshold location in log10 contrast units"`
	Slope     float64 `min:"0" def:"3" desc:"steepness of the rise"`
	Guess     float64 `min:"0" max:"1" def:"0.5" desc:"guess rate: performance floor (0.5 for TAFC)"`
	Lapse     float64 `min:"0" max:"1" def:"0" desc:"lapse rate: 1 - performance ceiling"`
}

func (wb *Weibull) Defaults() {
	wb.Threshold = -2
	wb.Slope = 3
	wb.Guess = 0.5
	wb.Lapse = 0
}

// Prop returns the probability correct at log10 contrast x.
func (wb *Weibull) Prop(x float64) float64 {
	return wb.Guess + (1-wb.Guess-wb.Lapse)*(1-math.Exp(-math.Pow(10, wb.Slope*(x-wb.Threshold))))
}

// Invert returns the log10 contrast at which the function crosses
// criterion proportion correct p.  p must lie strictly between the
// guess rate and the 1-Lapse ceiling.
func (wb *Weibull) Invert(p float64) (float64, error) {
	lo, hi := wb.Guess, 1-wb.Lapse
	if p <= lo || p >= hi {
		return 0, fmt.Errorf("psyfun: criterion %g outside attainable range (%g, %g)", p, lo, hi)
	}
	f := (p - wb.Guess) / (1 - wb.Guess - wb.Lapse)
	// invert 1 - exp(-10^(Slope*(x-Threshold))) = f
	return wb.Threshold + math.Log10(-math.Log(1-f))/wb.Slope, nil
}
