// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package psyfun

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Trial is one block of binary outcomes at a fixed stimulus level, the
// unit of evidence for maximum-likelihood fitting.
type Trial struct {
	LogContrast float64 `desc:"stimulus level, log10 contrast"`
	NCorrect    int     `desc:"number of correct responses in the block"`
	NTotal      int     `desc:"number of trials in the block"`
}

// FitConfig parameterizes the maximum-likelihood psychometric fit.
// Guess and Lapse are held fixed; threshold and slope are free.
type FitConfig struct {
	Guess     float64 `def:"0.5" desc:"fixed guess rate"`
	Lapse     float64 `def:"0" desc:"fixed lapse rate"`
	InitSlope float64 `def:"3" desc:"starting slope for the optimizer"`
	MinSlope  float64 `def:"0.1" desc:"lower bound on slope, enforced by penalty"`
	MaxSlope  float64 `def:"20" desc:"upper bound on slope, enforced by penalty"`
	ProbClamp float64 `def:"1e-9" desc:"probabilities are clamped to [ProbClamp, 1-ProbClamp] inside the likelihood"`
}

func (fc *FitConfig) Defaults() {
	fc.Guess = 0.5
	fc.Lapse = 0
	fc.InitSlope = 3
	fc.MinSlope = 0.1
	fc.MaxSlope = 20
	fc.ProbClamp = 1e-9
}

// LogLike is the Bernoulli log-likelihood of the trial blocks under
// the given psychometric function.
func LogLike(wb *Weibull, trials []Trial, clamp float64) float64 {
	ll := 0.0
	for _, tr := range trials {
		p := wb.Prop(tr.LogContrast)
		if p < clamp {
			p = clamp
		} else if p > 1-clamp {
			p = 1 - clamp
		}
		ll += float64(tr.NCorrect)*math.Log(p) + float64(tr.NTotal-tr.NCorrect)*math.Log(1-p)
	}
	return ll
}

// Fit finds the maximum-likelihood Weibull threshold and slope for the
// given trial blocks, with guess and lapse fixed by the config, using
// Nelder-Mead.  The threshold search starts at the trial-weighted mean
// tested level.
func Fit(trials []Trial, cfg FitConfig) (Weibull, error) {
	wb := Weibull{Guess: cfg.Guess, Lapse: cfg.Lapse, Slope: cfg.InitSlope}
	if len(trials) == 0 {
		return wb, fmt.Errorf("psyfun: no trials to fit")
	}
	t0, wt := 0.0, 0.0
	for _, tr := range trials {
		t0 += tr.LogContrast * float64(tr.NTotal)
		wt += float64(tr.NTotal)
	}
	if wt == 0 {
		return wb, fmt.Errorf("psyfun: all trial blocks are empty")
	}
	t0 /= wt

	prob := optimize.Problem{
		Func: func(x []float64) float64 {
			w := Weibull{Threshold: x[0], Slope: x[1], Guess: cfg.Guess, Lapse: cfg.Lapse}
			if w.Slope < cfg.MinSlope || w.Slope > cfg.MaxSlope {
				return math.Inf(1)
			}
			return -LogLike(&w, trials, cfg.ProbClamp)
		},
	}
	res, err := optimize.Minimize(prob, []float64{t0, cfg.InitSlope}, nil, &optimize.NelderMead{})
	if err != nil {
		return wb, fmt.Errorf("psyfun: maximum-likelihood fit failed: %w", err)
	}
	wb.Threshold = res.X[0]
	wb.Slope = res.X[1]
	return wb, nil
}
