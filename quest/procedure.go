// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quest

import (
	"fmt"
	"math"

	"github.com/emer/psyphy/psyfun"
	"gonum.org/v1/gonum/stat/distuv"
)

// NextStimulus returns the next log10 contrast to test and true, or
// (0, false) once a stopping rule has fired.  Under Adaptive the level
// minimizing the expected posterior entropy is chosen; under
// FixedStimuli the grid levels are presented in order.
func (qs *State) NextStimulus() (logContrast float64, ok bool) {
	if qs.done {
		return 0, false
	}
	switch qs.Params.Policy {
	case FixedStimuli:
		return qs.stimVals[qs.fixedIx], true
	default:
		return qs.minExpectedEntropy(), true
	}
}

// Update folds one block of outcomes at the given level into the
// posterior and advances the stopping rules.  It is called once per
// block, not per individual trial.  Under FixedStimuli, updating the
// same level twice is a programming error and fails loudly.
func (qs *State) Update(logContrast float64, nCorrect, nTotal int) error {
	if qs.done {
		return fmt.Errorf("quest: Update called after procedure stopped")
	}
	if nTotal < 1 || nCorrect < 0 || nCorrect > nTotal {
		return fmt.Errorf("quest: invalid block outcome: %d correct of %d", nCorrect, nTotal)
	}
	si := qs.stimIndex(logContrast)
	if si < 0 {
		return fmt.Errorf("quest: level %g is not on the stimulus grid", logContrast)
	}
	if qs.Params.Policy == FixedStimuli && qs.visits[logContrast] > 0 {
		return fmt.Errorf("quest: level %g already tested under FixedStimuli -- levels are unique by construction", logContrast)
	}
	qs.visits[logContrast]++

	// blocked binomial likelihood, in log space for stability
	bin := distuv.Binomial{N: float64(nTotal)}
	mx := math.Inf(-1)
	lp := make([]float64, len(qs.post))
	for pi, p := range qs.pTable[si] {
		bin.P = clampProb(p)
		v := math.Log(qs.post[pi]) + bin.LogProb(float64(nCorrect))
		lp[pi] = v
		if v > mx {
			mx = v
		}
	}
	sum := 0.0
	for pi, v := range lp {
		qs.post[pi] = math.Exp(v - mx)
		sum += qs.post[pi]
	}
	for pi := range qs.post {
		qs.post[pi] /= sum
	}

	qs.nTrials += nTotal
	qs.history = append(qs.history, psyfun.Trial{LogContrast: logContrast, NCorrect: nCorrect, NTotal: nTotal})

	switch qs.Params.Policy {
	case FixedStimuli:
		qs.fixedIx++
		if qs.fixedIx >= len(qs.stimVals) {
			qs.done = true
		}
	default:
		if qs.nTrials >= qs.Params.MaxTrials {
			qs.done = true
		} else if qs.nTrials >= qs.Params.MinTrials && qs.Entropy() < qs.Params.StopEntropy {
			qs.done = true
		}
	}
	return nil
}

// FitML fits the maximum-likelihood psychometric function to all
// recorded trial blocks and returns the log10 contrast at which it
// crosses the criterion proportion correct, along with the fitted
// function.
func (qs *State) FitML(criterion float64) (logThreshold float64, fit psyfun.Weibull, err error) {
	cfg := psyfun.FitConfig{}
	cfg.Defaults()
	cfg.Guess = qs.Params.Guess
	cfg.Lapse = qs.Params.Lapse
	fit, err = psyfun.Fit(qs.history, cfg)
	if err != nil {
		return 0, fit, err
	}
	logThreshold, err = fit.Invert(criterion)
	if err != nil {
		return 0, fit, err
	}
	return logThreshold, fit, nil
}

// minExpectedEntropy scans the stimulus grid for the level whose
// outcome, averaged over the predicted probability of a correct
// block-trial, leaves the lowest posterior entropy.
func (qs *State) minExpectedEntropy() float64 {
	best, bestEH := qs.stimVals[0], math.Inf(1)
	wc := make([]float64, len(qs.post))
	wi := make([]float64, len(qs.post))
	for si, x := range qs.stimVals {
		pc := 0.0
		for pi, p := range qs.pTable[si] {
			w := qs.post[pi] * p
			wc[pi] = w
			wi[pi] = qs.post[pi] - w
			pc += w
		}
		eh := 0.0
		if pc > 0 {
			eh += pc * normEntropy(wc, pc)
		}
		if 1-pc > 0 {
			eh += (1 - pc) * normEntropy(wi, 1-pc)
		}
		if eh < bestEH {
			bestEH = eh
			best = x
		}
	}
	return best
}

// normEntropy is the entropy of w normalized by its sum z.
func normEntropy(w []float64, z float64) float64 {
	h := 0.0
	for _, v := range w {
		if v > 0 {
			p := v / z
			h -= p * math.Log(p)
		}
	}
	return h
}

func (qs *State) stimIndex(x float64) int {
	for si, v := range qs.stimVals {
		if v == x {
			return si
		}
	}
	return -1
}

func clampProb(p float64) float64 {
	const eps = 1e-9
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
