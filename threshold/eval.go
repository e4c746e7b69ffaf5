// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package threshold runs contrast-threshold estimation: an adaptive
QUEST+ loop that, for each requested contrast, obtains null- and
test-stimulus response instances from a response provider, trains (or
reuses) a decoder for that contrast, scores a fresh block of trials,
and feeds the outcomes back into the procedure, ending with a
maximum-likelihood psychometric fit.

Trained decoders are cached per exact contrast value: each contrast is
trained at most once per run, and repeat visits only predict.
*/
package threshold

import (
	"fmt"

	"github.com/emer/emergent/v2/erand"
	"github.com/emer/psyphy/decode"
	"github.com/emer/psyphy/feat"
	"github.com/emer/psyphy/pool"
	"github.com/emer/psyphy/resp"
)

// Evaluator runs the train / predict trial protocol for one stimulus
// pair against a response provider.
type Evaluator struct {
	NTrain     int                `min:"1" def:"128" desc:"response instances per stimulus for training"`
	NTest      int                `min:"1" def:"10" desc:"response instances per stimulus for one prediction block"`
	TrainNoise resp.NoiseModes    `desc:"noise mode for training instances -- NoNoise trains on the deterministic mean response"`
	TestNoise  resp.NoiseModes    `def:"1" desc:"noise mode for test instances -- normally RandomNoise"`
	Pool       pool.Params        `view:"inline" desc:"pooling applied to responses before decoding"`
	Interval   feat.IntervalTypes `desc:"trial framing for feature assembly"`
	Rnd        erand.Rand         `view:"-" desc:"entropy source for feature assembly edge cases -- seed for reproducibility; nil uses the global source"`
}

func (ev *Evaluator) Defaults() {
	ev.NTrain = 128
	ev.NTest = 10
	ev.TrainNoise = resp.RandomNoise
	ev.TestNoise = resp.RandomNoise
	ev.Pool.Defaults()
	ev.Interval = feat.TwoInterval
}

// Responses bundles the raw instance sets drawn during one Evaluate
// call, for callers that want to inspect or log them.
type Responses struct {
	TrainNull *resp.InstanceSet `desc:"training instances for the null stimulus (nil if the decoder was already trained)"`
	TrainTest *resp.InstanceSet `desc:"training instances for the test stimulus (nil if the decoder was already trained)"`
	TestNull  *resp.InstanceSet `desc:"prediction-block instances for the null stimulus"`
	TestTest  *resp.InstanceSet `desc:"prediction-block instances for the test stimulus"`
}

// Evaluate obtains responses for the null and test stimuli, trains the
// decoder if it is not already trained, predicts on a fresh block, and
// returns the per-trial correctness vector (length NTest for
// single-interval assembly, 2*(NTest/2) for two-interval).  The
// returned decoder is a value-isolated clone reflecting any training
// performed, safe to cache without aliasing.
func (ev *Evaluator) Evaluate(pv resp.Provider, null, test resp.Stimulus, cl decode.Classifier) (correct []bool, trained decode.Classifier, raw *Responses, err error) {
	raw = &Responses{}
	if !cl.Trained() {
		raw.TrainNull, raw.TrainTest, err = ev.stimPair(pv, null, test, ev.NTrain, ev.TrainNoise)
		if err != nil {
			return nil, nil, nil, err
		}
		fs, ferr := ev.featureSet(raw.TrainNull, raw.TrainTest)
		if ferr != nil {
			return nil, nil, nil, ferr
		}
		if terr := cl.Train(fs); terr != nil {
			return nil, nil, nil, terr
		}
	}
	raw.TestNull, raw.TestTest, err = ev.stimPair(pv, null, test, ev.NTest, ev.TestNoise)
	if err != nil {
		return nil, nil, nil, err
	}
	fs, ferr := ev.featureSet(raw.TestNull, raw.TestTest)
	if ferr != nil {
		return nil, nil, nil, ferr
	}
	pred, perr := cl.Predict(fs)
	if perr != nil {
		return nil, nil, nil, perr
	}
	return pred.Correct, cl.Clone(), raw, nil
}

// stimPair draws matched instance sets for the null and test stimuli.
func (ev *Evaluator) stimPair(pv resp.Provider, null, test resp.Stimulus, n int, noise resp.NoiseModes) (*resp.InstanceSet, *resp.InstanceSet, error) {
	ns, err := pv.Responses(null, n, noise)
	if err != nil {
		return nil, nil, fmt.Errorf("threshold: null responses: %w", err)
	}
	ts, err := pv.Responses(test, n, noise)
	if err != nil {
		return nil, nil, fmt.Errorf("threshold: test responses: %w", err)
	}
	if err = ns.SameShape(ts); err != nil {
		return nil, nil, err
	}
	return ns, ts, nil
}

// featureSet pools both instance sets and assembles the labeled
// feature rows.
func (ev *Evaluator) featureSet(ns, ts *resp.InstanceSet) (*feat.Set, error) {
	nf, err := ev.Pool.Pool(ns)
	if err != nil {
		return nil, err
	}
	tf, err := ev.Pool.Pool(ts)
	if err != nil {
		return nil, err
	}
	return feat.Assemble(nf, tf, ev.Interval, ev.Rnd)
}
