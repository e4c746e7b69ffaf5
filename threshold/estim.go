// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package threshold

import (
	"fmt"
	"log"
	"math"

	"github.com/emer/etable/v2/agg"
	"github.com/emer/etable/v2/etable"
	"github.com/emer/etable/v2/etensor"
	"github.com/emer/psyphy/decode"
	"github.com/emer/psyphy/psyfun"
	"github.com/emer/psyphy/quest"
	"github.com/emer/psyphy/resp"
)

// RunStates track the estimator's progress through one run.
type RunStates int32

const (
	// Init: constructed, Run not yet called.
	Init RunStates = iota

	// AwaitingTrial: inside the adaptive loop, waiting on the next
	// trial block's outcomes.
	AwaitingTrial

	// Converged: a stopping rule fired and the final fit is done.
	Converged

	RunStatesN
)

var runStateNames = []string{"Init", "AwaitingTrial", "Converged"}

func (rs RunStates) String() string {
	if rs < 0 || rs >= RunStatesN {
		return fmt.Sprintf("RunStates(%d)", rs)
	}
	return runStateNames[rs]
}

// Estimator drives one contrast-threshold estimation run.  Each run
// owns its own decoder cache and accumulator: to estimate thresholds
// for multiple conditions in parallel, use one Estimator per
// condition.
type Estimator struct {
	Quest      quest.Params             `view:"inline" desc:"adaptive procedure parameters"`
	Eval       Evaluator                `view:"inline" desc:"trial protocol parameters"`
	Criterion  float64                  `def:"0.81606" desc:"proportion correct defining the threshold on the fitted function (0.81606 matches guess 0.5, lapse 0)"`
	SafetyCap  int                      `def:"100000" desc:"hard cap on total trials, guaranteeing termination even if the procedure mis-configures its own stopping"`
	NewDecoder func() decode.Classifier `view:"-" desc:"factory for a fresh, untrained decoder, invoked once per distinct contrast"`

	State RunStates                     `inactive:"+" desc:"current run state"`
	Cache map[float64]decode.Classifier `view:"-" desc:"trained decoders keyed by exact log10 contrast -- owned by this run"`
}

func (es *Estimator) Defaults() {
	es.Quest.Defaults()
	es.Eval.Defaults()
	es.Criterion = 0.81606
	es.SafetyCap = 100000
	es.State = Init
}

// Result is the outcome of one estimation run.
type Result struct {
	LogThreshold float64             `desc:"threshold in log10 contrast, at the configured criterion on the fitted function"`
	Threshold    float64             `desc:"threshold in linear contrast (10^LogThreshold)"`
	Fit          psyfun.Weibull      `desc:"maximum-likelihood psychometric parameters"`
	Acc          *psyfun.Accumulator `desc:"proportion-correct history per tested contrast"`
	Log          *etable.Table       `desc:"per-block session log"`
	NTrials      int                 `desc:"total trials run"`
}

// MeanPCorrect returns the session-mean proportion correct across all
// logged blocks.
func (rs *Result) MeanPCorrect() float64 {
	ix := etable.NewIdxView(rs.Log)
	m := agg.Mean(ix, "PCorrect")
	if len(m) == 0 {
		return 0
	}
	return m[0]
}

// Run executes the full estimation loop against the given response
// provider: query the procedure for a level, evaluate a trial block
// there (training a decoder on first visit, reusing the cached one on
// repeats), feed the outcomes back, and on termination fit the
// maximum-likelihood psychometric function.  The prediction-block size
// comes from Quest.NPerBlock; Eval.NTest applies only when the
// Evaluator is used on its own.  The returned threshold is in log10
// contrast; Result.Threshold carries the exponentiated linear value.
func (es *Estimator) Run(pv resp.Provider) (*Result, error) {
	if es.NewDecoder == nil {
		return nil, fmt.Errorf("threshold: NewDecoder factory is nil")
	}
	if es.Criterion <= es.Quest.Guess || es.Criterion >= 1-es.Quest.Lapse {
		return nil, fmt.Errorf("threshold: criterion %g not attainable with guess %g, lapse %g",
			es.Criterion, es.Quest.Guess, es.Quest.Lapse)
	}
	qs, err := quest.New(&es.Quest)
	if err != nil {
		return nil, err
	}
	es.Cache = make(map[float64]decode.Classifier)
	res := &Result{Acc: psyfun.NewAccumulator(), Log: newSessionLog()}

	// the procedure's block size drives the prediction block; a per-run
	// copy leaves the caller's Eval config untouched
	ev := es.Eval
	ev.NTest = es.Quest.NPerBlock

	es.State = AwaitingTrial
	block := 0
	for {
		x, ok := qs.NextStimulus()
		if !ok {
			break
		}
		if res.NTrials >= es.SafetyCap {
			log.Printf("threshold: safety cap of %d trials reached before procedure stopped\n", es.SafetyCap)
			break
		}
		cl, seen := es.Cache[x]
		if !seen {
			cl = es.NewDecoder()
		}
		test := resp.Stimulus{Name: "test", Contrast: math.Pow(10, x)}
		null := resp.Stimulus{Name: "null", Contrast: 0}
		correct, trained, _, err := ev.Evaluate(pv, null, test, cl)
		if err != nil {
			es.State = Init
			return nil, err
		}
		es.Cache[x] = trained
		nc := 0
		for _, c := range correct {
			if c {
				nc++
			}
		}
		n := len(correct)
		pc := float64(nc) / float64(n)
		res.Acc.Record(x, pc)
		logBlock(res.Log, block, x, n, nc, pc, !seen)
		res.NTrials += n
		block++
		if err = qs.Update(x, nc, n); err != nil {
			es.State = Init
			return nil, err
		}
	}

	logTh, fit, err := qs.FitML(es.Criterion)
	if err != nil {
		es.State = Init
		return nil, err
	}
	res.LogThreshold = logTh
	res.Threshold = math.Pow(10, logTh)
	res.Fit = fit
	es.State = Converged
	return res, nil
}

func newSessionLog() *etable.Table {
	sch := etable.Schema{
		{Name: "Block", Type: etensor.INT64},
		{Name: "LogContrast", Type: etensor.FLOAT64},
		{Name: "Contrast", Type: etensor.FLOAT64},
		{Name: "NTrials", Type: etensor.INT64},
		{Name: "NCorrect", Type: etensor.INT64},
		{Name: "PCorrect", Type: etensor.FLOAT64},
		{Name: "Trained", Type: etensor.INT64},
	}
	dt := &etable.Table{}
	dt.SetFromSchema(sch, 0)
	return dt
}

func logBlock(dt *etable.Table, block int, x float64, n, nc int, pc float64, trained bool) {
	row := dt.Rows
	dt.AddRows(1)
	dt.SetCellFloat("Block", row, float64(block))
	dt.SetCellFloat("LogContrast", row, x)
	dt.SetCellFloat("Contrast", row, math.Pow(10, x))
	dt.SetCellFloat("NTrials", row, float64(n))
	dt.SetCellFloat("NCorrect", row, float64(nc))
	dt.SetCellFloat("PCorrect", row, pc)
	tr := 0.0
	if trained {
		tr = 1
	}
	dt.SetCellFloat("Trained", row, tr)
}
