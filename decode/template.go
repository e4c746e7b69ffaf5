// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package decode

import (
	"fmt"
	"math"

	"github.com/emer/psyphy/feat"
)

// Template is the Poisson ideal observer: it classifies by the sign of
// the log-likelihood ratio of each row's responses under mean-count
// templates for the null and test stimuli.  There is no learned
// decision rule; Train only records the templates, which should come
// from noise-free (or many averaged) training responses.  No
// dimensionality reduction is applied: the test operates on the raw or
// pooled features directly.
type Template struct {
	Interval feat.IntervalTypes `desc:"trial framing the feature rows were assembled under"`
	MinRate  float64            `def:"1e-10" desc:"floor on template mean counts, keeping log-likelihoods finite"`

	TmplNull []float64 `view:"-" desc:"mean null-stimulus response template, per feature"`
	TmplTest []float64 `view:"-" desc:"mean test-stimulus response template, per feature"`
	trained  bool
}

// NewTemplate returns an ideal observer for the given trial framing.
func NewTemplate(iv feat.IntervalTypes) *Template {
	tp := &Template{Interval: iv}
	tp.Defaults()
	return tp
}

func (tp *Template) Defaults() {
	if tp.MinRate == 0 {
		tp.MinRate = 1e-10
	}
}

func (tp *Template) Trained() bool { return tp.trained }

// Reset discards the recorded templates so the observer can be
// re-trained on new responses.
func (tp *Template) Reset() {
	tp.TmplNull = nil
	tp.TmplTest = nil
	tp.trained = false
}

func (tp *Template) Clone() Classifier {
	cp := &Template{Interval: tp.Interval, MinRate: tp.MinRate, trained: tp.trained}
	cp.TmplNull = append([]float64(nil), tp.TmplNull...)
	cp.TmplTest = append([]float64(nil), tp.TmplTest...)
	return cp
}

// Train records the null and test mean-response templates from the
// labeled feature rows.  For TwoInterval rows, each row contributes
// its null-interval half to the null template and its test-interval
// half to the test template, according to the row's class.
func (tp *Template) Train(fs *feat.Set) error {
	if tp.trained {
		return ErrRetrain
	}
	nr, nd := fs.NRows(), fs.NDims()
	if nr < 1 {
		return fmt.Errorf("decode: no feature rows to train on")
	}
	nt := nd // template length
	if tp.Interval == feat.TwoInterval {
		if nd%2 != 0 {
			return fmt.Errorf("decode: two-interval rows must have even dims, got %d", nd)
		}
		nt = nd / 2
	}
	tp.TmplNull = make([]float64, nt)
	tp.TmplTest = make([]float64, nt)
	nNull, nTest := 0, 0
	for ri := 0; ri < nr; ri++ {
		row := fs.X.RawRowView(ri)
		switch tp.Interval {
		case feat.SingleInterval:
			if fs.Labels[ri] == 0 {
				addTo(tp.TmplNull, row)
				nNull++
			} else {
				addTo(tp.TmplTest, row)
				nTest++
			}
		case feat.TwoInterval:
			a, b := row[:nt], row[nt:]
			if fs.Labels[ri] == 1 { // [test|null]
				a, b = b, a
			}
			addTo(tp.TmplNull, a)
			addTo(tp.TmplTest, b)
			nNull++
			nTest++
		}
	}
	if nNull == 0 || nTest == 0 {
		return fmt.Errorf("decode: training set has %d null and %d test rows, need both", nNull, nTest)
	}
	scaleBy(tp.TmplNull, 1/float64(nNull))
	scaleBy(tp.TmplTest, 1/float64(nTest))
	tp.trained = true
	return nil
}

// Predict applies the likelihood-ratio decision rule to each row.
// Ties (as at zero contrast, where the templates coincide) resolve to
// class 0, which yields chance performance against balanced labels.
func (tp *Template) Predict(fs *feat.Set) (*Prediction, error) {
	if !tp.trained {
		return nil, ErrNotTrained
	}
	nt := len(tp.TmplNull)
	nd := fs.NDims()
	want := nt
	if tp.Interval == feat.TwoInterval {
		want = 2 * nt
	}
	if nd != want {
		return nil, DimsError{Train: want, Predict: nd}
	}
	nr := fs.NRows()
	pred := make([]float64, nr)
	for ri := 0; ri < nr; ri++ {
		row := fs.X.RawRowView(ri)
		var ll0, ll1 float64
		switch tp.Interval {
		case feat.SingleInterval:
			ll0 = tp.logLike(row, tp.TmplNull)
			ll1 = tp.logLike(row, tp.TmplTest)
		case feat.TwoInterval:
			a, b := row[:nt], row[nt:]
			ll0 = tp.logLike(a, tp.TmplNull) + tp.logLike(b, tp.TmplTest)
			ll1 = tp.logLike(a, tp.TmplTest) + tp.logLike(b, tp.TmplNull)
		}
		if ll1 > ll0 {
			pred[ri] = 1
		}
	}
	return score(pred, fs.Labels), nil
}

// logLike is the Poisson log-likelihood of counts x under mean
// template lam, using the continuous (lgamma) extension so that pooled
// non-integer features remain well-defined.
func (tp *Template) logLike(x, lam []float64) float64 {
	ll := 0.0
	for i := range x {
		l := math.Max(lam[i], tp.MinRate)
		k := math.Max(x[i], 0)
		lg, _ := math.Lgamma(k + 1)
		ll += k*math.Log(l) - l - lg
	}
	return ll
}

func addTo(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func scaleBy(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}
