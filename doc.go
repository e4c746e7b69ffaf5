// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package psyphy is the overall repository for the psyphy computational
psychophysics toolbox, implemented in the Go language (golang).

psyphy predicts contrast-detection thresholds from simulated neural
responses: stochastic response instances for a null and a test stimulus
are pooled into features, classified by a simulated observer, and an
adaptive QUEST+ procedure drives the tested contrast toward threshold,
with a final maximum-likelihood psychometric fit.

This top-level of the repository has no functional code -- everything is
organized into the following sub-repositories:

* resp: neural response instance sets (trial x time x unit tensors),
the response-provider contract, noise modes, and a synthetic
Poisson-rate provider used for testing and examples.

* pool: spatial and spatiotemporal response pooling (full-field sum,
linear kernel, quadrature energy) producing per-trial feature vectors.

* feat: labeled feature-matrix assembly for single-interval and
two-interval forced-choice (TAFC) trial structures.

* decode: observer models implementing a common train / predict
contract: a Poisson ideal observer (template likelihood-ratio test) and
a trainable PCA + linear support-vector machine decoder.

* psyfun: Weibull psychometric function, proportion-correct
accumulation across contrasts, and maximum-likelihood fitting.

* quest: the QUEST+ adaptive procedure: grid posterior over threshold
and slope, expected-entropy stimulus selection, and stopping rules.

* threshold: the contrast-threshold estimation loop tying everything
together, with per-contrast caching of trained decoders and an etable
session log.

* examples: runnable programs; examples/contrast runs a complete
adaptive threshold estimate on the synthetic provider.
*/
package psyphy
