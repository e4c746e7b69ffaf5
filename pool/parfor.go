// Copyright (c) 2025, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// serialThreshold is the trial count below which the parallel loop is
// not worth the goroutine overhead.
const serialThreshold = 32

// parallelTrials runs fun for each trial index in [0, n), distributing
// chunks of trials across GOMAXPROCS goroutines.  fun must write only
// to its own trial's outputs.
func parallelTrials(n int, fun func(ti int)) {
	if n < serialThreshold {
		for ti := 0; ti < n; ti++ {
			fun(ti)
		}
		return
	}
	procs := runtime.GOMAXPROCS(0)
	grain := n / (4 * procs)
	if grain < 1 {
		grain = 1
	}
	idx := uint64(0)
	var wg sync.WaitGroup
	wg.Add(procs)
	for p := 0; p < procs; p++ {
		go func() {
			defer wg.Done()
			for {
				st := int(atomic.AddUint64(&idx, uint64(grain))) - grain
				if st >= n {
					return
				}
				ed := st + grain
				if ed > n {
					ed = n
				}
				for ti := st; ti < ed; ti++ {
					fun(ti)
				}
			}
		}()
	}
	wg.Wait()
}
