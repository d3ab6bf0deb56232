// Package mock provides a test double for the vad package interfaces.
//
// Script per-frame decisions with the Decisions slice; once exhausted the
// detector keeps returning Default. Submitted frames are recorded for
// inspection.
package mock

import (
	"sync"

	"github.com/MrWong99/edna/pkg/provider/vad"
)

// Detector is a scripted implementation of vad.Detector.
type Detector struct {
	mu sync.Mutex

	// Decisions is consumed one entry per Classify call.
	Decisions []bool

	// Default is returned once Decisions is exhausted.
	Default bool

	// ClassifyErr, if non-nil, is returned by every Classify call.
	ClassifyErr error

	// ClassifyCalls records the length of every frame submitted, in order.
	ClassifyCalls []int
}

// Ensure Detector implements vad.Detector at compile time.
var _ vad.Detector = (*Detector)(nil)

// Classify records the call and pops the next scripted decision.
func (d *Detector) Classify(frame []int16) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ClassifyCalls = append(d.ClassifyCalls, len(frame))
	if d.ClassifyErr != nil {
		return false, d.ClassifyErr
	}
	if len(d.Decisions) == 0 {
		return d.Default, nil
	}
	dec := d.Decisions[0]
	d.Decisions = d.Decisions[1:]
	return dec, nil
}
