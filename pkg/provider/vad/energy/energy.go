// Package energy provides an RMS-energy implementation of [vad.Detector].
//
// Each frame's root-mean-square level is compared against a threshold
// indexed by the configured aggressiveness mode. This is deliberately
// simple — no spectral features, no hangover smoothing — because the
// segmenter above it already debounces decisions with voiced/unvoiced run
// counters, so a per-frame energy gate is enough to drive it.
package energy

import (
	"fmt"
	"math"

	"github.com/MrWong99/edna/pkg/provider/vad"
)

// Compile-time check that *Detector satisfies [vad.Detector].
var _ vad.Detector = (*Detector)(nil)

// rmsThresholds maps each aggressiveness mode to the minimum RMS level (in
// 16-bit PCM units, full scale 32767) a frame must reach to count as speech.
// 300 corresponds to near-silence on a typical USB microphone.
var rmsThresholds = [...]float64{
	vad.ModeQuality:        200,
	vad.ModeLowBitrate:     300,
	vad.ModeAggressive:     450,
	vad.ModeVeryAggressive: 700,
}

// Detector classifies frames by RMS energy. It holds no per-frame state and
// is safe for concurrent use, though the pipeline only ever calls it from
// the capture goroutine.
type Detector struct {
	frameSamples int
	threshold    float64
}

// New creates a Detector for the given config and frame duration.
// frameMillis must be one of the frame sizes the pipeline produces (10, 20,
// or 30 ms).
func New(cfg vad.Config, frameMillis int) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch frameMillis {
	case 10, 20, 30:
	default:
		return nil, fmt.Errorf("energy: unsupported frame duration %d ms", frameMillis)
	}

	return &Detector{
		frameSamples: cfg.SampleRate * frameMillis / 1000,
		threshold:    rmsThresholds[cfg.Mode],
	}, nil
}

// Classify reports whether the frame's RMS energy exceeds the mode
// threshold.
func (d *Detector) Classify(frame []int16) (bool, error) {
	if len(frame) != d.frameSamples {
		return false, fmt.Errorf("energy: frame size mismatch: want %d samples, got %d", d.frameSamples, len(frame))
	}
	return rms(frame) >= d.threshold, nil
}

// rms computes the root-mean-square level of the frame.
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(frame)))
}
