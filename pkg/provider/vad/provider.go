// Package vad defines the Detector interface for voice-activity-detection
// backends.
//
// A detector classifies one fixed-length PCM frame at a time as speech or
// non-speech. Classification is synchronous and stateless from the caller's
// point of view: the capture loop calls Classify once per 20 ms frame and
// must never be stalled, so implementations may not block on I/O.
//
// A Detector is owned by the capture goroutine; implementations are not
// required to be safe for concurrent use.
package vad

import "fmt"

// Aggressiveness selects how eagerly a detector classifies audio as
// non-speech. Higher modes reject more borderline frames, reducing false
// triggers at the cost of clipping quiet speech onsets.
type Aggressiveness int

const (
	// ModeQuality favours detecting all speech, including quiet speech.
	ModeQuality Aggressiveness = iota

	// ModeLowBitrate is slightly more selective than ModeQuality.
	ModeLowBitrate

	// ModeAggressive rejects most background noise. This is the default for
	// the edna capture pipeline.
	ModeAggressive

	// ModeVeryAggressive rejects everything but clear speech.
	ModeVeryAggressive
)

// IsValid reports whether a is a recognised aggressiveness mode.
func (a Aggressiveness) IsValid() bool {
	return a >= ModeQuality && a <= ModeVeryAggressive
}

// Config holds the parameters a Detector is constructed with. It is fixed
// for the lifetime of the detector.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// frames passed to Classify. Common values: 8000, 16000, 32000, 48000.
	SampleRate int

	// Mode selects the detection aggressiveness.
	Mode Aggressiveness
}

// Validate checks that cfg is usable.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("vad: sample rate must be positive, got %d", c.SampleRate)
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("vad: aggressiveness mode %d out of range [0,3]", c.Mode)
	}
	return nil
}

// Detector classifies single audio frames as speech or non-speech.
type Detector interface {
	// Classify analyses one frame of mono S16LE PCM and reports whether it
	// contains speech. The frame length must match the frame duration the
	// detector was configured for; a wrong length is an error. Classify must
	// not block.
	Classify(frame []int16) (bool, error)
}
