// Package audio defines the capture-device contract used by the edna
// pipeline along with the canonical on-device audio format.
//
// The pipeline reads exactly one fixed-duration frame of signed 16-bit
// little-endian mono PCM per call, on a hard 20 ms cadence. Implementations
// wrap a real input device (see the portaudio subpackage) or a test double
// (see the mock subpackage).
package audio

import "errors"

// Canonical capture format. Every component in the pipeline — VAD,
// segmenter, recognizer — assumes this format; it is not negotiable at
// runtime.
const (
	// SampleRate is the capture sample rate in Hz.
	SampleRate = 16000

	// FrameMillis is the duration of one capture frame in milliseconds.
	FrameMillis = 20

	// FrameSamples is the number of samples in one capture frame
	// (SampleRate * FrameMillis / 1000).
	FrameSamples = SampleRate * FrameMillis / 1000
)

// ErrRecoverable marks a transient device error (e.g., an input overrun
// after a scheduling hiccup). The capture loop must skip the frame and
// retry; any other read error is fatal for the device.
var ErrRecoverable = errors.New("audio: recoverable device error")

// CaptureDevice is a blocking single-frame audio source.
//
// ReadFrame fills dst with exactly len(dst) samples, blocking until they are
// available. A CaptureDevice is owned by exactly one goroutine (the capture
// task); implementations are not required to be safe for concurrent use.
type CaptureDevice interface {
	// ReadFrame blocks until len(dst) samples have been captured and copies
	// them into dst. Errors wrapping [ErrRecoverable] indicate the frame was
	// lost but the device is still usable.
	ReadFrame(dst []int16) error

	// Close releases the device. Calling Close more than once is safe and
	// returns nil.
	Close() error
}
