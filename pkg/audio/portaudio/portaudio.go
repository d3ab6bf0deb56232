// Package portaudio provides a PortAudio-backed implementation of
// [audio.CaptureDevice].
//
// It opens the default system input device as a mono S16LE stream at the
// canonical pipeline format and reads one frame per call. PortAudio library
// initialisation is reference-counted by the binding, so creating the device
// pairs an Initialize with the Terminate performed in Close.
package portaudio

import (
	"errors"
	"fmt"

	palib "github.com/gordonklaus/portaudio"

	"github.com/MrWong99/edna/pkg/audio"
)

// Compile-time check that *Device satisfies [audio.CaptureDevice].
var _ audio.CaptureDevice = (*Device)(nil)

// Device captures mono S16LE PCM from the default PortAudio input stream.
// It is owned by the capture goroutine and is not safe for concurrent use.
type Device struct {
	stream *palib.Stream
	buf    []int16
	closed bool
}

// New initialises PortAudio and opens the default input device at the given
// sample rate with frameSamples samples per read. Pass audio.SampleRate and
// audio.FrameSamples for the canonical pipeline format.
func New(sampleRate, frameSamples int) (*Device, error) {
	if sampleRate <= 0 || frameSamples <= 0 {
		return nil, fmt.Errorf("portaudio: invalid format %d Hz / %d samples", sampleRate, frameSamples)
	}

	if err := palib.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	buf := make([]int16, frameSamples)
	stream, err := palib.OpenDefaultStream(1, 0, float64(sampleRate), frameSamples, buf)
	if err != nil {
		_ = palib.Terminate()
		return nil, fmt.Errorf("portaudio: open default input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = palib.Terminate()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}

	return &Device{stream: stream, buf: buf}, nil
}

// ReadFrame blocks until one full frame has been captured and copies it into
// dst. len(dst) must equal the frameSamples the device was opened with.
//
// Input overruns are reported as errors wrapping [audio.ErrRecoverable]: the
// frame content is undefined and must be dropped, but the stream keeps
// running.
func (d *Device) ReadFrame(dst []int16) error {
	if d.closed {
		return errors.New("portaudio: device is closed")
	}
	if len(dst) != len(d.buf) {
		return fmt.Errorf("portaudio: frame size mismatch: want %d samples, got %d", len(d.buf), len(dst))
	}

	if err := d.stream.Read(); err != nil {
		if errors.Is(err, palib.InputOverflowed) {
			return fmt.Errorf("%w: input overflowed", audio.ErrRecoverable)
		}
		return fmt.Errorf("portaudio: read: %w", err)
	}

	copy(dst, d.buf)
	return nil
}

// Close stops the stream and releases PortAudio. Safe to call more than once.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if err := d.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: stop stream: %w", err))
	}
	if err := d.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: close stream: %w", err))
	}
	if err := palib.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio: terminate: %w", err))
	}
	return errors.Join(errs...)
}
