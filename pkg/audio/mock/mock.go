// Package mock provides a test double for [audio.CaptureDevice].
//
// Queue frames (and per-frame errors) with Enqueue, then hand the Device to
// the capture loop. Once the queue is exhausted ReadFrame returns ErrDrained
// so tests terminate deterministically instead of blocking.
package mock

import (
	"errors"
	"sync"

	"github.com/MrWong99/edna/pkg/audio"
)

// ErrDrained is returned by ReadFrame once all queued frames are consumed.
var ErrDrained = errors.New("mock audio: no more frames")

// Device is a scripted implementation of audio.CaptureDevice.
type Device struct {
	mu sync.Mutex

	frames []step

	// ReadCallCount is the number of ReadFrame calls so far.
	ReadCallCount int

	// CloseCallCount is the number of Close calls so far.
	CloseCallCount int
}

type step struct {
	frame []int16
	err   error
}

// Ensure Device implements audio.CaptureDevice at compile time.
var _ audio.CaptureDevice = (*Device)(nil)

// Enqueue appends a frame to the script. The slice is copied.
func (d *Device) Enqueue(frame []int16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]int16, len(frame))
	copy(cp, frame)
	d.frames = append(d.frames, step{frame: cp})
}

// EnqueueErr appends an error step to the script; the corresponding
// ReadFrame call returns err without filling dst.
func (d *Device) EnqueueErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, step{err: err})
}

// ReadFrame pops the next scripted step.
func (d *Device) ReadFrame(dst []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ReadCallCount++
	if len(d.frames) == 0 {
		return ErrDrained
	}
	s := d.frames[0]
	d.frames = d.frames[1:]
	if s.err != nil {
		return s.err
	}
	copy(dst, s.frame)
	return nil
}

// Close records the call and returns nil.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	return nil
}
