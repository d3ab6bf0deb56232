package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/edna/internal/conv"
	"github.com/MrWong99/edna/pkg/audio"
)

// captureLoop reads microphone frames at the 20 ms cadence, runs them
// through the mic gate, VAD, and segmenter, and hands finalized utterances
// to recognition. It returns the context error on cancellation and
// otherwise only errors for unrecoverable device failures.
func (p *Pipeline) captureLoop(ctx context.Context) error {
	frame := make([]int16, p.cfg.FrameSamples)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.cfg.Device.ReadFrame(frame); err != nil {
			if errors.Is(err, audio.ErrRecoverable) {
				// Overflows happen when a downstream stage briefly hogs the
				// CPU; the frame is garbage but the device is fine.
				p.log.Warn("recoverable capture error", "error", err)
				continue
			}
			return fmt.Errorf("pipeline: capture device failed: %w", err)
		}

		// The gate resets the segmenter and drains the utterance slot on
		// every suppressed frame, so device playback never transcribes
		// itself.
		if !p.gate.Admit(p.machine.State() == conv.Speaking) {
			p.metrics.GatedFrames.Add(ctx, 1)
			continue
		}

		voiced, err := p.cfg.Detector.Classify(frame)
		if err != nil {
			// A misbehaving detector must not wedge the utterance open.
			p.log.Warn("vad classification failed", "error", err)
			voiced = false
		}

		switch ev, utt := p.seg.Push(frame, voiced); ev {
		case SegmentStarted:
			p.machine.Dispatch(conv.SpeechStart, "VAD start_trigger")

		case SegmentEnded:
			if utt == nil {
				// Too short to be speech. The capture still consumed the
				// stop trigger, so resolve the conversation back to
				// listening instead of leaving it waiting on a transcript.
				p.machine.Dispatch(conv.SpeechEndQueued, "VAD stop_trigger")
				p.machine.Dispatch(conv.NoCommand, "utterance too short")
				continue
			}
			p.machine.Dispatch(conv.SpeechEndQueued, "VAD stop_trigger")
			p.utterances.Put(utt)
			p.metrics.Utterances.Add(ctx, 1)
		}
	}
}
