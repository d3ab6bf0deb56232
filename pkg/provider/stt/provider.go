// Package stt defines the Transcriber interface for speech-to-text
// backends.
//
// The edna pipeline is strictly single-utterance-at-a-time: the segmenter
// hands over one complete bounded utterance, the recognizer turns it into
// text, and nothing else is in flight. Batch transcription is therefore the
// right contract — there is no streaming session to manage.
//
// Implementations must be safe to call repeatedly; the recognition task
// serialises calls, so at most one Transcribe is active at a time.
package stt

import "context"

// BlankAudioMarker is the sentinel some recognizers emit for audio that
// contains no discernible speech. Callers compare case-insensitively.
const BlankAudioMarker = "[BLANK_AUDIO]"

// Transcriber converts one utterance of mono S16LE PCM into text.
type Transcriber interface {
	// Transcribe runs recognition over the complete utterance and returns
	// the transcript. An empty string or [BlankAudioMarker] means no speech
	// was recognised; neither is an error. Transcription can take hundreds
	// of milliseconds — callers must not hold locks across this call.
	Transcribe(ctx context.Context, samples []int16) (string, error)
}
