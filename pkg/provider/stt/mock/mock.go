// Package mock provides a test double for [stt.Transcriber].
//
// Script transcripts with the Results slice; once exhausted every call
// returns Default. Submitted utterances are recorded for inspection.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/edna/pkg/provider/stt"
)

// Transcriber is a scripted implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Results is consumed one entry per Transcribe call.
	Results []string

	// Default is returned once Results is exhausted.
	Default string

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// Calls records a copy of every utterance submitted, in order.
	Calls [][]int16
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe records the call and pops the next scripted transcript.
func (t *Transcriber) Transcribe(_ context.Context, samples []int16) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cp := make([]int16, len(samples))
	copy(cp, samples)
	t.Calls = append(t.Calls, cp)

	if t.TranscribeErr != nil {
		return "", t.TranscribeErr
	}
	if len(t.Results) == 0 {
		return t.Default, nil
	}
	r := t.Results[0]
	t.Results = t.Results[1:]
	return r, nil
}
