// Package whisper provides a whisper.cpp-backed implementation of
// [stt.Transcriber] using the official CGO bindings.
//
// The model is loaded once at construction and shared across calls; each
// Transcribe creates a fresh whisper context because contexts are not
// thread-safe while the model is. The whisper.cpp static library
// (libwhisper.a) and headers must be available at link time via
// LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/edna/pkg/provider/stt"
)

// Compile-time assertion that *Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

const defaultLanguage = "en"

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en",
// "de"). Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithThreads sets the number of CPU threads whisper.cpp may use per
// inference. Zero (the default) lets the bindings pick.
func WithThreads(n int) Option {
	return func(t *Transcriber) { t.threads = n }
}

// Transcriber implements stt.Transcriber on top of a loaded whisper.cpp
// model. Safe for concurrent use; each call gets its own context.
type Transcriber struct {
	model    whisperlib.Model
	language string
	threads  int
}

// New loads the whisper.cpp model at modelPath. The caller must call Close
// when the transcriber is no longer needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe runs batch inference over the utterance and returns the
// concatenated segment text.
func (t *Transcriber) Transcribe(ctx context.Context, samples []int16) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	if len(samples) == 0 {
		return "", nil
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", t.language, "error", err)
	}
	if t.threads > 0 {
		wctx.SetThreads(uint(t.threads))
	}

	if err := wctx.Process(toFloat32(samples), nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		parts = append(parts, segment.Text)
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

// toFloat32 converts S16LE PCM samples to the normalised float32 mono
// buffer whisper.cpp expects.
func toFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
