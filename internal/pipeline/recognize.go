package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/edna/internal/conv"
	"github.com/MrWong99/edna/internal/observe"
	"github.com/MrWong99/edna/pkg/provider/stt"
)

// minTranscriptLen filters one-character recognizer fragments ("a", ".")
// before wake matching.
const minTranscriptLen = 2

// recognizeLoop consumes finalized utterances, transcribes them, and
// forwards wake-matched commands to the response stage. Every consumed
// utterance resolves the state machine exactly once: TranscriptReady on a
// command, NoCommand otherwise. Returns nil once the utterance slot
// closes.
func (p *Pipeline) recognizeLoop(ctx context.Context) error {
	for {
		utt, ok := p.utterances.Take()
		if !ok {
			return nil
		}

		start := time.Now()
		text, err := p.cfg.Transcriber.Transcribe(ctx, utt)
		observe.RecordStage(ctx, p.metrics.ASRDuration, start)
		if err != nil {
			p.log.Error("transcription failed", "error", err)
			p.noCommand(ctx, "transcription failed")
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) < minTranscriptLen || strings.EqualFold(text, stt.BlankAudioMarker) {
			p.noCommand(ctx, "blank audio")
			continue
		}
		p.log.Info("transcript", "text", text)

		command, matched := p.stripper.Strip(text)
		if !matched {
			p.noCommand(ctx, "ignored transcript")
			continue
		}
		if command == "" {
			p.noCommand(ctx, "invocation only")
			continue
		}

		p.machine.Dispatch(conv.TranscriptReady, command)
		p.commands.Put(command)
	}
}

// noCommand resolves the conversation back to listening and counts the
// rejection.
func (p *Pipeline) noCommand(ctx context.Context, reason string) {
	p.machine.Dispatch(conv.NoCommand, reason)
	p.metrics.RecordNoCommand(ctx, reason)
}
