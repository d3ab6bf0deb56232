package pipeline

import (
	"context"
	"time"

	"github.com/MrWong99/edna/internal/conv"
	"github.com/MrWong99/edna/internal/observe"
	"github.com/MrWong99/edna/internal/sentence"
)

// respondLoop consumes commands, asks the reasoner for a reply, and speaks
// it sentence by sentence so the first chunk plays while later ones are
// still synthesizing. TtsDone is dispatched after every reply that reached
// Speaking, even when synthesis fails partway, so the conversation always
// returns to listening. Returns nil once the command queue closes.
func (p *Pipeline) respondLoop(ctx context.Context) error {
	for {
		command, ok := p.commands.Take()
		if !ok {
			return nil
		}

		start := time.Now()
		reply, err := p.cfg.Reasoner.Reply(ctx, command)
		observe.RecordStage(ctx, p.metrics.LLMDuration, start)
		if err != nil {
			p.log.Error("reply generation failed", "error", err)
			p.noCommand(ctx, "reasoner failed")
			continue
		}

		reply = truncateAtStopMarker(reply)
		if reply == "" {
			p.noCommand(ctx, "empty reply")
			continue
		}
		p.log.Info("reply", "text", reply)

		p.machine.Dispatch(conv.ReplyReady, reply)
		for _, chunk := range sentence.Split(reply) {
			ttsStart := time.Now()
			err := p.cfg.Speaker.Speak(ctx, chunk)
			observe.RecordStage(ctx, p.metrics.TTSDuration, ttsStart)
			if err != nil {
				// Remaining chunks would fail the same way; the reply is
				// abandoned rather than spoken with a hole in the middle.
				p.log.Error("synthesis failed", "error", err)
				break
			}
		}
		p.machine.Dispatch(conv.TtsDone, "playback finished")
	}
}
