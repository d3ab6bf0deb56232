package ttsworker

import (
	"context"
	"fmt"
	"os/exec"
)

// AplayPlayer plays WAV files through the ALSA aplay utility. Playback
// inherits ctx, so canceling the pipeline interrupts audio immediately.
type AplayPlayer struct{}

var _ Player = AplayPlayer{}

// Play runs aplay on the given file and blocks until it finishes.
func (AplayPlayer) Play(ctx context.Context, wavPath string) error {
	cmd := exec.CommandContext(ctx, "aplay", "-q", wavPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("aplay: %w: %s", err, out)
	}
	return nil
}
