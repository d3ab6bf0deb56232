package pipeline

// MicGate suppresses microphone input while the device is speaking and for
// a short cooldown afterwards, so the recognizer never hears the device's
// own synthesized speech or stale room echo queued during playback.
//
// The cooldown counter is armed exactly once per playback episode, on the
// falling edge of "was speaking, now not speaking"; gated frames decrement
// it but never re-arm it. Every suppressed frame hard-resets the segmenter
// and drains the pending-utterance slot.
//
// MicGate is owned by the capture goroutine and is not safe for concurrent
// use.
type MicGate struct {
	cooldownFrames int
	remaining      int
	wasSpeaking    bool

	seg   *Segmenter
	audio *Slot[[]int16]
}

// NewMicGate creates a gate that suppresses cooldownFrames frames after
// each playback episode and resets seg / drains audio on suppression.
func NewMicGate(cooldownFrames int, seg *Segmenter, audio *Slot[[]int16]) *MicGate {
	return &MicGate{
		cooldownFrames: cooldownFrames,
		seg:            seg,
		audio:          audio,
	}
}

// Admit decides whether the current frame may reach the segmenter, given
// whether the conversation state is Speaking right now. A false return
// means the frame was discarded and the segmenter and audio slot have
// already been cleared.
func (g *MicGate) Admit(speaking bool) bool {
	// Falling edge out of Speaking arms the cooldown once.
	if g.wasSpeaking && !speaking {
		g.remaining = g.cooldownFrames
	}
	g.wasSpeaking = speaking

	if !speaking && g.remaining == 0 {
		return true
	}

	if g.remaining > 0 {
		g.remaining--
	}
	g.seg.Reset()
	g.audio.Drain()
	return false
}
