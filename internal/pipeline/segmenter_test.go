package pipeline

import "testing"

const testFrameSamples = 320

// frame returns a test frame filled with the given sample value, so
// utterance content can be traced back to the frames that produced it.
func frame(val int16) []int16 {
	f := make([]int16, testFrameSamples)
	for i := range f {
		f[i] = val
	}
	return f
}

func newTestSegmenter() *Segmenter {
	return NewSegmenter(SegmenterConfig{FrameSamples: testFrameSamples})
}

// drive pushes n frames with the same voiced flag, numbering them from
// startVal, and returns the last event and utterance.
func drive(s *Segmenter, n int, voiced bool, startVal int16) (SegmentEvent, []int16) {
	var ev SegmentEvent
	var utt []int16
	for i := range n {
		ev, utt = s.Push(frame(startVal+int16(i)), voiced)
	}
	return ev, utt
}

func TestSegmenterEmitsAfterStartAndStopTriggers(t *testing.T) {
	t.Parallel()

	s := newTestSegmenter()

	// 2 voiced frames: below start trigger.
	if ev, _ := drive(s, 2, true, 0); ev != SegmentNone {
		t.Fatalf("below start trigger: want SegmentNone, got %v", ev)
	}
	// 3rd voiced frame opens the utterance.
	if ev, _ := s.Push(frame(2), true); ev != SegmentStarted {
		t.Fatalf("at start trigger: want SegmentStarted, got %v", ev)
	}

	// Keep it open long enough to clear the minimum duration.
	if ev, _ := drive(s, 10, true, 3); ev != SegmentNone {
		t.Fatalf("while capturing: want SegmentNone, got %v", ev)
	}

	// 19 unvoiced: still capturing.
	if ev, _ := drive(s, 19, false, 100); ev != SegmentNone {
		t.Fatalf("below stop trigger: want SegmentNone, got %v", ev)
	}
	// 20th unvoiced closes it.
	ev, utt := s.Push(frame(119), false)
	if ev != SegmentEnded {
		t.Fatalf("at stop trigger: want SegmentEnded, got %v", ev)
	}
	if utt == nil {
		t.Fatal("want utterance, got nil (discarded as too short)")
	}
	// preroll(3 voiced) + 10 voiced + 20 unvoiced = 33 frames.
	if want := 33 * testFrameSamples; len(utt) != want {
		t.Fatalf("utterance length: want %d samples, got %d", want, len(utt))
	}
}

func TestSegmenterVoicedRunResetByUnvoicedFrame(t *testing.T) {
	t.Parallel()

	s := newTestSegmenter()

	// Alternating voiced/unvoiced never reaches the start trigger.
	for i := range 30 {
		ev, _ := s.Push(frame(int16(i)), i%2 == 0)
		if ev != SegmentNone {
			t.Fatalf("frame %d: want SegmentNone, got %v", i, ev)
		}
	}
	if s.Capturing() {
		t.Fatal("alternating frames must not open an utterance")
	}
}

func TestSegmenterPrerollPrecedesTrigger(t *testing.T) {
	t.Parallel()

	s := newTestSegmenter()

	// 15 unvoiced frames numbered 0..14 fill the pre-roll ring exactly,
	// then 3 voiced frames 15..17 trigger. Frames 0..2 get evicted.
	drive(s, 15, false, 0)
	drive(s, 3, true, 15)

	// Capture a bit then close.
	drive(s, 10, true, 18)
	_, utt := drive(s, 20, false, 28)
	if utt == nil {
		t.Fatal("want utterance")
	}

	// First preroll sample must come from frame 3 (the oldest retained).
	if got := utt[0]; got != 3 {
		t.Fatalf("preroll head: want frame value 3, got %d", got)
	}
	// The triggering frames 15..17 sit inside the preroll region, in order.
	idx := 12 * testFrameSamples // frames 3..14 precede them
	for i, want := range []int16{15, 16, 17} {
		if got := utt[idx+i*testFrameSamples]; got != want {
			t.Fatalf("preroll frame %d: want value %d, got %d", i, want, got)
		}
	}
}

func TestSegmenterPartialPreroll(t *testing.T) {
	t.Parallel()

	s := newTestSegmenter()

	// Only the 3 triggering frames exist — preroll is just those.
	drive(s, 3, true, 0)
	drive(s, 10, true, 3)
	_, utt := drive(s, 20, false, 50)
	if utt == nil {
		t.Fatal("want utterance")
	}
	if want := 33 * testFrameSamples; len(utt) != want {
		t.Fatalf("utterance length: want %d, got %d", want, len(utt))
	}
	if utt[0] != 0 {
		t.Fatalf("want first trigger frame at head, got value %d", utt[0])
	}
}

func TestSegmenterDiscardsSubMinimumUtterance(t *testing.T) {
	t.Parallel()

	// Raise the minimum above what this capture will produce.
	s := NewSegmenter(SegmenterConfig{
		FrameSamples: testFrameSamples,
		MinSamples:   100 * testFrameSamples,
	})

	drive(s, 3, true, 0)
	ev, utt := drive(s, 20, false, 3)
	if ev != SegmentEnded {
		t.Fatalf("want SegmentEnded, got %v", ev)
	}
	if utt != nil {
		t.Fatalf("want nil utterance for sub-minimum capture, got %d samples", len(utt))
	}
	if s.Capturing() {
		t.Fatal("segmenter must be idle after discard")
	}
}

func TestSegmenterResetClearsEverything(t *testing.T) {
	t.Parallel()

	s := newTestSegmenter()
	drive(s, 3, true, 0)
	if !s.Capturing() {
		t.Fatal("want capturing before reset")
	}

	s.Reset()

	if s.Capturing() {
		t.Fatal("want idle after reset")
	}
	// Preroll must be empty: an utterance right after reset contains only
	// its own trigger frames.
	drive(s, 3, true, 40)
	drive(s, 10, true, 43)
	_, utt := drive(s, 20, false, 60)
	if utt == nil {
		t.Fatal("want utterance")
	}
	if utt[0] != 40 {
		t.Fatalf("stale preroll survived reset: head value %d, want 40", utt[0])
	}
}
