package pipeline

// Segmenter turns a stream of (frame, voiced) pairs into bounded
// utterances. It debounces the raw per-frame VAD decisions with run
// counters: StartTrigger consecutive voiced frames open an utterance,
// StopTrigger consecutive unvoiced frames close it. A rolling pre-roll ring
// of the most recent frames is maintained at all times — including while
// idle — and is prepended to every utterance so the onset of speech is
// never clipped.
//
// Segmenter is owned by the capture goroutine and is not safe for
// concurrent use.
type Segmenter struct {
	startTrigger      int
	stopTrigger       int
	maxPrerollSamples int
	minSamples        int

	preroll   []int16
	utterance []int16
	inSpeech  bool
	voiced    int
	unvoiced  int
}

// SegmenterConfig holds the segmentation thresholds. The defaults assume
// the canonical 20 ms / 16 kHz frame cadence.
type SegmenterConfig struct {
	// StartTrigger is the number of consecutive voiced frames required to
	// open an utterance. Default 3 (60 ms).
	StartTrigger int

	// StopTrigger is the number of consecutive unvoiced frames required to
	// close an utterance. Default 20 (400 ms).
	StopTrigger int

	// PrerollFrames is the depth of the rolling pre-roll ring. Default 15
	// (300 ms).
	PrerollFrames int

	// FrameSamples is the number of samples per frame.
	FrameSamples int

	// MinSamples is the minimum utterance length; shorter utterances are
	// treated as noise and never reach the recognition queue. Default
	// 0.20 s worth of samples.
	MinSamples int
}

// SegmentEvent reports what a pushed frame did to the segmenter.
type SegmentEvent int

const (
	// SegmentNone means the frame changed nothing observable.
	SegmentNone SegmentEvent = iota

	// SegmentStarted means the frame completed the start trigger and an
	// utterance is now being captured.
	SegmentStarted

	// SegmentEnded means the frame completed the stop trigger and the
	// utterance was finalized. The utterance is returned alongside unless
	// it was shorter than the minimum duration.
	SegmentEnded
)

// NewSegmenter creates a Segmenter. Zero config fields take the documented
// defaults relative to frameSamples.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	if cfg.StartTrigger <= 0 {
		cfg.StartTrigger = 3
	}
	if cfg.StopTrigger <= 0 {
		cfg.StopTrigger = 20
	}
	if cfg.PrerollFrames <= 0 {
		cfg.PrerollFrames = 15
	}
	if cfg.MinSamples <= 0 {
		// 0.20 s at the 20 ms cadence: 10 frames.
		cfg.MinSamples = 10 * cfg.FrameSamples
	}
	return &Segmenter{
		startTrigger:      cfg.StartTrigger,
		stopTrigger:       cfg.StopTrigger,
		maxPrerollSamples: cfg.PrerollFrames * cfg.FrameSamples,
		minSamples:        cfg.MinSamples,
	}
}

// Push feeds one frame and its VAD decision into the segmenter. On
// SegmentEnded the finalized utterance is returned; a nil utterance with
// SegmentEnded means the capture was shorter than the minimum duration and
// was discarded as noise.
func (s *Segmenter) Push(frame []int16, voiced bool) (SegmentEvent, []int16) {
	if !s.inSpeech {
		s.pushPreroll(frame)

		if voiced {
			s.voiced++
		} else {
			s.voiced = 0
		}
		if s.voiced < s.startTrigger {
			return SegmentNone, nil
		}

		// Speech onset: seed the utterance with the pre-roll, which already
		// contains the triggering frames.
		s.inSpeech = true
		s.voiced = 0
		s.unvoiced = 0
		s.utterance = append(s.utterance[:0], s.preroll...)
		return SegmentStarted, nil
	}

	// Capturing: every frame is kept, voiced or not.
	s.utterance = append(s.utterance, frame...)

	if voiced {
		s.unvoiced = 0
		return SegmentNone, nil
	}
	s.unvoiced++
	if s.unvoiced < s.stopTrigger {
		return SegmentNone, nil
	}

	// Speech end.
	s.inSpeech = false
	s.unvoiced = 0

	out := s.utterance
	s.utterance = nil

	if len(out) < s.minSamples {
		return SegmentEnded, nil
	}
	return SegmentEnded, out
}

// Reset unconditionally clears pre-roll, run counters, and any partially
// captured utterance. The mic gate calls this on every suppressed frame.
func (s *Segmenter) Reset() {
	s.inSpeech = false
	s.voiced = 0
	s.unvoiced = 0
	s.utterance = nil
	s.preroll = s.preroll[:0]
}

// Capturing reports whether an utterance is currently open.
func (s *Segmenter) Capturing() bool { return s.inSpeech }

// pushPreroll appends frame to the rolling ring, evicting the oldest
// samples beyond the configured depth.
func (s *Segmenter) pushPreroll(frame []int16) {
	s.preroll = append(s.preroll, frame...)
	if extra := len(s.preroll) - s.maxPrerollSamples; extra > 0 {
		s.preroll = append(s.preroll[:0], s.preroll[extra:]...)
	}
}
