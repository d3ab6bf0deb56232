// Package pipeline runs the real-time voice interaction loop: capture
// segments microphone audio into utterances, recognition turns utterances
// into wake-matched commands, and response turns commands into spoken
// replies. The three stages run as one goroutine each and communicate
// through latest-wins queues, with the conversation state machine as the
// shared source of truth.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/edna/internal/conv"
	"github.com/MrWong99/edna/internal/observe"
	"github.com/MrWong99/edna/internal/wake"
	"github.com/MrWong99/edna/pkg/audio"
	"github.com/MrWong99/edna/pkg/provider/llm"
	"github.com/MrWong99/edna/pkg/provider/stt"
	"github.com/MrWong99/edna/pkg/provider/vad"
)

// Speaker synthesizes and plays one chunk of reply text.
// *ttsworker.Supervisor is the production implementation.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Config wires the pipeline's collaborators together.
type Config struct {
	// Device is the microphone frame source. The pipeline closes it when
	// Run returns.
	Device audio.CaptureDevice

	// Detector classifies frames as voiced or unvoiced.
	Detector vad.Detector

	// Transcriber recognizes finalized utterances.
	Transcriber stt.Transcriber

	// Reasoner generates a reply for a wake-matched command.
	Reasoner llm.Reasoner

	// Speaker speaks reply chunks.
	Speaker Speaker

	// Stripper matches and strips the wake phrase. Nil means default
	// aliases.
	Stripper *wake.Stripper

	// Segmenter holds the segmentation thresholds. Zero fields take the
	// package defaults for FrameSamples.
	Segmenter SegmenterConfig

	// CooldownFrames is the mic-gate cooldown after playback ends.
	// Default 30 frames (600 ms).
	CooldownFrames int

	// FrameSamples is the capture frame size. Default audio.FrameSamples.
	FrameSamples int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// Pipeline owns the three stage goroutines and their shared state.
type Pipeline struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	machine  *conv.Machine
	seg      *Segmenter
	gate     *MicGate
	stripper *wake.Stripper

	// utterances carries finalized audio from capture to recognition;
	// commands carries wake-matched text from recognition to response.
	utterances *Slot[[]int16]
	commands   *FIFO[string]
}

// New validates cfg and assembles a Pipeline in the Boot state.
func New(cfg Config) (*Pipeline, error) {
	var errs []error
	if cfg.Device == nil {
		errs = append(errs, errors.New("pipeline: Device is required"))
	}
	if cfg.Detector == nil {
		errs = append(errs, errors.New("pipeline: Detector is required"))
	}
	if cfg.Transcriber == nil {
		errs = append(errs, errors.New("pipeline: Transcriber is required"))
	}
	if cfg.Reasoner == nil {
		errs = append(errs, errors.New("pipeline: Reasoner is required"))
	}
	if cfg.Speaker == nil {
		errs = append(errs, errors.New("pipeline: Speaker is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if cfg.FrameSamples <= 0 {
		cfg.FrameSamples = audio.FrameSamples
	}
	if cfg.CooldownFrames <= 0 {
		cfg.CooldownFrames = 30
	}
	if cfg.Stripper == nil {
		cfg.Stripper = wake.NewStripper(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	cfg.Segmenter.FrameSamples = cfg.FrameSamples

	p := &Pipeline{
		cfg:        cfg,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		machine:    conv.New(),
		seg:        NewSegmenter(cfg.Segmenter),
		stripper:   cfg.Stripper,
		utterances: NewSlot[[]int16](),
		commands:   NewFIFO[string](),
	}
	p.gate = NewMicGate(cfg.CooldownFrames, p.seg, p.utterances)

	p.machine.SetObserver(func(from, to conv.State, why conv.Event, note string) {
		p.log.Info("conversation state changed",
			"from", from.String(), "to", to.String(),
			"event", why.String(), "note", note)
		p.metrics.RecordTransition(context.Background(), from.String(), to.String(), why.String())
	})
	return p, nil
}

// Machine exposes the conversation state machine, mainly for health
// reporting.
func (p *Pipeline) Machine() *conv.Machine { return p.machine }

// Run starts the three stage goroutines and blocks until the context is
// canceled or the capture stage hits a fatal device error. The capture
// device is closed before Run returns. Context cancellation is a clean
// shutdown and returns nil.
func (p *Pipeline) Run(ctx context.Context) error {
	p.machine.Dispatch(conv.Start, "pipeline start")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Capture owns the queue heads: when it stops, closing the
		// utterance slot ripples shutdown through the downstream stages.
		defer p.utterances.Close()
		return p.captureLoop(ctx)
	})
	g.Go(func() error {
		defer p.commands.Close()
		return p.recognizeLoop(ctx)
	})
	g.Go(func() error {
		return p.respondLoop(ctx)
	})

	err := g.Wait()

	if closeErr := p.cfg.Device.Close(); closeErr != nil {
		p.log.Warn("closing capture device", "error", closeErr)
	}
	p.machine.Dispatch(conv.Stop, "pipeline stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		p.machine.Dispatch(conv.Fail, err.Error())
		return err
	}
	return nil
}

// truncateAtStopMarker cuts reply at the first stop marker the reasoner
// leaked through and trims the result.
func truncateAtStopMarker(reply string) string {
	cut := len(reply)
	for _, marker := range llm.StopMarkers {
		if i := strings.Index(reply, marker); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(reply[:cut])
}
