// Command edna is the main entry point for the Edna voice assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/edna/internal/config"
	"github.com/MrWong99/edna/internal/health"
	"github.com/MrWong99/edna/internal/observe"
	"github.com/MrWong99/edna/internal/pipeline"
	"github.com/MrWong99/edna/internal/ttsworker"
	"github.com/MrWong99/edna/internal/wake"
	"github.com/MrWong99/edna/pkg/provider/llm/anyllm"
	"github.com/MrWong99/edna/pkg/provider/stt/whisper"
	"github.com/MrWong99/edna/pkg/provider/vad"
	"github.com/MrWong99/edna/pkg/provider/vad/energy"

	portaudiodev "github.com/MrWong99/edna/pkg/audio/portaudio"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "edna.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "edna: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "edna: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.Slog(),
	}))
	slog.SetDefault(logger)

	slog.Info("edna starting",
		"config", *configPath,
		"log_level", cfg.Server.LogLevel,
		"sample_rate", cfg.Audio.SampleRate,
		"frame_millis", cfg.Audio.FrameMillis,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics provider ──────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Collaborators ─────────────────────────────────────────────────────────
	detector, err := energy.New(vad.Config{
		SampleRate: cfg.Audio.SampleRate,
		Mode:       vad.Aggressiveness(cfg.VAD.Mode),
	}, cfg.Audio.FrameMillis)
	if err != nil {
		slog.Error("failed to create voice activity detector", "err", err)
		return 1
	}

	transcriber, err := whisper.New(cfg.Recognizer.ModelPath,
		whisper.WithLanguage(cfg.Recognizer.Language),
		whisper.WithThreads(cfg.Recognizer.Threads),
	)
	if err != nil {
		slog.Error("failed to load recognizer model", "err", err, "model", cfg.Recognizer.ModelPath)
		return 1
	}
	defer func() {
		if err := transcriber.Close(); err != nil {
			slog.Warn("recognizer close error", "err", err)
		}
	}()
	slog.Info("recognizer ready", "model", cfg.Recognizer.ModelPath, "language", cfg.Recognizer.Language)

	reasoner, err := buildReasoner(cfg.Reasoner)
	if err != nil {
		slog.Error("failed to create reasoner", "err", err)
		return 1
	}
	slog.Info("reasoner ready", "provider", cfg.Reasoner.Provider, "model", cfg.Reasoner.Model)

	speaker, err := ttsworker.New(ttsworker.Config{
		Command:          cfg.Synthesis.Command,
		HandshakeTimeout: time.Duration(cfg.Synthesis.HandshakeTimeoutMillis) * time.Millisecond,
		RequestTimeout:   time.Duration(cfg.Synthesis.RequestTimeoutMillis) * time.Millisecond,
	}, ttsworker.WithRestartHook(func() {
		observe.DefaultMetrics().WorkerRestarts.Add(context.Background(), 1)
	}))
	if err != nil {
		slog.Error("failed to create synthesis supervisor", "err", err)
		return 1
	}
	defer func() {
		if err := speaker.Close(); err != nil {
			slog.Warn("synthesis supervisor close error", "err", err)
		}
	}()

	device, err := portaudiodev.New(cfg.Audio.SampleRate, cfg.Audio.FrameSamples())
	if err != nil {
		slog.Error("failed to open capture device", "err", err)
		return 1
	}
	// The pipeline owns the device from here and closes it when Run returns.

	pipe, err := pipeline.New(pipeline.Config{
		Device:      device,
		Detector:    detector,
		Transcriber: transcriber,
		Reasoner:    reasoner,
		Speaker:     speaker,
		Stripper: wake.NewStripper(cfg.Wake.Aliases,
			wake.WithFuzzyThreshold(cfg.Wake.FuzzyThreshold)),
		Segmenter: pipeline.SegmenterConfig{
			StartTrigger:  cfg.Segmenter.StartTrigger,
			StopTrigger:   cfg.Segmenter.StopTrigger,
			PrerollFrames: cfg.Segmenter.PrerollFrames,
			MinSamples:    cfg.MinUtteranceSamples(),
		},
		CooldownFrames: cfg.CooldownFrames(),
		FrameSamples:   cfg.Audio.FrameSamples(),
	})
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		return 1
	}

	// ── Diagnostics endpoint ──────────────────────────────────────────────────
	if cfg.Server.MetricsAddr != "" {
		go serveDiagnostics(ctx, cfg.Server.MetricsAddr, pipe, speaker)
	}

	slog.Info("listening — press Ctrl+C to shut down")

	if err := pipe.Run(ctx); err != nil {
		slog.Error("pipeline error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildReasoner constructs the any-llm backend from config.
func buildReasoner(cfg config.ReasonerConfig) (*anyllm.Reasoner, error) {
	var opts []anyllm.Option
	if cfg.SystemPrompt != "" {
		opts = append(opts, anyllm.WithSystemPrompt(cfg.SystemPrompt))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, anyllm.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature > 0 {
		opts = append(opts, anyllm.WithTemperature(cfg.Temperature))
	}

	var backendOpts []anyllmlib.Option
	if cfg.APIKey != "" {
		backendOpts = append(backendOpts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		backendOpts = append(backendOpts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	return anyllm.New(cfg.Provider, cfg.Model, opts, backendOpts...)
}

// serveDiagnostics exposes /metrics, /healthz, and /readyz until ctx is
// canceled.
func serveDiagnostics(ctx context.Context, addr string, pipe *pipeline.Pipeline, speaker *ttsworker.Supervisor) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(
		health.ConversationReady(pipe.Machine()),
		health.SynthesisReady(speaker),
	).Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("diagnostics endpoint up", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("diagnostics server error", "err", err)
	}
}
