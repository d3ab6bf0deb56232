// Package config provides the configuration schema and loader for the Edna
// voice assistant.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l onto the corresponding slog level. Unknown levels map to
// Info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidReasonerProviders lists the provider names the reasoner backend
// accepts. Used by [Validate] to catch typos early instead of failing at
// the first spoken command.
var ValidReasonerProviders = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral",
	"groq", "llamacpp", "llamafile",
}

// Config is the root configuration structure for Edna.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Audio      AudioConfig      `yaml:"audio"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	MicGate    MicGateConfig    `yaml:"mic_gate"`
	Wake       WakeConfig       `yaml:"wake"`
	VAD        VADConfig        `yaml:"vad"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Reasoner   ReasonerConfig   `yaml:"reasoner"`
	Synthesis  SynthesisConfig  `yaml:"synthesis"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Default "info".
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AudioConfig holds capture device settings.
type AudioConfig struct {
	// SampleRate in Hz. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// FrameMillis is the frame duration. Default 20.
	FrameMillis int `yaml:"frame_millis"`
}

// FrameSamples returns the per-frame sample count implied by the sample
// rate and frame duration.
func (a AudioConfig) FrameSamples() int {
	return a.SampleRate * a.FrameMillis / 1000
}

// SegmenterConfig holds the utterance segmentation thresholds.
type SegmenterConfig struct {
	// StartTrigger is the number of consecutive voiced frames that opens
	// an utterance. Default 3.
	StartTrigger int `yaml:"start_trigger"`

	// StopTrigger is the number of consecutive unvoiced frames that closes
	// an utterance. Default 20.
	StopTrigger int `yaml:"stop_trigger"`

	// PrerollFrames is the depth of the pre-speech ring. Default 15.
	PrerollFrames int `yaml:"preroll_frames"`

	// MinUtteranceMillis is the minimum utterance duration; shorter
	// captures are dropped as noise. Default 200.
	MinUtteranceMillis int `yaml:"min_utterance_millis"`
}

// MicGateConfig holds the echo-suppression settings.
type MicGateConfig struct {
	// CooldownMillis is how long capture stays suppressed after playback
	// ends. Default 600.
	CooldownMillis int `yaml:"cooldown_millis"`
}

// WakeConfig holds the wake-phrase settings.
type WakeConfig struct {
	// Aliases overrides the built-in wake-phrase list. Empty keeps the
	// defaults.
	Aliases []string `yaml:"aliases"`

	// FuzzyThreshold is the minimum Jaro-Winkler similarity for the
	// mishear fallback. Default 0.88; above 1 disables fuzzy matching.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// VADConfig holds the voice-activity-detection settings.
type VADConfig struct {
	// Mode is the detection aggressiveness, 0 (quality) to 3
	// (very aggressive). Default 2.
	Mode int `yaml:"mode"`
}

// RecognizerConfig holds the speech-to-text settings.
type RecognizerConfig struct {
	// ModelPath is the whisper.cpp model file. Required.
	ModelPath string `yaml:"model_path"`

	// Language is the recognition language code. Default "en".
	Language string `yaml:"language"`

	// Threads is the number of decode threads. Zero lets the model pick.
	Threads int `yaml:"threads"`
}

// ReasonerConfig holds the reply-generation settings.
type ReasonerConfig struct {
	// Provider selects the backend; see [ValidReasonerProviders].
	// Default "llamacpp".
	Provider string `yaml:"provider"`

	// Model is the provider-specific model name. Required.
	Model string `yaml:"model"`

	// APIKey authenticates against hosted providers. Not needed for local
	// backends.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// SystemPrompt overrides the assistant persona prompt.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxTokens bounds reply length. Zero keeps the built-in default.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature sets the sampling temperature. Zero keeps the built-in
	// default.
	Temperature float64 `yaml:"temperature"`
}

// SynthesisConfig holds the speech-synthesis worker settings.
type SynthesisConfig struct {
	// Command is the worker argv (e.g., ["python3", "tts_worker.py"]).
	// Required.
	Command []string `yaml:"command"`

	// HandshakeTimeoutMillis bounds model loading. Default 10000.
	HandshakeTimeoutMillis int `yaml:"handshake_timeout_millis"`

	// RequestTimeoutMillis bounds each synthesis request. Default 30000.
	RequestTimeoutMillis int `yaml:"request_timeout_millis"`
}

// ApplyDefaults fills zero fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameMillis == 0 {
		c.Audio.FrameMillis = 20
	}
	if c.Segmenter.StartTrigger == 0 {
		c.Segmenter.StartTrigger = 3
	}
	if c.Segmenter.StopTrigger == 0 {
		c.Segmenter.StopTrigger = 20
	}
	if c.Segmenter.PrerollFrames == 0 {
		c.Segmenter.PrerollFrames = 15
	}
	if c.Segmenter.MinUtteranceMillis == 0 {
		c.Segmenter.MinUtteranceMillis = 200
	}
	if c.MicGate.CooldownMillis == 0 {
		c.MicGate.CooldownMillis = 600
	}
	if c.Wake.FuzzyThreshold == 0 {
		c.Wake.FuzzyThreshold = 0.88
	}
	if c.VAD.Mode == 0 {
		c.VAD.Mode = 2
	}
	if c.Recognizer.Language == "" {
		c.Recognizer.Language = "en"
	}
	if c.Reasoner.Provider == "" {
		c.Reasoner.Provider = "llamacpp"
	}
	if c.Synthesis.HandshakeTimeoutMillis == 0 {
		c.Synthesis.HandshakeTimeoutMillis = 10000
	}
	if c.Synthesis.RequestTimeoutMillis == 0 {
		c.Synthesis.RequestTimeoutMillis = 30000
	}
}

// CooldownFrames returns the mic-gate cooldown expressed in capture
// frames, rounding up so a partial frame still suppresses capture.
func (c *Config) CooldownFrames() int {
	return (c.MicGate.CooldownMillis + c.Audio.FrameMillis - 1) / c.Audio.FrameMillis
}

// MinUtteranceSamples returns the minimum utterance length in samples.
func (c *Config) MinUtteranceSamples() int {
	return c.Audio.SampleRate * c.Segmenter.MinUtteranceMillis / 1000
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	switch cfg.Audio.FrameMillis {
	case 10, 20, 30:
	default:
		errs = append(errs, fmt.Errorf("audio.frame_millis %d is invalid; valid values: 10, 20, 30", cfg.Audio.FrameMillis))
	}

	if cfg.Segmenter.StartTrigger < 0 {
		errs = append(errs, fmt.Errorf("segmenter.start_trigger %d must not be negative", cfg.Segmenter.StartTrigger))
	}
	if cfg.Segmenter.StopTrigger < 0 {
		errs = append(errs, fmt.Errorf("segmenter.stop_trigger %d must not be negative", cfg.Segmenter.StopTrigger))
	}
	if cfg.Segmenter.PrerollFrames < 0 {
		errs = append(errs, fmt.Errorf("segmenter.preroll_frames %d must not be negative", cfg.Segmenter.PrerollFrames))
	}

	if cfg.MicGate.CooldownMillis < 0 {
		errs = append(errs, fmt.Errorf("mic_gate.cooldown_millis %d must not be negative", cfg.MicGate.CooldownMillis))
	}

	if cfg.VAD.Mode < 0 || cfg.VAD.Mode > 3 {
		errs = append(errs, fmt.Errorf("vad.mode %d is out of range [0, 3]", cfg.VAD.Mode))
	}

	if cfg.Recognizer.ModelPath == "" {
		errs = append(errs, errors.New("recognizer.model_path is required"))
	}
	if cfg.Recognizer.Threads < 0 {
		errs = append(errs, fmt.Errorf("recognizer.threads %d must not be negative", cfg.Recognizer.Threads))
	}

	if cfg.Reasoner.Model == "" {
		errs = append(errs, errors.New("reasoner.model is required"))
	}
	if cfg.Reasoner.Provider != "" && !slices.Contains(ValidReasonerProviders, cfg.Reasoner.Provider) {
		// Unknown names are a hard error here, unlike a typo'd wake alias:
		// the backend constructor would reject them anyway.
		errs = append(errs, fmt.Errorf("reasoner.provider %q is invalid; valid values: %v", cfg.Reasoner.Provider, ValidReasonerProviders))
	}
	if cfg.Reasoner.Temperature < 0 || cfg.Reasoner.Temperature > 2 {
		errs = append(errs, fmt.Errorf("reasoner.temperature %.2f is out of range [0, 2]", cfg.Reasoner.Temperature))
	}

	if len(cfg.Synthesis.Command) == 0 {
		errs = append(errs, errors.New("synthesis.command is required"))
	}

	if cfg.Wake.FuzzyThreshold < 0 {
		errs = append(errs, fmt.Errorf("wake.fuzzy_threshold %.2f must not be negative", cfg.Wake.FuzzyThreshold))
	}
	if cfg.Wake.FuzzyThreshold > 1 {
		slog.Warn("wake.fuzzy_threshold above 1 disables fuzzy wake matching",
			"threshold", cfg.Wake.FuzzyThreshold)
	}

	return errors.Join(errs...)
}
