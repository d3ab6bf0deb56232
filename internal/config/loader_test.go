package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/edna/internal/config"
)

const sampleYAML = `
server:
  log_level: debug
  metrics_addr: ":9090"

audio:
  sample_rate: 16000
  frame_millis: 20

segmenter:
  start_trigger: 3
  stop_trigger: 20
  preroll_frames: 15
  min_utterance_millis: 200

mic_gate:
  cooldown_millis: 600

wake:
  aliases:
    - hey edna
    - edna
  fuzzy_threshold: 0.9

vad:
  mode: 3

recognizer:
  model_path: /models/ggml-base.en.bin
  language: en
  threads: 4

reasoner:
  provider: ollama
  model: llama3.2
  base_url: http://localhost:11434

synthesis:
  command: ["python3", "tts_worker.py", "--voice", "jenny"]
  handshake_timeout_millis: 15000
`

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("metrics addr = %q, want :9090", cfg.Server.MetricsAddr)
	}
	if got := cfg.Wake.Aliases; len(got) != 2 || got[0] != "hey edna" {
		t.Errorf("wake aliases = %q", got)
	}
	if cfg.VAD.Mode != 3 {
		t.Errorf("vad mode = %d, want 3", cfg.VAD.Mode)
	}
	if cfg.Reasoner.Provider != "ollama" || cfg.Reasoner.Model != "llama3.2" {
		t.Errorf("reasoner = %q/%q", cfg.Reasoner.Provider, cfg.Reasoner.Model)
	}
	if got := cfg.Synthesis.Command; len(got) != 4 || got[0] != "python3" {
		t.Errorf("synthesis command = %q", got)
	}
	if cfg.Synthesis.HandshakeTimeoutMillis != 15000 {
		t.Errorf("handshake timeout = %d, want 15000", cfg.Synthesis.HandshakeTimeoutMillis)
	}
	// Omitted field takes its default.
	if cfg.Synthesis.RequestTimeoutMillis != 30000 {
		t.Errorf("request timeout = %d, want default 30000", cfg.Synthesis.RequestTimeoutMillis)
	}
}

func TestLoadFromReader_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	yaml := `
recogniser:
  model_path: /models/x.bin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("want error for misspelled top-level key")
	}
}

func TestLoadFromReader_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	yaml := `
recognizer:
  model_path: /models/x.bin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("want validation error for missing reasoner and synthesis sections")
	}
	if !strings.Contains(err.Error(), "reasoner.model") {
		t.Errorf("error %q should mention reasoner.model", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "edna.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Recognizer.ModelPath != "/models/ggml-base.en.bin" {
		t.Errorf("model path = %q", cfg.Recognizer.ModelPath)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("want error for missing file")
	}
	if !strings.Contains(err.Error(), "open") {
		t.Errorf("error %q should mention open", err)
	}
}
