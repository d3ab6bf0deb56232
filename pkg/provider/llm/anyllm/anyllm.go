// Package anyllm provides a universal [llm.Reasoner] backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// local llama.cpp/llamafile servers.
//
// The default for an on-device assistant is the llamacpp backend pointed at
// a local llama.cpp server:
//
//	r, err := anyllm.New("llamacpp", "qwen2.5-2b-instruct")
//	reply, err := r.Reply(ctx, "what time is it")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/edna/pkg/provider/llm"
)

// Compile-time assertion that *Reasoner satisfies llm.Reasoner.
var _ llm.Reasoner = (*Reasoner)(nil)

const (
	// defaultSystemPrompt keeps replies short enough to speak aloud.
	defaultSystemPrompt = "You are Edna, a helpful voice assistant. " +
		"Answer in one or two short spoken sentences. Do not use markdown, lists, or emoji."

	// defaultMaxTokens bounds reply length for low time-to-speech.
	defaultMaxTokens = 96

	defaultTemperature = 0.7
)

// Option is a functional option for configuring a Reasoner.
type Option func(*Reasoner)

// WithSystemPrompt overrides the assistant persona prompt.
func WithSystemPrompt(prompt string) Option {
	return func(r *Reasoner) { r.systemPrompt = prompt }
}

// WithMaxTokens bounds the completion length. Defaults to 96 — spoken
// replies should be short.
func WithMaxTokens(n int) Option {
	return func(r *Reasoner) { r.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Defaults to 0.7.
func WithTemperature(t float64) Option {
	return func(r *Reasoner) { r.temperature = t }
}

// Reasoner implements llm.Reasoner by wrapping any-llm-go.
type Reasoner struct {
	backend anyllmlib.Provider
	model   string

	systemPrompt string
	maxTokens    int
	temperature  float64
}

// New creates a Reasoner backed by the given provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// specific model to use. opts beyond the functional options here can be
// passed to the backend via backendOpts (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL); without an API key option the backend falls back
// to its environment variable.
func New(providerName, model string, opts []Option, backendOpts ...anyllmlib.Option) (*Reasoner, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	r := &Reasoner{
		backend:      backend,
		model:        model,
		systemPrompt: defaultSystemPrompt,
		maxTokens:    defaultMaxTokens,
		temperature:  defaultTemperature,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Reply implements llm.Reasoner.
func (r *Reasoner) Reply(ctx context.Context, command string) (string, error) {
	messages := []anyllmlib.Message{
		{Role: anyllmlib.RoleSystem, Content: r.systemPrompt},
		{Role: anyllmlib.RoleUser, Content: command},
	}

	params := anyllmlib.CompletionParams{
		Model:    r.model,
		Messages: messages,
	}
	if r.maxTokens > 0 {
		mt := r.maxTokens
		params.MaxTokens = &mt
	}
	if r.temperature != 0 {
		t := r.temperature
		params.Temperature = &t
	}

	resp, err := r.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	return resp.Choices[0].Message.ContentString(), nil
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}
