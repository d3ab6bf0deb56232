// Package ttsworker supervises an external speech-synthesis worker
// process and plays back the audio it produces.
//
// The worker speaks a line protocol on its standard streams: it prints
// "READY" once its model is loaded, then answers each request line with
// exactly one reply line, either the path of a rendered WAV file or
// "ERR <message>". Standard error passes through to the supervisor's own
// stderr so model load logs stay visible.
//
// The worker is spawned lazily on the first Speak and respawned at most
// once per Speak after a failure. A transport failure (handshake timeout,
// write error, reply timeout, child exit) tears the process down; when it
// hits a freshly spawned worker the supervisor marks synthesis disabled,
// which bounds the damage to one spawn attempt per Speak instead of
// respawn-looping a broken worker inside a single call. An "ERR <message>"
// reply is not a transport failure: the round-trip completed, so the
// worker stays ready and only that request fails.
package ttsworker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// WorkerState describes the supervisor's view of the child process.
type WorkerState int

const (
	// StateAbsent means no child process exists; the next Speak spawns one.
	StateAbsent WorkerState = iota

	// StateAwaitingHandshake means the child is starting and READY has not
	// arrived yet. Only observable from another goroutine during spawn.
	StateAwaitingHandshake

	// StateReady means the child completed the handshake and accepts
	// requests.
	StateReady

	// StateDisabled means the most recent spawn attempt failed outright.
	// Each subsequent Speak still tries one fresh spawn, so a worker whose
	// fault was transient (model still warming, device briefly busy) can
	// come back.
	StateDisabled
)

// String returns the state name for logs.
func (s WorkerState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateAwaitingHandshake:
		return "awaiting-handshake"
	case StateReady:
		return "ready"
	case StateDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// errReplyPrefix marks a worker-reported synthesis failure on the reply
// line.
const errReplyPrefix = "ERR "

// workerError is a synthesis failure the worker reported on its reply
// line. The protocol round-trip completed, so the process stays usable.
type workerError struct{ msg string }

func (e *workerError) Error() string { return "ttsworker: worker error: " + e.msg }

// quitCommand asks the worker to exit cleanly.
const quitCommand = "__quit__"

// Config configures a Supervisor.
type Config struct {
	// Command is the argv of the worker process. Must not be empty.
	Command []string

	// HandshakeTimeout bounds the wait for the READY line, which covers
	// model loading. Default 10s.
	HandshakeTimeout time.Duration

	// RequestTimeout bounds the wait for each reply line. Default 30s.
	RequestTimeout time.Duration

	// QuitGrace is how long teardown waits after the quit command before
	// killing the process. Default 200ms.
	QuitGrace time.Duration
}

func (c *Config) applyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.QuitGrace <= 0 {
		c.QuitGrace = 200 * time.Millisecond
	}
}

// Player plays a rendered WAV file to the output device.
type Player interface {
	// Play blocks until playback finishes or ctx is canceled.
	Play(ctx context.Context, wavPath string) error
}

// Supervisor owns the worker process and serializes requests to it.
// All methods are safe for concurrent use; playback happens outside the
// process lock so teardown is never blocked on the audio device.
type Supervisor struct {
	cfg    Config
	player Player
	log    *slog.Logger

	mu      sync.Mutex
	state   WorkerState
	lastErr error
	proc    *process

	// everSpawned distinguishes the lazy first spawn from a respawn after
	// a crash.
	everSpawned bool

	// hooks for observability, nil-safe.
	onRestart func()
}

// Option is a functional option for configuring a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithPlayer overrides the playback backend. Defaults to an aplay-based
// player.
func WithPlayer(p Player) Option {
	return func(s *Supervisor) { s.player = p }
}

// WithRestartHook registers a callback invoked on every respawn attempt
// after a crash.
func WithRestartHook(fn func()) Option {
	return func(s *Supervisor) { s.onRestart = fn }
}

// New creates a Supervisor. The worker is not spawned until the first
// Speak.
func New(cfg Config, opts ...Option) (*Supervisor, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("ttsworker: empty worker command")
	}
	cfg.applyDefaults()

	s := &Supervisor{
		cfg:    cfg,
		state:  StateAbsent,
		player: AplayPlayer{},
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// State returns the supervisor's current view of the worker.
func (s *Supervisor) State() WorkerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the most recent synthesis failure, or nil if the
// last request succeeded.
func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Speak synthesizes text and plays the result. Multi-line text is
// flattened to one line because the protocol is line-delimited. When no
// ready worker exists — never spawned, crashed since the last request, or
// disabled by an earlier failure — exactly one spawn is attempted before
// the call fails.
func (s *Supervisor) Speak(ctx context.Context, text string) error {
	wavPath, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}

	if err := s.player.Play(ctx, wavPath); err != nil {
		return fmt.Errorf("ttsworker: playback of %s: %w", wavPath, err)
	}
	return nil
}

// synthesize runs the request under the process lock and returns the WAV
// path.
func (s *Supervisor) synthesize(ctx context.Context, text string) (string, error) {
	line := strings.Join(strings.Fields(text), " ")
	if line == "" {
		return "", errors.New("ttsworker: empty synthesis request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.state != StateReady
	if fresh {
		if s.everSpawned {
			// Previous child crashed or failed to come up; try exactly
			// once more on this call.
			if s.onRestart != nil {
				s.onRestart()
			}
			s.log.Warn("respawning synthesis worker after failure", "error", s.lastErr)
		}
		s.everSpawned = true
		if err := s.spawnLocked(ctx); err != nil {
			s.disableLocked(err)
			return "", err
		}
	}

	wavPath, err := s.requestLocked(ctx, line)
	if err == nil {
		s.lastErr = nil
		return wavPath, nil
	}

	var wErr *workerError
	if errors.As(err, &wErr) {
		// The worker answered the protocol; only this request failed.
		s.lastErr = err
		s.log.Warn("synthesis request failed", "error", err)
		return "", err
	}

	s.teardownLocked()
	if fresh || errors.Is(err, context.Canceled) {
		// A fresh worker that cannot serve a request will not be revived
		// by another spawn on the same call.
		s.disableLocked(err)
		return "", err
	}

	// Stale worker died between requests; mark absent so the next Speak
	// attempts one respawn.
	s.state = StateAbsent
	s.lastErr = err
	return "", err
}

// spawnLocked starts the child and waits for the READY handshake.
func (s *Supervisor) spawnLocked(ctx context.Context) error {
	s.state = StateAwaitingHandshake
	p, err := startProcess(s.cfg.Command)
	if err != nil {
		return fmt.Errorf("ttsworker: start %s: %w", s.cfg.Command[0], err)
	}
	s.proc = p

	s.log.Info("synthesis worker started", "command", s.cfg.Command[0], "pid", p.pid())

	line, err := p.readLine(ctx, s.cfg.HandshakeTimeout)
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("ttsworker: handshake: %w", err)
	}
	if line != "READY" {
		s.teardownLocked()
		return fmt.Errorf("ttsworker: handshake: want READY, got %q", line)
	}

	s.state = StateReady
	s.log.Info("synthesis worker ready")
	return nil
}

// requestLocked sends one request line and decodes the reply.
func (s *Supervisor) requestLocked(ctx context.Context, line string) (string, error) {
	if err := s.proc.writeLine(line); err != nil {
		return "", fmt.Errorf("ttsworker: send request: %w", err)
	}

	reply, err := s.proc.readLine(ctx, s.cfg.RequestTimeout)
	if err != nil {
		return "", fmt.Errorf("ttsworker: await reply: %w", err)
	}
	if msg, isErr := strings.CutPrefix(reply, errReplyPrefix); isErr {
		return "", &workerError{msg: msg}
	}
	return reply, nil
}

// disableLocked records err and marks synthesis disabled until a later
// Speak's spawn attempt succeeds.
func (s *Supervisor) disableLocked(err error) {
	s.state = StateDisabled
	s.lastErr = err
	s.log.Error("synthesis disabled", "error", err)
}

// teardownLocked shuts the child down: quit command, grace period, kill.
// Idempotent; safe on an already-dead child.
func (s *Supervisor) teardownLocked() {
	if s.proc == nil {
		return
	}
	s.proc.shutdown(s.cfg.QuitGrace)
	s.proc = nil
}

// Close tears down the worker if one is running. The supervisor ends in
// StateAbsent unless it was already disabled.
func (s *Supervisor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	if s.state != StateDisabled {
		s.state = StateAbsent
	}
	return nil
}

// process wraps one spawned worker with its pipes and reader goroutine.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	// lines carries stdout lines from the reader goroutine; closed when
	// the reader exits (stdout EOF or shutdown).
	lines chan string

	// done releases the reader goroutine on shutdown even when it is
	// blocked handing over an unsolicited line nobody will read.
	done chan struct{}

	shutdownOnce sync.Once
}

func startProcess(argv []string) (*process, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case p.lines <- strings.TrimSpace(sc.Text()):
			case <-p.done:
				return
			}
		}
	}()
	return p, nil
}

func (p *process) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) writeLine(line string) error {
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

// readLine waits for the next stdout line, bounded by timeout and ctx.
func (p *process) readLine(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", errors.New("worker exited")
		}
		return line, nil
	case <-timer.C:
		return "", fmt.Errorf("no reply within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// shutdown asks the child to quit, waits for the grace period, then
// kills it. Reaps the child in either case.
func (p *process) shutdown(grace time.Duration) {
	p.shutdownOnce.Do(func() {
		close(p.done)

		// Best effort; the pipe may already be broken.
		_, _ = io.WriteString(p.stdin, quitCommand+"\n")
		_ = p.stdin.Close()

		done := make(chan struct{})
		go func() {
			_ = p.cmd.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(grace):
			_ = p.cmd.Process.Kill()
			<-done
		}
	})
}
