package ttsworker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingPlayer captures the paths handed to Play instead of touching
// an audio device.
type recordingPlayer struct {
	mu      sync.Mutex
	paths   []string
	playErr error
}

func (p *recordingPlayer) Play(_ context.Context, wavPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, wavPath)
	return p.playErr
}

func (p *recordingPlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

// shWorker builds a supervisor whose child is an inline shell script, so
// the line protocol can be exercised without a real synthesis model.
func shWorker(t *testing.T, script string, opts ...Option) (*Supervisor, *recordingPlayer) {
	t.Helper()

	player := &recordingPlayer{}
	s, err := New(Config{
		Command:          []string{"sh", "-c", script},
		HandshakeTimeout: 2 * time.Second,
		RequestTimeout:   2 * time.Second,
	}, append([]Option{WithPlayer(player)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, player
}

const echoWorker = `echo READY
while read line; do
	if [ "$line" = "__quit__" ]; then exit 0; fi
	echo "/tmp/$line.wav"
done`

func TestSpeakHappyPath(t *testing.T) {
	t.Parallel()

	s, player := shWorker(t, echoWorker)

	if st := s.State(); st != StateAbsent {
		t.Fatalf("before first Speak: state %v, want %v", st, StateAbsent)
	}
	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if st := s.State(); st != StateReady {
		t.Fatalf("after Speak: state %v, want %v", st, StateReady)
	}
	if got := player.played(); len(got) != 1 || got[0] != "/tmp/hello.wav" {
		t.Fatalf("played %q, want [/tmp/hello.wav]", got)
	}
	if err := s.LastError(); err != nil {
		t.Fatalf("LastError: %v, want nil", err)
	}
}

func TestSpeakFlattensMultilineText(t *testing.T) {
	t.Parallel()

	s, player := shWorker(t, echoWorker)

	if err := s.Speak(context.Background(), "two\nlines  here"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if got := player.played(); len(got) != 1 || got[0] != "/tmp/two lines here.wav" {
		t.Fatalf("played %q, want flattened request", got)
	}
}

func TestSpeakEmptyTextDoesNotSpawn(t *testing.T) {
	t.Parallel()

	s, player := shWorker(t, echoWorker)

	if err := s.Speak(context.Background(), "  \n "); err == nil {
		t.Fatal("want error for empty text")
	}
	if st := s.State(); st != StateAbsent {
		t.Fatalf("state %v, want %v (no spawn)", st, StateAbsent)
	}
	if len(player.played()) != 0 {
		t.Fatal("nothing must be played")
	}
}

func TestWorkerErrorReplyKeepsWorkerReady(t *testing.T) {
	t.Parallel()

	restarts := 0
	s, player := shWorker(t, `echo READY
read line
echo "ERR boom"
while read line; do
	if [ "$line" = "__quit__" ]; then exit 0; fi
	echo "/tmp/$line.wav"
done`, WithRestartHook(func() { restarts++ }))

	// The worker answered the protocol, so only this request fails.
	err := s.Speak(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Speak error = %v, want worker error containing %q", err, "boom")
	}
	if st := s.State(); st != StateReady {
		t.Fatalf("after ERR reply: state %v, want %v", st, StateReady)
	}
	if lastErr := s.LastError(); lastErr == nil || !strings.Contains(lastErr.Error(), "boom") {
		t.Fatalf("LastError = %v, want the ERR reply", lastErr)
	}

	// The same process serves the next request.
	if err := s.Speak(context.Background(), "again"); err != nil {
		t.Fatalf("Speak after ERR reply: %v", err)
	}
	if got := player.played(); len(got) != 1 || got[0] != "/tmp/again.wav" {
		t.Fatalf("played %q, want [/tmp/again.wav]", got)
	}
	if err := s.LastError(); err != nil {
		t.Fatalf("LastError after recovery: %v, want nil", err)
	}
	if restarts != 0 {
		t.Fatalf("restart hook ran %d times, want 0", restarts)
	}
}

func TestBadHandshakeDisablesThenRetries(t *testing.T) {
	t.Parallel()

	restarts := 0
	s, _ := shWorker(t, `echo "NOT READY"; sleep 5`,
		WithRestartHook(func() { restarts++ }))

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("want handshake error")
	}
	if st := s.State(); st != StateDisabled {
		t.Fatalf("state %v, want %v", st, StateDisabled)
	}
	if err := s.LastError(); err == nil {
		t.Fatal("LastError must record the handshake failure")
	}

	// Each subsequent Speak attempts exactly one fresh spawn; a worker
	// that is still broken lands back in disabled.
	if err := s.Speak(context.Background(), "again"); err == nil {
		t.Fatal("want handshake error on the retry")
	}
	if st := s.State(); st != StateDisabled {
		t.Fatalf("after retry: state %v, want %v", st, StateDisabled)
	}
	if restarts != 1 {
		t.Fatalf("restart hook ran %d times, want 1", restarts)
	}
}

func TestRespawnFromDisabledRecovers(t *testing.T) {
	t.Parallel()

	// The first spawn fails its handshake; every later spawn works. The
	// marker file carries that state across child processes.
	marker := filepath.Join(t.TempDir(), "warm")
	restarts := 0
	s, player := shWorker(t, fmt.Sprintf(`if [ -e %q ]; then
	echo READY
	while read line; do
		if [ "$line" = "__quit__" ]; then exit 0; fi
		echo "/tmp/$line.wav"
	done
else
	touch %q
	echo "NOT READY"
fi`, marker, marker), WithRestartHook(func() { restarts++ }))

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("want handshake error from the cold worker")
	}
	if st := s.State(); st != StateDisabled {
		t.Fatalf("state %v, want %v", st, StateDisabled)
	}

	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak after recovery: %v", err)
	}
	if st := s.State(); st != StateReady {
		t.Fatalf("state %v, want %v", st, StateReady)
	}
	if got := player.played(); len(got) != 1 || got[0] != "/tmp/hello.wav" {
		t.Fatalf("played %q, want [/tmp/hello.wav]", got)
	}
	if restarts != 1 {
		t.Fatalf("restart hook ran %d times, want 1", restarts)
	}
}

func TestHandshakeTimeoutDisables(t *testing.T) {
	t.Parallel()

	player := &recordingPlayer{}
	s, err := New(Config{
		Command:          []string{"sh", "-c", "sleep 5"},
		HandshakeTimeout: 100 * time.Millisecond,
	}, WithPlayer(player))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("want handshake timeout error")
	}
	if st := s.State(); st != StateDisabled {
		t.Fatalf("state %v, want %v", st, StateDisabled)
	}
}

func TestRequestTimeoutDisablesFreshWorker(t *testing.T) {
	t.Parallel()

	player := &recordingPlayer{}
	s, err := New(Config{
		Command:          []string{"sh", "-c", `echo READY; while read l; do sleep 5; done`},
		HandshakeTimeout: 2 * time.Second,
		RequestTimeout:   100 * time.Millisecond,
	}, WithPlayer(player))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("want reply timeout error")
	}
	if st := s.State(); st != StateDisabled {
		t.Fatalf("state %v, want %v", st, StateDisabled)
	}
}

func TestRespawnAfterCrashBetweenRequests(t *testing.T) {
	t.Parallel()

	restarts := 0
	// Each spawned worker serves exactly one request, then dies.
	s, player := shWorker(t, `echo READY
read line
echo "/tmp/once.wav"
exit 0`, WithRestartHook(func() { restarts++ }))

	if err := s.Speak(context.Background(), "first"); err != nil {
		t.Fatalf("first Speak: %v", err)
	}

	// The worker exited after replying; this request fails but marks the
	// worker absent instead of disabled.
	if err := s.Speak(context.Background(), "second"); err == nil {
		t.Fatal("want failure against the dead worker")
	}
	if st := s.State(); st != StateAbsent {
		t.Fatalf("state %v, want %v after stale-worker failure", st, StateAbsent)
	}

	// Next Speak respawns and succeeds.
	if err := s.Speak(context.Background(), "third"); err != nil {
		t.Fatalf("Speak after respawn: %v", err)
	}
	if restarts != 1 {
		t.Fatalf("restart hook ran %d times, want 1", restarts)
	}
	if got := player.played(); len(got) != 2 {
		t.Fatalf("played %q, want 2 files", got)
	}
}

func TestPlaybackErrorDoesNotDegradeWorker(t *testing.T) {
	t.Parallel()

	s, player := shWorker(t, echoWorker)
	player.playErr = errors.New("device busy")

	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("want playback error")
	}
	if st := s.State(); st != StateReady {
		t.Fatalf("state %v, want %v (worker unaffected by playback)", st, StateReady)
	}

	player.playErr = nil
	if err := s.Speak(context.Background(), "again"); err != nil {
		t.Fatalf("Speak after playback recovery: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _ := shWorker(t, echoWorker)
	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	for range 3 {
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if st := s.State(); st != StateAbsent {
		t.Fatalf("state %v, want %v after Close", st, StateAbsent)
	}
}

func TestSpeakCanceledContext(t *testing.T) {
	t.Parallel()

	s, _ := shWorker(t, `echo READY; while read l; do sleep 5; done`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := s.Speak(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Speak = %v, want context.Canceled", err)
	}
	// The aborted worker is torn down; a later Speak starts over with a
	// fresh spawn.
	if st := s.State(); st != StateDisabled {
		t.Fatalf("state %v, want %v", st, StateDisabled)
	}
}

func TestShutdownReleasesStdoutReader(t *testing.T) {
	t.Parallel()

	// The child emits an unsolicited line nobody ever reads, leaving the
	// stdout reader blocked on the handover until shutdown releases it.
	s, _ := shWorker(t, `echo READY
read line
echo "/tmp/$line.wav"
echo stray
sleep 5`)

	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The reader goroutine must exit and close its channel.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-proc.lines:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stdout reader still running after shutdown")
		}
	}
}

func TestWorkerStateString(t *testing.T) {
	t.Parallel()

	want := map[WorkerState]string{
		StateAbsent:            "absent",
		StateAwaitingHandshake: "awaiting-handshake",
		StateReady:             "ready",
		StateDisabled:          "disabled",
	}
	for st, name := range want {
		if got := st.String(); got != name {
			t.Fatalf("%d.String() = %q, want %q", int(st), got, name)
		}
	}
}
