// Package conv implements the conversation state machine that is the single
// source of truth for which phase of the voice interaction the device is in.
//
// The machine is deterministic: a fixed transition table over 8 states and
// 9 events. Dispatch is synchronous and total — an event with no matching
// transition in the current state is an explicit no-op, never an error.
// This makes stray events (e.g., a NoCommand while already awaiting speech)
// safe by construction.
//
// State() is a cheap snapshot read designed to be polled at the 50 Hz
// capture cadence. The transition observer is always invoked outside the
// internal lock so that an observer may itself call Dispatch without
// deadlocking.
package conv

import "sync"

// State enumerates the conversation phases.
type State int

const (
	// Boot is the initial state before Start.
	Boot State = iota

	// AwaitSpeech means the device is listening for speech onset.
	AwaitSpeech

	// CapturingSpeech means an utterance is being accumulated.
	CapturingSpeech

	// Transcribing means a finished utterance is being recognised.
	Transcribing

	// Thinking means the reasoner is generating a reply.
	Thinking

	// Speaking means the reply is being synthesised and played; the mic
	// gate suppresses capture in this state.
	Speaking

	// Error is a recoverable fault state; Start returns to AwaitSpeech.
	Error

	// Shutdown is terminal and accepts no events.
	Shutdown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Boot:
		return "Boot"
	case AwaitSpeech:
		return "AwaitSpeech"
	case CapturingSpeech:
		return "CapturingSpeech"
	case Transcribing:
		return "Transcribing"
	case Thinking:
		return "Thinking"
	case Speaking:
		return "Speaking"
	case Error:
		return "Error"
	case Shutdown:
		return "Shutdown"
	}
	return "Unknown"
}

// Event enumerates the inputs the machine reacts to.
type Event int

const (
	// Start begins operation (Boot→AwaitSpeech) and clears Error.
	Start Event = iota

	// SpeechStart fires when the segmenter detects speech onset.
	SpeechStart

	// SpeechEndQueued fires when a finished utterance has been handed to
	// the recognition queue.
	SpeechEndQueued

	// TranscriptReady fires when recognition produced a wake-matched
	// command.
	TranscriptReady

	// ReplyReady fires when the reasoner produced a non-empty reply.
	ReplyReady

	// TtsDone fires when synthesis/playback for a reply has finished,
	// successfully or not.
	TtsDone

	// Stop signals operator shutdown. No transition is mapped today; it
	// exists for the observer trace.
	Stop

	// NoCommand resolves transient input noise (blank audio, unmatched
	// wake phrase, empty reply) back to listening.
	NoCommand

	// Fail signals a collaborator fault. No transition is mapped today.
	Fail
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case Start:
		return "Start"
	case SpeechStart:
		return "SpeechStart"
	case SpeechEndQueued:
		return "SpeechEndQueued"
	case TranscriptReady:
		return "TranscriptReady"
	case ReplyReady:
		return "ReplyReady"
	case TtsDone:
		return "TtsDone"
	case Stop:
		return "Stop"
	case NoCommand:
		return "NoCommand"
	case Fail:
		return "Fail"
	}
	return "Unknown"
}

// Observer is invoked for every transition that actually occurred, with the
// lock released. It is never called for no-op dispatches.
type Observer func(from, to State, why Event, note string)

// Machine is the conversation state machine. All methods are safe for
// concurrent use.
type Machine struct {
	mu  sync.Mutex
	st  State
	obs Observer
}

// New creates a Machine in the Boot state with no observer.
func New() *Machine {
	return &Machine{st: Boot}
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

// SetObserver subscribes obs to transitions, replacing any previous
// observer. Pass nil to unsubscribe.
func (m *Machine) SetObserver(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = obs
}

// Start begins operation. Equivalent to Dispatch(Start, "start()").
func (m *Machine) Start() {
	m.Dispatch(Start, "start()")
}

// Dispatch applies ev to the current state. It returns true if a transition
// occurred and false for a no-op. The optional note is forwarded to the
// observer for logging.
//
// The transition is computed and committed and the observer handle copied
// under the lock; the observer itself runs after the lock is released.
func (m *Machine) Dispatch(ev Event, note string) bool {
	var (
		from, to State
		obs      Observer
		did      bool
	)

	m.mu.Lock()
	from = m.st
	to, did = transition(from, ev)
	if did {
		m.st = to
	}
	obs = m.obs
	m.mu.Unlock()

	if did && obs != nil {
		obs(from, to, ev, note)
	}
	return did
}

// transition is the complete table. Every (state, event) pair not listed
// here leaves the state unchanged.
func transition(cur State, ev Event) (State, bool) {
	switch cur {
	case Boot:
		if ev == Start {
			return AwaitSpeech, true
		}
	case AwaitSpeech:
		if ev == SpeechStart {
			return CapturingSpeech, true
		}
	case CapturingSpeech:
		if ev == SpeechEndQueued {
			return Transcribing, true
		}
	case Transcribing:
		if ev == TranscriptReady {
			return Thinking, true
		}
		if ev == NoCommand {
			return AwaitSpeech, true
		}
	case Thinking:
		if ev == ReplyReady {
			return Speaking, true
		}
		if ev == NoCommand {
			return AwaitSpeech, true
		}
	case Speaking:
		if ev == TtsDone {
			return AwaitSpeech, true
		}
	case Error:
		if ev == Start {
			return AwaitSpeech, true
		}
	case Shutdown:
		// Terminal.
	}
	return cur, false
}
