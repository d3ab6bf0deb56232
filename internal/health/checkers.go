package health

import (
	"context"
	"fmt"

	"github.com/MrWong99/edna/internal/conv"
	"github.com/MrWong99/edna/internal/ttsworker"
)

// ConversationReady reports whether the conversation loop is still able to
// make progress: any state except Error and Shutdown is considered ready.
func ConversationReady(m *conv.Machine) Checker {
	return Checker{
		Name: "conversation",
		Check: func(_ context.Context) error {
			switch st := m.State(); st {
			case conv.Error, conv.Shutdown:
				return fmt.Errorf("conversation is in state %s", st)
			default:
				return nil
			}
		},
	}
}

// SynthesisReady reports whether the device can still speak. The worker
// being absent is fine (it spawns lazily); only the disabled state fails,
// carrying the error that caused it.
func SynthesisReady(s *ttsworker.Supervisor) Checker {
	return Checker{
		Name: "synthesis",
		Check: func(_ context.Context) error {
			if s.State() != ttsworker.StateDisabled {
				return nil
			}
			if err := s.LastError(); err != nil {
				return fmt.Errorf("synthesis disabled: %w", err)
			}
			return fmt.Errorf("synthesis disabled")
		},
	}
}
