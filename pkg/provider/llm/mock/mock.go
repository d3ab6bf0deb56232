// Package mock provides a test double for [llm.Reasoner].
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/edna/pkg/provider/llm"
)

// Reasoner is a scripted implementation of llm.Reasoner.
type Reasoner struct {
	mu sync.Mutex

	// Results is consumed one entry per Reply call.
	Results []string

	// Default is returned once Results is exhausted.
	Default string

	// ReplyErr, if non-nil, is returned by every Reply call.
	ReplyErr error

	// Calls records every command submitted, in order.
	Calls []string
}

// Ensure Reasoner implements llm.Reasoner at compile time.
var _ llm.Reasoner = (*Reasoner)(nil)

// Reply records the call and pops the next scripted reply.
func (r *Reasoner) Reply(_ context.Context, command string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, command)
	if r.ReplyErr != nil {
		return "", r.ReplyErr
	}
	if len(r.Results) == 0 {
		return r.Default, nil
	}
	reply := r.Results[0]
	r.Results = r.Results[1:]
	return reply, nil
}
