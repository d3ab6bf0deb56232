// Package llm defines the Reasoner interface for the dialogue backend that
// turns a spoken command into a spoken reply.
//
// The pipeline serialises calls — at most one Reply is in flight at any
// time — so implementations need not manage concurrent request state. A
// Reply call may take seconds; callers must not hold locks across it.
package llm

import "context"

// Reasoner produces one reply for one command.
type Reasoner interface {
	// Reply generates the assistant's response to command. The returned
	// text may still contain model-specific stop markers; the caller is
	// responsible for truncating them. An empty reply is valid and means
	// the model produced nothing usable.
	Reply(ctx context.Context, command string) (string, error)
}

// StopMarkers lists the model control tokens and chat-template leakage
// prefixes a raw reply is truncated at. The first occurrence of any marker
// ends the reply.
var StopMarkers = []string{
	"<|endoftext|>",
	"<|im_end|>",
	"\nHuman:",
	"\nUSER:",
	"\nUser:",
	"\n### Human:",
	"\n### Instruction:",
}
