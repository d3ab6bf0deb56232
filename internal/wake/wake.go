// Package wake detects and strips the wake phrase from recognized
// transcripts.
//
// A transcript is first normalized (lowercased, punctuation mapped to
// spaces, whitespace collapsed), then matched against the alias list as a
// literal prefix, longest alias first. The alias list includes common
// recognizer mishears of the device name ("etna", "ed na", ...). When no
// literal alias matches, a Jaro-Winkler fuzzy comparison of the leading one
// or two tokens catches mishears the list does not enumerate.
//
// A match with an empty remainder means the user invoked the device without
// saying a command; callers treat that the same as an unmatched transcript
// (no command), distinguished only by the log note.
package wake

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultAliases is the built-in wake-phrase list, including recognizer
// mishears. Order does not matter; matching always tries longer aliases
// first.
var DefaultAliases = []string{
	"hey edna",
	"okay edna",
	"ok edna",
	"edna",
	"etna",
	"ewa",
	"ed nah",
	"ed na",
	"ed",
}

// defaultFuzzyThreshold is the minimum Jaro-Winkler similarity for the
// fuzzy fallback to accept a leading token group as a wake-phrase mishear.
// High enough that ordinary words ("and", "hey there") do not trigger it.
const defaultFuzzyThreshold = 0.88

// Option is a functional option for configuring a Stripper.
type Option func(*Stripper)

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for the fuzzy
// fallback. A value above 1 disables fuzzy matching entirely.
func WithFuzzyThreshold(threshold float64) Option {
	return func(s *Stripper) { s.fuzzyThreshold = threshold }
}

// Stripper strips a leading wake phrase from normalized transcripts.
// It is immutable after construction and safe for concurrent use.
type Stripper struct {
	// aliases, normalized and sorted by descending length so the most
	// specific alias wins ("hey edna" before "edna" before "ed").
	aliases        []string
	fuzzyThreshold float64
}

// NewStripper creates a Stripper over the given alias list. An empty list
// falls back to [DefaultAliases].
func NewStripper(aliases []string, opts ...Option) *Stripper {
	if len(aliases) == 0 {
		aliases = DefaultAliases
	}

	norm := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if n := Normalize(a); n != "" {
			norm = append(norm, n)
		}
	}
	sort.Slice(norm, func(i, j int) bool { return len(norm[i]) > len(norm[j]) })

	s := &Stripper{
		aliases:        norm,
		fuzzyThreshold: defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Normalize lowercases the text, maps every non-alphanumeric rune to a
// space, collapses space runs, and trims. This is the canonical form both
// aliases and transcripts are compared in.
func Normalize(in string) string {
	var b strings.Builder
	b.Grow(len(in))

	prevSpace := true
	for _, r := range strings.ToLower(in) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Strip reports whether transcript begins with a wake phrase and, if so,
// returns the normalized remainder as the command. The command may be
// empty ("invocation only"). When no wake phrase matches, ok is false and
// command is empty.
func (s *Stripper) Strip(transcript string) (command string, ok bool) {
	t := Normalize(transcript)
	if t == "" {
		return "", false
	}

	// Literal prefix match, longest alias first.
	for _, alias := range s.aliases {
		if rest, matched := stripPrefix(t, alias); matched {
			return rest, true
		}
	}

	// Fuzzy fallback on the leading one or two tokens.
	if s.fuzzyThreshold <= 1 {
		if rest, matched := s.stripFuzzy(t); matched {
			return rest, true
		}
	}

	return "", false
}

// stripPrefix removes alias from the head of t when it matches on a token
// boundary.
func stripPrefix(t, alias string) (string, bool) {
	if !strings.HasPrefix(t, alias) {
		return "", false
	}
	rest := t[len(alias):]
	if rest != "" && rest[0] != ' ' {
		// "ednaville..." is not an invocation.
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// stripFuzzy compares the first one and two tokens of t against every
// alias and strips the best-scoring group when it clears the threshold.
// Two-token groups are preferred at equal score so "hey ednah what time"
// loses both filler and name.
func (s *Stripper) stripFuzzy(t string) (string, bool) {
	tokens := strings.Fields(t)

	bestScore := 0.0
	bestTake := 0
	for take := min(2, len(tokens)); take >= 1; take-- {
		head := strings.Join(tokens[:take], " ")
		for _, alias := range s.aliases {
			if score := matchr.JaroWinkler(head, alias, false); score > bestScore {
				bestScore = score
				bestTake = take
			}
		}
	}

	if bestScore < s.fuzzyThreshold {
		return "", false
	}
	return strings.TrimSpace(strings.Join(tokens[bestTake:], " ")), true
}
