package wake

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hey Edna", "hey edna"},
		{"punctuation to space", "hey, edna! what's up?", "hey edna what s up"},
		{"collapses runs", "hey    edna", "hey edna"},
		{"trims", "  edna  ", "edna"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
		{"keeps digits", "edna set a timer for 10 minutes", "edna set a timer for 10 minutes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStripLiteralAliases(t *testing.T) {
	t.Parallel()

	s := NewStripper(nil, WithFuzzyThreshold(1.01))

	tests := []struct {
		name        string
		in          string
		wantCommand string
		wantOK      bool
	}{
		{"full phrase", "Hey Edna, what time is it?", "what time is it", true},
		{"okay variant", "okay edna turn off the lights", "turn off the lights", true},
		{"ok variant", "OK Edna stop", "stop", true},
		{"bare name", "Edna, play some music.", "play some music", true},
		{"mishear etna", "etna what's the weather", "what s the weather", true},
		{"mishear split", "ed na help me", "help me", true},
		{"invocation only", "Edna.", "", true},
		{"invocation only with filler", "hey edna", "", true},
		{"no wake phrase", "what time is it", "", false},
		{"name mid-sentence", "I asked edna yesterday", "", false},
		{"prefix of longer word", "ednaville is a town", "", false},
		{"empty transcript", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := s.Strip(tc.in)
			if ok != tc.wantOK || got != tc.wantCommand {
				t.Fatalf("Strip(%q) = (%q, %v), want (%q, %v)",
					tc.in, got, ok, tc.wantCommand, tc.wantOK)
			}
		})
	}
}

func TestStripLongestAliasWins(t *testing.T) {
	t.Parallel()

	// "hey edna" must consume the whole phrase; matching "edna" alone would
	// leave "hey" dangling or fail entirely.
	s := NewStripper(nil, WithFuzzyThreshold(1.01))
	got, ok := s.Strip("hey edna hello")
	if !ok || got != "hello" {
		t.Fatalf("Strip = (%q, %v), want (%q, true)", got, ok, "hello")
	}
}

func TestStripFuzzyFallback(t *testing.T) {
	t.Parallel()

	s := NewStripper(nil)

	tests := []struct {
		name        string
		in          string
		wantCommand string
		wantOK      bool
	}{
		{"misheard name", "ednah what time is it", "what time is it", true},
		{"misheard with filler", "hey ednah turn on the fan", "turn on the fan", true},
		{"unrelated words stay", "anderson called earlier", "", false},
		{"ordinary sentence", "the cat sat on the mat", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := s.Strip(tc.in)
			if ok != tc.wantOK || got != tc.wantCommand {
				t.Fatalf("Strip(%q) = (%q, %v), want (%q, %v)",
					tc.in, got, ok, tc.wantCommand, tc.wantOK)
			}
		})
	}
}

func TestStripCustomAliases(t *testing.T) {
	t.Parallel()

	s := NewStripper([]string{"Computer"}, WithFuzzyThreshold(1.01))

	if got, ok := s.Strip("computer lock the door"); !ok || got != "lock the door" {
		t.Fatalf("Strip = (%q, %v), want (%q, true)", got, ok, "lock the door")
	}
	if _, ok := s.Strip("edna lock the door"); ok {
		t.Fatal("default aliases must not apply when a custom list is given")
	}
}
