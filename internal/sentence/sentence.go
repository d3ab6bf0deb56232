// Package sentence chunks reply text for incremental speech synthesis.
//
// The synthesis worker operates on one line of text per request, so long
// replies are split into sentences and spoken one by one; the first chunk
// starts playing while the rest are still being synthesized.
package sentence

import "strings"

// maxChunkRunes is the soft wrap length for text without sentence-ending
// punctuation. Wraps happen at the last space before the limit when one
// exists.
const maxChunkRunes = 180

// Split breaks text into speakable chunks. A chunk ends after '.', '!' or
// '?' when followed by a space or end of text. Runs without terminal
// punctuation are soft-wrapped near maxChunkRunes at a space boundary.
// Chunks are trimmed and empty chunks are dropped.
func Split(text string) []string {
	var out []string
	for _, run := range splitTerminated(text) {
		for _, chunk := range wrap(run) {
			if c := strings.TrimSpace(chunk); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// splitTerminated cuts text after every sentence terminator that is
// followed by a space or ends the text. "3.14" stays intact because the
// dot is followed by a digit.
func splitTerminated(text string) []string {
	var runs []string
	start := 0
	rs := []rune(text)
	for i, r := range rs {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(rs) && rs[i+1] != ' ' {
			continue
		}
		runs = append(runs, string(rs[start:i+1]))
		start = i + 1
	}
	if start < len(rs) {
		runs = append(runs, string(rs[start:]))
	}
	return runs
}

// wrap soft-wraps a single run at the last space before maxChunkRunes.
// A run with no space inside the limit is cut hard at the limit rather
// than growing without bound.
func wrap(run string) []string {
	rs := []rune(strings.TrimSpace(run))
	var chunks []string
	for len(rs) > maxChunkRunes {
		cut := maxChunkRunes
		for i := maxChunkRunes; i > 0; i-- {
			if rs[i] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(rs[:cut]))
		rs = rs[cut:]
		for len(rs) > 0 && rs[0] == ' ' {
			rs = rs[1:]
		}
	}
	if len(rs) > 0 {
		chunks = append(chunks, string(rs))
	}
	return chunks
}
