// Package chunker splits outbound text into platform sized messages.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLen is the message size limit of the chat platform, in characters.
const DefaultMaxLen = 2000

// Option configures Split.
type Option func(*options)

type options struct {
	trim bool
}

// WithTrim trims surrounding whitespace from every segment and drops
// segments that end up empty.
func WithTrim() Option {
	return func(o *options) { o.trim = true }
}

// Split greedily packs the lines of text into segments of at most maxLen
// characters. A line that would push the current segment past maxLen starts
// the next segment. Lines are never broken, so a single line longer than
// maxLen is returned as its own oversized segment.
//
// Without WithTrim, joining the segments with "\n" reproduces text exactly.
// A maxLen <= 0 disables splitting.
func Split(text string, maxLen int, opts ...Option) []string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if text == "" {
		return nil
	}
	if maxLen <= 0 {
		return finish([]string{text}, o)
	}

	var (
		segments []string
		current  strings.Builder
		size     int
		started  bool
	)

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if started && size+1+n > maxLen {
			segments = append(segments, current.String())
			current.Reset()
			size = 0
			started = false
		}
		if started {
			current.WriteByte('\n')
			size++
		}
		current.WriteString(line)
		size += n
		started = true
	}
	if started {
		segments = append(segments, current.String())
	}

	return finish(segments, o)
}

func finish(segments []string, o options) []string {
	if !o.trim {
		return segments
	}
	out := segments[:0]
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
