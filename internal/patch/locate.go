package patch

import (
	"bytes"
	"fmt"

	"stitch/internal/source"
)

// Locate evaluates a rule against a file buffer and returns the located
// region. The second result is false when the rule matched nothing; that
// is an expected signal for the caller, not an error. Ambiguity, by
// contrast, is an error: a unique rule that matches twice means the rule
// no longer pins down the place its author intended.
//
// Substring and balance rules return full-line regions including the
// trailing newline of the last line; regex rules return the exact match
// offsets.
func Locate(f *source.File, r *Rule) (source.Span, bool, error) {
	switch r.Kind {
	case RuleSubstring:
		return locateSubstring(f, r)
	case RuleRegex:
		return locateRegex(f, r)
	case RuleBalance:
		return locateBalance(f, r)
	}
	return source.Span{}, false, fmt.Errorf("unknown rule kind %d", r.Kind)
}

func locateSubstring(f *source.File, r *Rule) (source.Span, bool, error) {
	start, ok, err := matchLine(f, r.Find, r)
	if err != nil || !ok {
		return source.Span{}, false, err
	}

	end := start
	if r.End != "" {
		end = -1
		for i := start + 1; i < lineCount(f); i++ {
			if bytes.Contains(lineBytes(f, i), []byte(r.End)) {
				end = i
				break
			}
		}
		if end < 0 {
			// The start anchor matched but the region never closed:
			// the buffer has drifted from the expected shape.
			return source.Span{}, false, nil
		}
	}

	return lineRegion(f, start, end), true, nil
}

func locateBalance(f *source.File, r *Rule) (source.Span, bool, error) {
	anchor, ok, err := matchLine(f, r.Anchor, r)
	if err != nil || !ok {
		return source.Span{}, false, err
	}

	opener, closer := r.Delims.pair()
	depth := delimDelta(lineBytes(f, anchor), opener, closer)
	if depth <= 0 {
		// The anchor line closes itself.
		return lineRegion(f, anchor, anchor), true, nil
	}

	for i := anchor + 1; i < lineCount(f); i++ {
		depth += delimDelta(lineBytes(f, i), opener, closer)
		if depth <= 0 {
			return lineRegion(f, anchor, i), true, nil
		}
	}

	// Ran out of buffer with delimiters still open.
	return source.Span{}, false, nil
}

func locateRegex(f *source.File, r *Rule) (source.Span, bool, error) {
	matches := r.re.FindAllIndex(f.Content, -1)
	if len(matches) == 0 {
		return source.Span{}, false, nil
	}
	idx := 0
	switch {
	case r.Occurrence == 0 && len(matches) > 1:
		return source.Span{}, false, fmt.Errorf("%w: %s hit %d times", ErrAmbiguous, r.Describe(), len(matches))
	case r.Occurrence > 0:
		if r.Occurrence > len(matches) {
			return source.Span{}, false, nil
		}
		idx = r.Occurrence - 1
	}
	m := matches[idx]
	return source.Span{File: f.ID, Start: uint32(m[0]), End: uint32(m[1])}, true, nil
}

// matchLine finds the line containing the needle, honoring the rule's
// line window and occurrence selector.
func matchLine(f *source.File, needle string, r *Rule) (int, bool, error) {
	lo := 0
	if r.FromLine > 0 {
		lo = r.FromLine - 1
	}
	hi := lineCount(f)
	if r.ToLine > 0 && r.ToLine < hi {
		hi = r.ToLine
	}

	matches := make([]int, 0, 2)
	for i := lo; i < hi; i++ {
		if bytes.Contains(lineBytes(f, i), []byte(needle)) {
			matches = append(matches, i)
		}
	}

	switch {
	case len(matches) == 0:
		return 0, false, nil
	case r.Occurrence == 0 && len(matches) > 1:
		return 0, false, fmt.Errorf("%w: %s hit %d lines", ErrAmbiguous, r.Describe(), len(matches))
	case r.Occurrence > len(matches):
		return 0, false, nil
	case r.Occurrence > 0:
		return matches[r.Occurrence-1], true, nil
	}
	return matches[0], true, nil
}

// delimDelta counts opens minus closes of one delimiter pair in a line.
func delimDelta(line []byte, opener, closer byte) int {
	return bytes.Count(line, []byte{opener}) - bytes.Count(line, []byte{closer})
}

// lineCount returns the number of lines in the buffer. A trailing newline
// does not start an extra empty line.
func lineCount(f *source.File) int {
	if len(f.Content) == 0 {
		return 0
	}
	n := len(f.LineIdx)
	if f.Content[len(f.Content)-1] != '\n' {
		n++
	}
	return n
}

// lineStart returns the byte offset of a 0-based line.
func lineStart(f *source.File, i int) uint32 {
	if i == 0 {
		return 0
	}
	return f.LineIdx[i-1] + 1
}

// lineEndIncl returns the offset just past the line's newline, or the end
// of the buffer for an unterminated last line.
func lineEndIncl(f *source.File, i int) uint32 {
	if i < len(f.LineIdx) {
		return f.LineIdx[i] + 1
	}
	return uint32(len(f.Content))
}

// lineBytes returns the line content without its trailing newline.
func lineBytes(f *source.File, i int) []byte {
	start := lineStart(f, i)
	end := lineEndIncl(f, i)
	if end > start && f.Content[end-1] == '\n' {
		end--
	}
	return f.Content[start:end]
}

// lineRegion builds a full-line span from the first to the last line,
// trailing newline included.
func lineRegion(f *source.File, first, last int) source.Span {
	return source.Span{
		File:  f.ID,
		Start: lineStart(f, first),
		End:   lineEndIncl(f, last),
	}
}
