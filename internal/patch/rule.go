package patch

import (
	"fmt"
	"regexp"
)

// RuleKind discriminates the three locator strategies.
type RuleKind uint8

const (
	// RuleSubstring finds a line by exact substring.
	RuleSubstring RuleKind = iota
	// RuleRegex matches a pattern against the whole buffer.
	RuleRegex
	// RuleBalance finds an anchor line and walks a delimiter counter to
	// the matching close.
	RuleBalance
)

// Delimiters selects which pair the balance counter tracks.
type Delimiters uint8

const (
	DelimBraces Delimiters = iota
	DelimParens
	DelimBrackets
)

func (d Delimiters) pair() (opener, closer byte) {
	switch d {
	case DelimParens:
		return '(', ')'
	case DelimBrackets:
		return '[', ']'
	default:
		return '{', '}'
	}
}

// ParseDelimiters converts the plan-file spelling.
func ParseDelimiters(s string) (Delimiters, error) {
	switch s {
	case "", "braces":
		return DelimBraces, nil
	case "parens":
		return DelimParens, nil
	case "brackets":
		return DelimBrackets, nil
	}
	return 0, fmt.Errorf("unknown delimiter kind %q", s)
}

// Rule is one locator specification. Exactly one of Find, Pattern, or
// Anchor is set, matching RuleSubstring, RuleRegex, and RuleBalance.
type Rule struct {
	Kind    RuleKind
	Find    string // substring needle
	End     string // optional end needle extending the region over lines
	Pattern string // regex source, (?s) permitted
	Anchor  string // balance anchor needle
	Delims  Delimiters

	// Occurrence selects the nth match (1-based). Zero requires the match
	// to be unique; a second hit is an error, not a silent first-match.
	Occurrence int

	// FromLine/ToLine restrict the scan to a 1-based inclusive line
	// window. Zero means unbounded on that side.
	FromLine int
	ToLine   int

	re *regexp.Regexp
}

// Compile validates the rule and compiles the regex form.
func (r *Rule) Compile() error {
	switch r.Kind {
	case RuleSubstring:
		if r.Find == "" {
			return fmt.Errorf("substring rule needs a non-empty needle")
		}
	case RuleRegex:
		if r.Pattern == "" {
			return fmt.Errorf("regex rule needs a non-empty pattern")
		}
		if r.End != "" {
			return fmt.Errorf("regex rule cannot combine with an end needle")
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", r.Pattern, err)
		}
		r.re = re
	case RuleBalance:
		if r.Anchor == "" {
			return fmt.Errorf("balance rule needs a non-empty anchor")
		}
		if r.End != "" {
			return fmt.Errorf("balance rule cannot combine with an end needle")
		}
	default:
		return fmt.Errorf("unknown rule kind %d", r.Kind)
	}
	if r.Occurrence < 0 {
		return fmt.Errorf("occurrence must be positive, got %d", r.Occurrence)
	}
	if r.FromLine < 0 || r.ToLine < 0 {
		return fmt.Errorf("line window must be positive")
	}
	if r.ToLine != 0 && r.FromLine > r.ToLine {
		return fmt.Errorf("line window %d-%d is inverted", r.FromLine, r.ToLine)
	}
	return nil
}

// Describe renders the rule for messages and reports.
func (r *Rule) Describe() string {
	switch r.Kind {
	case RuleSubstring:
		if r.End != "" {
			return fmt.Sprintf("substring %q .. %q", clip(r.Find), clip(r.End))
		}
		return fmt.Sprintf("substring %q", clip(r.Find))
	case RuleRegex:
		return fmt.Sprintf("regex %q", clip(r.Pattern))
	case RuleBalance:
		return fmt.Sprintf("balance from %q", clip(r.Anchor))
	}
	return "unknown rule"
}

func clip(s string) string {
	const max = 40
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
