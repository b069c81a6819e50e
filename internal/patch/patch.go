// Package patch implements the locator rules and guarded text edits that
// stitch applies to target files. Locating and applying are pure over the
// buffer; all I/O stays in the rewrite package.
package patch

import (
	"bytes"
	"fmt"
)

// Mode selects how the replacement text relates to the located region.
type Mode uint8

const (
	// ModeReplace substitutes the located region with the patch text.
	ModeReplace Mode = iota
	// ModeInsertBefore splices the patch text in front of the region.
	ModeInsertBefore
	// ModeInsertAfter splices the patch text after the region.
	ModeInsertAfter
	// ModeDelete removes the located region.
	ModeDelete
)

func (m Mode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeInsertBefore:
		return "insert_before"
	case ModeInsertAfter:
		return "insert_after"
	case ModeDelete:
		return "delete"
	}
	return "unknown"
}

// ParseMode converts the plan-file spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "replace":
		return ModeReplace, nil
	case "insert_before":
		return ModeInsertBefore, nil
	case "insert_after":
		return ModeInsertAfter, nil
	case "delete":
		return ModeDelete, nil
	}
	return 0, fmt.Errorf("unknown patch mode %q", s)
}

// Patch pairs a locator rule with a mode and replacement text.
type Patch struct {
	ID   string
	Rule Rule
	Mode Mode
	Text string
}

// Validate checks mode/text consistency and compiles the rule.
func (p *Patch) Validate() error {
	if err := p.Rule.Compile(); err != nil {
		return err
	}
	switch p.Mode {
	case ModeDelete:
		if p.Text != "" {
			return fmt.Errorf("patch %s: delete must not carry replacement text", p.Label())
		}
	case ModeInsertBefore, ModeInsertAfter, ModeReplace:
		if p.Text == "" {
			return fmt.Errorf("patch %s: %s requires replacement text", p.Label(), p.Mode)
		}
	default:
		return fmt.Errorf("patch %s: unknown mode %d", p.Label(), p.Mode)
	}
	return nil
}

// Label returns the patch ID, or the rule description for unnamed patches.
func (p *Patch) Label() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Rule.Describe()
}

// AppliedTo reports whether the buffer already carries the patch's
// replacement. Line-terminated text must appear as complete lines, so an
// incidental substring of a longer line never masks a rule that matched
// nothing. Deletes leave no replacement behind and always report false;
// the caller needs other evidence (a journal record) to call one applied.
func (p *Patch) AppliedTo(content []byte) bool {
	if p.Mode == ModeDelete || p.Text == "" {
		return false
	}
	text := []byte(p.Text)
	if text[len(text)-1] != '\n' {
		return bytes.Contains(content, text)
	}
	return containsLines(content, text)
}

// containsLines reports whether text occurs starting at a line boundary.
// The final newline may be absent when the match ends the buffer.
func containsLines(content, text []byte) bool {
	for off := 0; off <= len(content)-len(text); {
		i := bytes.Index(content[off:], text)
		if i < 0 {
			break
		}
		at := off + i
		if at == 0 || content[at-1] == '\n' {
			return true
		}
		off = at + 1
	}

	trimmed := text[:len(text)-1]
	if len(trimmed) > 0 && bytes.HasSuffix(content, trimmed) {
		at := len(content) - len(trimmed)
		return at == 0 || content[at-1] == '\n'
	}
	return false
}
