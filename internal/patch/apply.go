package patch

import (
	"bytes"
	"fmt"

	"stitch/internal/source"
)

// TextEdit is a single guarded substitution: replace Span with NewText,
// but only if the buffer still carries OldText there. An empty OldText
// disables the guard (insertions have nothing to expect).
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

// BuildEdit turns a located patch into a guarded edit. Replace and delete
// capture the current region content as the guard, so the splice fails
// loudly if the buffer mutates between locate and apply.
func BuildEdit(f *source.File, p *Patch, region source.Span) TextEdit {
	switch p.Mode {
	case ModeInsertBefore:
		at := region.Start
		return TextEdit{
			Span:    source.Span{File: f.ID, Start: at, End: at},
			NewText: p.Text,
		}
	case ModeInsertAfter:
		at := region.End
		return TextEdit{
			Span:    source.Span{File: f.ID, Start: at, End: at},
			NewText: p.Text,
		}
	case ModeDelete:
		return TextEdit{
			Span:    region,
			NewText: "",
			OldText: string(f.Content[region.Start:region.End]),
		}
	default: // ModeReplace
		return TextEdit{
			Span:    region,
			NewText: p.Text,
			OldText: string(f.Content[region.Start:region.End]),
		}
	}
}

// Splice applies one edit to the buffer and returns a new buffer. The
// input is never mutated; identical inputs always produce identical
// output.
func Splice(content []byte, edit TextEdit) ([]byte, error) {
	start, end := int(edit.Span.Start), int(edit.Span.End)
	if start < 0 || end < start || end > len(content) {
		return nil, fmt.Errorf("edit span %s out of range (buffer is %d bytes)", edit.Span.String(), len(content))
	}
	if edit.OldText != "" && string(content[start:end]) != edit.OldText {
		return nil, fmt.Errorf("%w at %s", ErrGuardMismatch, edit.Span.String())
	}

	out := make([]byte, 0, len(content)-(end-start)+len(edit.NewText))
	out = append(out, content[:start]...)
	out = append(out, edit.NewText...)
	out = append(out, content[end:]...)
	return out, nil
}

// Converged reports whether rerunning the patch against the rewritten
// buffer would leave it unchanged. Every applied patch must converge;
// one that keeps matching and keeps editing would corrupt the file on
// the next run.
func Converged(f *source.File, p *Patch) bool {
	// Inserts whose text is already present are skipped on rerun, even
	// though the anchor line naturally survives the edit.
	if (p.Mode == ModeInsertBefore || p.Mode == ModeInsertAfter) && p.AppliedTo(f.Content) {
		return true
	}

	region, ok, err := Locate(f, &p.Rule)
	if err != nil {
		return false
	}
	if !ok {
		return true
	}

	next, err := Splice(f.Content, BuildEdit(f, p, region))
	if err != nil {
		return false
	}
	return bytes.Equal(next, f.Content)
}
