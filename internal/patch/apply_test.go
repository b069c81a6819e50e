package patch

import (
	"errors"
	"testing"

	"stitch/internal/source"
)

func TestSpliceReplace(t *testing.T) {
	f := virtualFile(t, "one\ntwo\nthree\n")
	p := &Patch{Mode: ModeReplace, Text: "TWO\n", Rule: Rule{Kind: RuleSubstring, Find: "two"}}

	span := mustLocate(t, f, &p.Rule)
	edit := BuildEdit(f, p, span)
	if edit.OldText != "two\n" {
		t.Fatalf("expected guard %q, got %q", "two\n", edit.OldText)
	}

	out, err := Splice(f.Content, edit)
	if err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	if string(out) != "one\nTWO\nthree\n" {
		t.Fatalf("unexpected result %q", string(out))
	}
}

func TestSpliceInsertModes(t *testing.T) {
	cases := []struct {
		name string
		mode Mode
		want string
	}{
		{"before", ModeInsertBefore, "one\nNEW\ntwo\nthree\n"},
		{"after", ModeInsertAfter, "one\ntwo\nNEW\nthree\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := virtualFile(t, "one\ntwo\nthree\n")
			p := &Patch{Mode: tc.mode, Text: "NEW\n", Rule: Rule{Kind: RuleSubstring, Find: "two"}}

			span := mustLocate(t, f, &p.Rule)
			out, err := Splice(f.Content, BuildEdit(f, p, span))
			if err != nil {
				t.Fatalf("Splice returned error: %v", err)
			}
			if string(out) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, string(out))
			}
		})
	}
}

func TestSpliceDeleteRemovesWholeLines(t *testing.T) {
	f := virtualFile(t, "keep\nedit {\n  gone\n}\nrest\n")
	p := &Patch{Mode: ModeDelete, Rule: Rule{Kind: RuleBalance, Anchor: "edit {"}}

	span := mustLocate(t, f, &p.Rule)
	out, err := Splice(f.Content, BuildEdit(f, p, span))
	if err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	if string(out) != "keep\nrest\n" {
		t.Fatalf("expected clean line removal, got %q", string(out))
	}
}

func TestSpliceGuardMismatch(t *testing.T) {
	edit := TextEdit{
		Span:    source.Span{Start: 0, End: 3},
		NewText: "xyz",
		OldText: "abc",
	}
	_, err := Splice([]byte("zzz rest"), edit)
	if !errors.Is(err, ErrGuardMismatch) {
		t.Fatalf("expected ErrGuardMismatch, got %v", err)
	}
}

func TestSpliceOutOfRange(t *testing.T) {
	edit := TextEdit{Span: source.Span{Start: 2, End: 99}, NewText: "x"}
	if _, err := Splice([]byte("short"), edit); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSpliceIsPure(t *testing.T) {
	content := []byte("one\ntwo\n")
	edit := TextEdit{Span: source.Span{Start: 0, End: 4}, NewText: "ONE\n", OldText: "one\n"}

	first, err := Splice(content, edit)
	if err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	second, err := Splice(content, edit)
	if err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("identical inputs must produce identical output")
	}
	if string(content) != "one\ntwo\n" {
		t.Fatalf("input buffer was mutated: %q", string(content))
	}
}

func TestRelocateAfterApplyFindsNothing(t *testing.T) {
	// The idempotence contract: once a replace is applied, the original
	// rule must stop matching.
	f := virtualFile(t, "a\nfunc main()\nb\n")
	p := &Patch{Mode: ModeReplace, Text: "func Main()\n", Rule: Rule{Kind: RuleSubstring, Find: "func main()"}}

	span := mustLocate(t, f, &p.Rule)
	out, err := Splice(f.Content, BuildEdit(f, p, span))
	if err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}

	after := virtualFile(t, string(out))
	_, ok, err := Locate(after, &p.Rule)
	if err != nil {
		t.Fatalf("re-locate returned error: %v", err)
	}
	if ok {
		t.Fatalf("rule still matches after its own edit")
	}
	if !p.AppliedTo(after.Content) {
		t.Fatalf("expected AppliedTo to recognize the patched buffer")
	}
}

func TestAppliedToRequiresCompleteLines(t *testing.T) {
	cases := []struct {
		name    string
		mode    Mode
		text    string
		content string
		want    bool
	}{
		{"substring of a word", ModeReplace, "x\n", "export default App;\n", false},
		{"tail of a longer line", ModeReplace, "x\n", "max\nrest\n", false},
		{"own line", ModeReplace, "x\n", "a\nx\nb\n", true},
		{"unterminated last line", ModeReplace, "x\n", "a\nx", true},
		{"multi-line block", ModeInsertAfter, "one\ntwo\n", "zero\none\ntwo\nthree\n", true},
		{"block off boundary", ModeInsertAfter, "one\ntwo\n", "zerone\ntwo\nthree\n", false},
		{"fragment verbatim", ModeReplace, "handleClick", "onClick={handleClick}\n", true},
		{"fragment absent", ModeReplace, "handleClick", "onClick={noop}\n", false},
		{"delete never content-matched", ModeDelete, "", "anything\n", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Patch{Mode: tc.mode, Text: tc.text}
			if got := p.AppliedTo([]byte(tc.content)); got != tc.want {
				t.Fatalf("AppliedTo(%q, %q) = %v, want %v", tc.text, tc.content, got, tc.want)
			}
		})
	}
}

func TestPatchValidate(t *testing.T) {
	cases := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"replace ok", Patch{Mode: ModeReplace, Text: "x", Rule: Rule{Kind: RuleSubstring, Find: "y"}}, false},
		{"delete ok", Patch{Mode: ModeDelete, Rule: Rule{Kind: RuleSubstring, Find: "y"}}, false},
		{"delete with text", Patch{Mode: ModeDelete, Text: "x", Rule: Rule{Kind: RuleSubstring, Find: "y"}}, true},
		{"replace without text", Patch{Mode: ModeReplace, Rule: Rule{Kind: RuleSubstring, Find: "y"}}, true},
		{"bad rule", Patch{Mode: ModeReplace, Text: "x", Rule: Rule{Kind: RuleRegex, Pattern: `([`}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.patch
			err := p.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, spelling := range []string{"replace", "insert_before", "insert_after", "delete"} {
		mode, err := ParseMode(spelling)
		if err != nil {
			t.Fatalf("ParseMode(%q) returned error: %v", spelling, err)
		}
		if mode.String() != spelling {
			t.Fatalf("round trip mismatch: %q -> %q", spelling, mode.String())
		}
	}
	if _, err := ParseMode("overwrite"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
