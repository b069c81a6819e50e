package source

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeCRLF(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		changed bool
	}{
		{"no carriage returns", "a\nb\n", "a\nb\n", false},
		{"crlf pairs", "a\r\nb\r\n", "a\nb\n", true},
		{"lone cr untouched", "a\rb\n", "a\rb\n", false},
		{"mixed", "a\r\nb\rc\n", "a\nb\rc\n", true},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := normalizeCRLF([]byte(tc.input))
			if string(got) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, string(got))
			}
			if changed != tc.changed {
				t.Fatalf("expected changed=%v, got %v", tc.changed, changed)
			}
		})
	}
}

func TestRestoreCRLFRoundTrip(t *testing.T) {
	original := []byte("a\r\nb\r\nc\r\n")
	normalized, changed := normalizeCRLF(original)
	if !changed {
		t.Fatalf("expected normalization to happen")
	}
	restored := RestoreCRLF(normalized)
	if !bytes.Equal(restored, original) {
		t.Fatalf("expected round trip %q, got %q", original, restored)
	}
}

func TestRemoveBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	got, had := removeBOM(withBOM)
	if !had {
		t.Fatalf("expected BOM to be detected")
	}
	if string(got) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", string(got))
	}

	restored := RestoreBOM(got)
	if !bytes.Equal(restored, withBOM) {
		t.Fatalf("expected BOM round trip %v, got %v", withBOM, restored)
	}

	plain := []byte("hello")
	got, had = removeBOM(plain)
	if had {
		t.Fatalf("did not expect BOM in plain content")
	}
	if string(got) != "hello" {
		t.Fatalf("expected content untouched, got %q", string(got))
	}
}

func TestToLineCol(t *testing.T) {
	content := []byte("ab\ncd\nef")
	idx := buildLineIndex(content)

	cases := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{1, 1, 2},
		{2, 1, 3}, // the newline itself
		{3, 2, 1},
		{5, 2, 3},
		{6, 3, 1},
		{7, 3, 2},
	}

	for _, tc := range cases {
		got := toLineCol(idx, tc.off)
		if got.Line != tc.line || got.Col != tc.col {
			t.Fatalf("offset %d: expected %d:%d, got %d:%d", tc.off, tc.line, tc.col, got.Line, got.Col)
		}
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()

	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}
	if err := os.MkdirAll(otherDir, 0o755); err != nil {
		t.Fatalf("failed to create other dir: %v", err)
	}

	target := filepath.Join(otherDir, "page.tsx")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}

	want, err := AbsolutePath(target)
	if err != nil {
		t.Fatalf("AbsolutePath returned error: %v", err)
	}
	if got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	tmp := t.TempDir()

	baseDir := filepath.Join(tmp, "base")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}

	target := filepath.Join(baseDir, "nested", "page.tsx")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}

	want := normalizePath(filepath.Join("nested", "page.tsx"))
	if got != want {
		t.Fatalf("expected relative path %q, got %q", want, got)
	}
}
