package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNormalizesAndFlags(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "page.tsx")
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("const a = 1;\r\nconst b = 2;\r\n")...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	fs := NewFileSetWithBase(tmp)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	file := fs.Get(id)
	if string(file.Content) != "const a = 1;\nconst b = 2;\n" {
		t.Fatalf("unexpected normalized content: %q", string(file.Content))
	}
	if file.Flags&FileHadBOM == 0 {
		t.Fatalf("expected FileHadBOM flag")
	}
	if file.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected FileNormalizedCRLF flag")
	}
}

func TestGetByPathReturnsLatest(t *testing.T) {
	fs := NewFileSet()
	fs.AddVirtual("a.txt", []byte("old"))
	second := fs.AddVirtual("a.txt", []byte("new"))

	file, ok := fs.GetByPath("a.txt")
	if !ok {
		t.Fatalf("expected a.txt to be found")
	}
	if file.ID != second {
		t.Fatalf("expected latest ID %d, got %d", second, file.ID)
	}
	if string(file.Content) != "new" {
		t.Fatalf("expected latest content, got %q", string(file.Content))
	}
}

func TestResolveSpan(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.txt", []byte("one\ntwo\nthree\n"))

	start, end := fs.Resolve(Span{File: id, Start: 4, End: 7})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("expected start 2:1, got %d:%d", start.Line, start.Col)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Fatalf("expected end 2:4, got %d:%d", end.Line, end.Col)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.txt", []byte("one\ntwo\nthree"))
	file := fs.Get(id)

	cases := []struct {
		line uint32
		want string
	}{
		{0, ""},
		{1, "one"},
		{2, "two"},
		{3, "three"},
		{4, ""},
	}
	for _, tc := range cases {
		if got := file.GetLine(tc.line); got != tc.want {
			t.Fatalf("line %d: expected %q, got %q", tc.line, tc.want, got)
		}
	}
}
