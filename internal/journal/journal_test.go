package journal

import (
	"crypto/sha256"
	"testing"
	"time"
)

func TestPutGetRoundTrip(t *testing.T) {
	j, err := OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt returned error: %v", err)
	}

	digest := sha256.Sum256([]byte("plan content"))
	key := Key(digest, "src/app/inventory/page.tsx")

	entry := &Entry{
		PlanName:   "convert-modals",
		TargetPath: "src/app/inventory/page.tsx",
		PatchIDs:   []string{"scroll-lock", "form-modal"},
		PreHash:    sha256.Sum256([]byte("before")),
		PostHash:   sha256.Sum256([]byte("after")),
		AppliedAt:  time.Now().Unix(),
	}
	if err := j.Put(key, entry); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	var got Entry
	ok, err := j.Get(key, &got)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a hit for the stored key")
	}
	if got.PlanName != entry.PlanName || got.TargetPath != entry.TargetPath {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.PostHash != entry.PostHash {
		t.Fatalf("post hash mismatch")
	}
	if len(got.PatchIDs) != 2 || got.PatchIDs[0] != "scroll-lock" {
		t.Fatalf("patch ids mismatch: %v", got.PatchIDs)
	}
}

func TestGetMissIsNotAnError(t *testing.T) {
	j, err := OpenAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenAt returned error: %v", err)
	}

	var got Entry
	ok, err := j.Get(Key([32]byte{}, "nowhere"), &got)
	if err != nil {
		t.Fatalf("miss must not be an error, got %v", err)
	}
	if ok {
		t.Fatalf("expected a miss")
	}
}

func TestKeyDependsOnBothInputs(t *testing.T) {
	d1 := sha256.Sum256([]byte("plan a"))
	d2 := sha256.Sum256([]byte("plan b"))

	if Key(d1, "x") == Key(d2, "x") {
		t.Fatalf("different plans must yield different keys")
	}
	if Key(d1, "x") == Key(d1, "y") {
		t.Fatalf("different targets must yield different keys")
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	if err := j.Put([32]byte{}, &Entry{}); err != nil {
		t.Fatalf("nil Put must be a no-op, got %v", err)
	}
	ok, err := j.Get([32]byte{}, &Entry{})
	if err != nil || ok {
		t.Fatalf("nil Get must miss quietly, got ok=%v err=%v", ok, err)
	}
}
