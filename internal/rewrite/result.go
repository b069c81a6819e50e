package rewrite

// AppliedPatch records a successfully applied patch.
type AppliedPatch struct {
	ID   string
	Path string
	Mode string
	Rule string
	Line uint32
	Col  uint32
}

// SkippedPatch captures a patch that was not applied, with a reason.
type SkippedPatch struct {
	ID     string
	Path   string
	Reason string
}

// FileChange summarises modifications performed on one file.
type FileChange struct {
	Path      string
	EditCount int
	Backup    string // empty for dry runs
	DryRun    bool
}

// Report aggregates applied patches, skipped ones, and file changes
// across a run.
type Report struct {
	Applied []AppliedPatch
	Skipped []SkippedPatch
	Changes []FileChange
}

// Merge folds another report into this one.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Applied = append(r.Applied, other.Applied...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Changes = append(r.Changes, other.Changes...)
}
