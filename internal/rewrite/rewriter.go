// Package rewrite orchestrates a plan run: per target file it locks,
// loads, locates and applies every patch in declared order, then writes
// the result through a temp file and atomic rename. A file is either
// fully rewritten or untouched; there are no partial writes.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stitch/internal/journal"
	"stitch/internal/observ"
	"stitch/internal/patch"
	"stitch/internal/plan"
	"stitch/internal/source"
)

// Options configures a plan run.
type Options struct {
	// DryRun locates and applies in memory but never writes.
	DryRun bool
	// BackupDir receives copies of originals before they are replaced.
	// Empty means a .bak sibling next to each target.
	BackupDir string
	// Journal records successful applications; nil disables journaling.
	Journal *journal.Journal
	// Progress receives per-stage events; nil disables reporting.
	Progress Sink
	// Timer accumulates phase timings; nil disables them.
	Timer *observ.Timer
}

func (o *Options) publish(ev Event) {
	if o.Progress != nil {
		o.Progress.Publish(ev)
	}
}

func (o *Options) begin(name observ.PhaseName) int {
	if o.Timer == nil {
		return -1
	}
	return o.Timer.Begin(name)
}

func (o *Options) end(idx int, note string) {
	if o.Timer != nil {
		o.Timer.End(idx, note)
	}
}

// Plan rewrites every file the plan names, in declared order. Each file
// commits independently: a failure aborts the run before touching the
// failing file, but files already rewritten stay rewritten.
func Plan(ctx context.Context, pl *plan.Plan, fs *source.FileSet, opts Options) (*Report, error) {
	report := &Report{}
	for _, entry := range pl.Files {
		fileReport, err := File(ctx, pl, entry, fs, opts)
		report.Merge(fileReport)
		if err != nil {
			opts.publish(Event{File: entry.Path, Status: StatusError, Detail: err.Error()})
			return report, err
		}
	}
	return report, nil
}

// File runs one target's patch sequence against the filesystem.
func File(ctx context.Context, pl *plan.Plan, entry plan.FileEntry, fs *source.FileSet, opts Options) (*Report, error) {
	report := &Report{}
	display := entry.Path
	target := pl.ResolveTarget(entry)

	opts.publish(Event{File: display, Stage: StageLoad, Status: StatusQueued})
	if err := ctx.Err(); err != nil {
		return report, err
	}

	release, err := acquireLock(target)
	if err != nil {
		return report, err
	}
	defer release()

	loadIdx := opts.begin(observ.PhaseLoad)
	opts.publish(Event{File: display, Stage: StageLoad, Status: StatusWorking})
	fileID, err := fs.Load(target)
	if err != nil {
		opts.end(loadIdx, display)
		return report, fmt.Errorf("load %s: %w", target, err)
	}
	file := fs.Get(fileID)
	preHash := file.Hash
	opts.end(loadIdx, display)

	// Journal short-circuit: a target whose content already matches the
	// recorded post-state was patched by a previous run of this exact plan.
	key := journal.Key(pl.Digest(), entry.Path)
	var prev journal.Entry
	priorRun := make(map[string]bool)
	if hit, err := opts.Journal.Get(key, &prev); err == nil && hit {
		if prev.PostHash == file.Hash {
			for _, p := range entry.Patches {
				report.Skipped = append(report.Skipped, SkippedPatch{
					ID:     p.ID,
					Path:   display,
					Reason: "already applied (journal)",
				})
			}
			opts.publish(Event{File: display, Stage: StageWrite, Status: StatusSkipped, Detail: "already applied"})
			return report, nil
		}
		// The plan ran before but the target drifted since. Keep the
		// record: it is the only evidence that a delete whose anchor is
		// gone was applied earlier rather than mistargeted.
		for _, id := range prev.PatchIDs {
			priorRun[id] = true
		}
	}

	locateIdx := opts.begin(observ.PhaseApply)
	opts.publish(Event{File: display, Stage: StageLocate, Status: StatusWorking})

	working := file
	appliedIDs := make([]string, 0, len(entry.Patches))
	for _, p := range entry.Patches {
		if err := ctx.Err(); err != nil {
			opts.end(locateIdx, display)
			return report, err
		}

		// Inserts skip on content alone: the anchor line survives the
		// edit, so presence of the inserted text is the applied signal.
		if (p.Mode == patch.ModeInsertBefore || p.Mode == patch.ModeInsertAfter) && p.AppliedTo(working.Content) {
			report.Skipped = append(report.Skipped, SkippedPatch{
				ID:     p.ID,
				Path:   display,
				Reason: "already applied",
			})
			continue
		}

		region, ok, err := patch.Locate(working, &p.Rule)
		if err != nil {
			opts.end(locateIdx, display)
			return report, fmt.Errorf("%s: patch %s: %w", display, p.Label(), err)
		}
		if !ok {
			// Deletes leave nothing behind to recognize; only a journal
			// record from a prior run makes a vanished anchor "applied".
			if p.AppliedTo(working.Content) || (p.Mode == patch.ModeDelete && priorRun[p.ID]) {
				report.Skipped = append(report.Skipped, SkippedPatch{
					ID:     p.ID,
					Path:   display,
					Reason: "already applied",
				})
				continue
			}
			opts.end(locateIdx, display)
			return report, fmt.Errorf("%s: patch %s (%s): %w", display, p.Label(), p.Rule.Describe(), patch.ErrNotFound)
		}

		opts.publish(Event{File: display, Stage: StageApply, Status: StatusWorking, Detail: p.Label()})
		edit := patch.BuildEdit(working, &p, region)
		next, err := patch.Splice(working.Content, edit)
		if err != nil {
			opts.end(locateIdx, display)
			return report, fmt.Errorf("%s: patch %s: %w", display, p.Label(), err)
		}

		startPos, _ := fs.Resolve(region)

		// The buffer evolves between patches: register the new version so
		// later patches (and the idempotence check) see the post-state.
		working = fs.Get(fs.Add(file.Path, next, file.Flags))

		// Verified idempotence: a rerun against the rewritten buffer must
		// be a no-op, or a second invocation would corrupt the file.
		if !patch.Converged(working, &p) {
			opts.end(locateIdx, display)
			return report, fmt.Errorf("%s: patch %s (%s): %w", display, p.Label(), p.Rule.Describe(), patch.ErrNotIdempotent)
		}

		report.Applied = append(report.Applied, AppliedPatch{
			ID:   p.ID,
			Path: display,
			Mode: p.Mode.String(),
			Rule: p.Rule.Describe(),
			Line: startPos.Line,
			Col:  startPos.Col,
		})
		appliedIDs = append(appliedIDs, p.ID)
	}
	opts.end(locateIdx, display)

	if len(appliedIDs) == 0 {
		// Nothing changed: either the patch list was empty or everything
		// was already applied. The file stays byte-for-byte untouched.
		opts.publish(Event{File: display, Stage: StageWrite, Status: StatusDone, Detail: "unchanged"})
		return report, nil
	}

	if opts.DryRun {
		report.Changes = append(report.Changes, FileChange{
			Path:      display,
			EditCount: len(appliedIDs),
			DryRun:    true,
		})
		opts.publish(Event{File: display, Stage: StageWrite, Status: StatusDone, Detail: "dry-run"})
		return report, nil
	}

	writeIdx := opts.begin(observ.PhaseWrite)
	opts.publish(Event{File: display, Stage: StageWrite, Status: StatusWorking})

	backupPath, err := backupOriginal(target, opts.BackupDir)
	if err != nil {
		opts.end(writeIdx, display)
		return report, fmt.Errorf("backup %s: %w", target, err)
	}

	if err := replaceFile(target, encodeForDisk(working)); err != nil {
		opts.end(writeIdx, display)
		return report, fmt.Errorf("write %s: %w", target, err)
	}
	opts.end(writeIdx, display)

	if err := opts.Journal.Put(key, &journal.Entry{
		PlanName:   pl.Name,
		TargetPath: entry.Path,
		PatchIDs:   appliedIDs,
		PreHash:    preHash,
		PostHash:   working.Hash,
		AppliedAt:  time.Now().Unix(),
	}); err != nil {
		// The rewrite itself succeeded; a journal failure only costs the
		// fast path on the next run.
		opts.publish(Event{File: display, Status: StatusWorking, Detail: "journal write failed: " + err.Error()})
	}

	report.Changes = append(report.Changes, FileChange{
		Path:      display,
		EditCount: len(appliedIDs),
		Backup:    backupPath,
	})
	opts.publish(Event{File: display, Stage: StageWrite, Status: StatusDone})
	return report, nil
}

// encodeForDisk undoes the load-time normalization so the written file
// keeps its original line endings and BOM.
func encodeForDisk(f *source.File) []byte {
	out := f.Content
	if f.Flags&source.FileNormalizedCRLF != 0 {
		out = source.RestoreCRLF(out)
	}
	if f.Flags&source.FileHadBOM != 0 {
		out = source.RestoreBOM(out)
	}
	return out
}

// backupOriginal copies the target before it is replaced. An empty
// backupDir means a .bak sibling.
func backupOriginal(target, backupDir string) (string, error) {
	raw, err := os.ReadFile(target) // #nosec G304 -- target comes from the plan
	if err != nil {
		return "", err
	}

	var backupPath string
	if backupDir == "" {
		backupPath = target + ".bak"
	} else {
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return "", err
		}
		backupPath = filepath.Join(backupDir, filepath.Base(target)+".bak")
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(backupPath, raw, mode); err != nil {
		return "", err
	}
	return backupPath, nil
}

// replaceFile writes content to a temp file in the target's directory and
// atomically renames it over the original, preserving the file mode.
func replaceFile(target string, content []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode()
	}

	dir := filepath.Dir(target)
	f, err := os.CreateTemp(dir, ".stitch-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), target)
}
