package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stitch/internal/journal"
	"stitch/internal/observ"
	"stitch/internal/plan"
	"stitch/internal/rewrite"
	"stitch/internal/source"
)

var applyCmd = &cobra.Command{
	Use:   "apply [flags] <plan.toml>",
	Short: "Apply a patch plan to its target files",
	Long:  "Load a plan, locate every patch in its target file, apply the edits, and write the results back atomically. Targets that already carry the patches are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().StringSlice("file", nil, "restrict the run to the named plan entries")
	applyCmd.Flags().Bool("dry-run", false, "locate and apply in memory without writing")
	applyCmd.Flags().String("backup-dir", "", "directory for pre-rewrite backups (default: .bak siblings)")
	applyCmd.Flags().Bool("no-journal", false, "skip the applied-plans journal")
	applyCmd.Flags().String("ui", "auto", "interactive progress (auto|on|off)")
}

func runApply(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	pl, err := plan.Load(args[0])
	if err != nil {
		return err
	}

	only, err := cmd.Flags().GetStringSlice("file")
	if err != nil {
		return err
	}
	if len(only) > 0 {
		if err := restrictPlan(pl, only); err != nil {
			return err
		}
	}

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	backupDir, err := cmd.Flags().GetString("backup-dir")
	if err != nil {
		return err
	}
	noJournal, err := cmd.Flags().GetBool("no-journal")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	var jn *journal.Journal
	if !noJournal && !dryRun {
		jn, err = journal.Open("stitch")
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
	}

	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}

	opts := rewrite.Options{
		DryRun:    dryRun,
		BackupDir: backupDir,
		Journal:   jn,
		Timer:     timer,
	}

	var report *rewrite.Report
	var runErr error
	if shouldUseTUI(mode) && !quiet {
		report, runErr = runApplyWithUI(cmd.Context(), "stitch apply "+pl.Name, pl, opts)
	} else {
		report, runErr = rewrite.Plan(cmd.Context(), pl, source.NewFileSetWithBase(pl.Root), opts)
	}

	printReport(os.Stdout, report, quiet)
	if timer != nil {
		fmt.Fprint(os.Stdout, timer.Summary())
	}
	return runErr
}

// restrictPlan narrows the plan to the named entries, in plan order.
// Every requested name must exist in the plan.
func restrictPlan(pl *plan.Plan, only []string) error {
	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[filepath.ToSlash(name)] = false
	}

	kept := make([]plan.FileEntry, 0, len(only))
	for _, entry := range pl.Files {
		key := filepath.ToSlash(entry.Path)
		if _, ok := want[key]; ok {
			want[key] = true
			kept = append(kept, entry)
		}
	}
	for name, found := range want {
		if !found {
			return fmt.Errorf("plan %s has no entry for %q", pl.Name, name)
		}
	}
	pl.Files = kept
	return nil
}

func printReport(out io.Writer, report *rewrite.Report, quiet bool) {
	if report == nil {
		return
	}
	if len(report.Applied) > 0 && !quiet {
		fmt.Fprintf(out, "Applied %d patch(es):\n", len(report.Applied))
		for _, item := range report.Applied {
			fmt.Fprintf(out, "  %s: %s:%d:%d (%s)\n", item.ID, item.Path, item.Line, item.Col, item.Mode)
		}
	}
	if len(report.Skipped) > 0 && !quiet {
		fmt.Fprintln(out, "Skipped patches:")
		for _, skip := range report.Skipped {
			fmt.Fprintf(out, "  %s: %s (%s)\n", skip.ID, skip.Path, skip.Reason)
		}
	}
	if len(report.Changes) > 0 {
		fmt.Fprintln(out, "Updated files:")
		for _, change := range report.Changes {
			suffix := ""
			if change.DryRun {
				suffix = " (dry-run)"
			}
			fmt.Fprintf(out, "  %s (%d edits)%s\n", change.Path, change.EditCount, suffix)
		}
	}
	if len(report.Applied) == 0 && len(report.Changes) == 0 && !quiet {
		fmt.Fprintln(out, "Nothing to apply.")
	}
}
