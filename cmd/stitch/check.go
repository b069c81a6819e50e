package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stitch/internal/patch"
	"stitch/internal/plan"
	"stitch/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <plan.toml>",
	Short: "Locate every patch without modifying files",
	Long:  "Run the locator over every patch in the plan and report where each one would land. Nothing is written; the exit code tells whether an apply would succeed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringSlice("file", nil, "restrict the check to the named plan entries")
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().Int("jobs", 0, "parallel file checks (0 = number of CPUs)")
}

type checkFinding struct {
	PatchID string `json:"patch_id"`
	Path    string `json:"path"`
	Line    uint32 `json:"line,omitempty"`
	Col     uint32 `json:"col,omitempty"`
	Status  string `json:"status"` // ok | applied | missing | ambiguous | divergent
	Detail  string `json:"detail,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.TrimSpace(strings.ToLower(format))
	switch format {
	case "pretty", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	// Each file gets its own FileSet so checks never share mutable state.
	perFile := make([][]checkFinding, len(pl.Files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, entry := range pl.Files {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			findings, err := checkFile(pl, entry)
			if err != nil {
				return err
			}
			perFile[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	findings := make([]checkFinding, 0, len(pl.Files))
	for _, fs := range perFile {
		findings = append(findings, fs...)
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(findings); err != nil {
			return err
		}
	} else {
		printFindings(os.Stdout, findings)
	}

	bad := 0
	for _, f := range findings {
		switch f.Status {
		case "missing", "ambiguous", "divergent":
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d patch(es) cannot be applied: %w", bad, len(findings), patch.ErrNotFound)
	}
	return nil
}

// checkFile simulates the apply fold in memory: each patch locates
// against the buffer as rewritten by its predecessors, so a patch that
// anchors on an earlier patch's insertion checks the same way it applies.
func checkFile(pl *plan.Plan, entry plan.FileEntry) ([]checkFinding, error) {
	fs := source.NewFileSetWithBase(pl.Root)
	target := pl.ResolveTarget(entry)

	id, err := fs.Load(target)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", target, err)
	}
	working := fs.Get(id)

	findings := make([]checkFinding, 0, len(entry.Patches))
	for _, p := range entry.Patches {
		finding := checkFinding{PatchID: p.ID, Path: entry.Path}

		if (p.Mode == patch.ModeInsertBefore || p.Mode == patch.ModeInsertAfter) && p.AppliedTo(working.Content) {
			finding.Status = "applied"
			findings = append(findings, finding)
			continue
		}

		region, ok, err := patch.Locate(working, &p.Rule)
		switch {
		case err != nil:
			finding.Status = "ambiguous"
			finding.Detail = err.Error()
		case !ok:
			if p.AppliedTo(working.Content) {
				finding.Status = "applied"
			} else {
				finding.Status = "missing"
				finding.Detail = p.Rule.Describe()
			}
		default:
			start, _ := fs.Resolve(region)
			finding.Status = "ok"
			finding.Line = start.Line
			finding.Col = start.Col

			next, err := patch.Splice(working.Content, patch.BuildEdit(working, &p, region))
			if err != nil {
				finding.Status = "divergent"
				finding.Detail = err.Error()
				findings = append(findings, finding)
				continue
			}
			working = fs.Get(fs.Add(working.Path, next, working.Flags))
			if !patch.Converged(working, &p) {
				finding.Status = "divergent"
				finding.Detail = p.Rule.Describe()
			}
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

func printFindings(out io.Writer, findings []checkFinding) {
	okColor := color.New(color.FgGreen)
	appliedColor := color.New(color.FgYellow)
	badColor := color.New(color.FgRed)

	for _, f := range findings {
		switch f.Status {
		case "ok":
			fmt.Fprintf(out, "%s %s: %s:%d:%d\n", okColor.Sprint("ok       "), f.PatchID, f.Path, f.Line, f.Col)
		case "applied":
			fmt.Fprintf(out, "%s %s: %s\n", appliedColor.Sprint("applied  "), f.PatchID, f.Path)
		default:
			detail := f.Detail
			if detail != "" {
				detail = " (" + detail + ")"
			}
			fmt.Fprintf(out, "%s %s: %s%s\n", badColor.Sprint(f.Status+strings.Repeat(" ", max(0, 9-len(f.Status)))), f.PatchID, f.Path, detail)
		}
	}
}
