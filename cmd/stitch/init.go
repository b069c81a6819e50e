package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Scaffold a new patch plan",
	Long: `Create a starter plan file (stitch.toml) with one example patch per
locator kind. If [path|name] is omitted, the plan is created in the
current directory. A non-existing name creates the directory first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "stitch-plan"
	}

	planPath := filepath.Join(target, "stitch.toml")
	if _, err := os.Stat(planPath); err == nil {
		return fmt.Errorf("plan already exists: %s", planPath)
	}

	if err := os.WriteFile(planPath, []byte(buildStarterPlan(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}
	fmt.Fprintf(os.Stdout, "Initialized patch plan in %s\n", rel)
	fmt.Fprintf(os.Stdout, "  - stitch.toml\n")
	return nil
}

// buildStarterPlan returns a commented plan demonstrating each locator
// kind. Target paths are placeholders the user fills in.
func buildStarterPlan(name string) string {
	return fmt.Sprintf(`# Stitch patch plan
[plan]
name = "%s"

# Each [[file]] names one target; paths resolve relative to this plan.
[[file]]
path = "src/App.tsx"

# Substring locator: matches the full line containing the needle.
[[file.patch]]
id = "add-import"
mode = "insert_after"
find = "import React"
text = "import { useScrollLock } from './hooks';\n"

# Regex locator: matches exact offsets; (?s) makes . cross lines.
# [[file.patch]]
# id = "swap-handler"
# mode = "replace"
# pattern = '(?s)onClick=\{[^}]*\}'
# text = "onClick={handleClick}"

# Balance locator: anchor line plus everything to the matching closer.
# [[file.patch]]
# id = "drop-effect"
# mode = "delete"
# anchor = "useEffect(() => {"
# delims = "braces"
`, name)
}
