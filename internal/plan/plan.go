// Package plan loads and validates TOML patch plans: which files to
// rewrite and, per file, the ordered patch sequence to apply.
package plan

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stitch/internal/patch"
)

// Plan is a validated patch plan. Patch order within a file is the
// declaration order and is significant: later patches may anchor on text
// inserted by earlier ones.
type Plan struct {
	Name  string
	Path  string // plan file location
	Root  string // directory target paths are resolved against
	Files []FileEntry

	digest [32]byte
}

// FileEntry names one target file and its ordered patches.
type FileEntry struct {
	Path    string
	Patches []patch.Patch
}

// Digest identifies the exact plan content; used as the journal key so
// any edit to the plan invalidates prior "already applied" records.
func (p *Plan) Digest() [32]byte {
	return p.digest
}

// ResolveTarget resolves a file entry path against the plan root.
func (p *Plan) ResolveTarget(entry FileEntry) string {
	if filepath.IsAbs(entry.Path) {
		return entry.Path
	}
	return filepath.Join(p.Root, filepath.FromSlash(entry.Path))
}

type planConfig struct {
	Plan  planSection  `toml:"plan"`
	Files []fileConfig `toml:"file"`
}

type planSection struct {
	Name string `toml:"name"`
}

type fileConfig struct {
	Path    string        `toml:"path"`
	Patches []patchConfig `toml:"patch"`
}

type patchConfig struct {
	ID         string `toml:"id"`
	Mode       string `toml:"mode"`
	Find       string `toml:"find"`
	End        string `toml:"end"`
	Pattern    string `toml:"pattern"`
	Anchor     string `toml:"anchor"`
	Delims     string `toml:"delims"`
	Occurrence int    `toml:"occurrence"`
	FromLine   int    `toml:"from_line"`
	ToLine     int    `toml:"to_line"`
	Text       string `toml:"text"`
}

// Load reads, parses, and validates a plan file.
func Load(path string) (*Plan, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- plan path is the CLI argument
	if err != nil {
		return nil, err
	}
	return parse(path, raw)
}

func parse(path string, raw []byte) (*Plan, error) {
	var cfg planConfig
	meta, err := toml.Decode(string(raw), &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}

	if !meta.IsDefined("plan") {
		return nil, fmt.Errorf("%s: missing [plan]", path)
	}
	if !meta.IsDefined("plan", "name") || strings.TrimSpace(cfg.Plan.Name) == "" {
		return nil, fmt.Errorf("%s: missing [plan].name", path)
	}
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("%s: plan declares no [[file]] entries", path)
	}

	root := filepath.Dir(path)
	out := &Plan{
		Name:   strings.TrimSpace(cfg.Plan.Name),
		Path:   path,
		Root:   root,
		Files:  make([]FileEntry, 0, len(cfg.Files)),
		digest: sha256.Sum256(raw),
	}

	for fi, fc := range cfg.Files {
		if strings.TrimSpace(fc.Path) == "" {
			return nil, fmt.Errorf("%s: [[file]] #%d is missing path", path, fi+1)
		}
		entry := FileEntry{
			Path:    fc.Path,
			Patches: make([]patch.Patch, 0, len(fc.Patches)),
		}
		for pi, pc := range fc.Patches {
			built, err := buildPatch(pc, fi, pi)
			if err != nil {
				return nil, fmt.Errorf("%s: file %s: %w", path, fc.Path, err)
			}
			entry.Patches = append(entry.Patches, built)
		}
		out.Files = append(out.Files, entry)
	}

	if err := checkDuplicateIDs(out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func buildPatch(pc patchConfig, fileIdx, patchIdx int) (patch.Patch, error) {
	ord := patchIdx + 1

	mode, err := patch.ParseMode(pc.Mode)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("patch #%d: %w", ord, err)
	}

	rule, err := buildRule(pc)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("patch #%d: %w", ord, err)
	}

	id := strings.TrimSpace(pc.ID)
	if id == "" {
		id = fmt.Sprintf("file%d-patch%d", fileIdx+1, ord)
	}

	built := patch.Patch{
		ID:   id,
		Rule: rule,
		Mode: mode,
		Text: pc.Text,
	}
	if err := built.Validate(); err != nil {
		return patch.Patch{}, err
	}
	return built, nil
}

func buildRule(pc patchConfig) (patch.Rule, error) {
	set := 0
	if pc.Find != "" {
		set++
	}
	if pc.Pattern != "" {
		set++
	}
	if pc.Anchor != "" {
		set++
	}
	if set != 1 {
		return patch.Rule{}, fmt.Errorf("exactly one of find, pattern, or anchor is required")
	}

	delims, err := patch.ParseDelimiters(pc.Delims)
	if err != nil {
		return patch.Rule{}, err
	}

	rule := patch.Rule{
		Find:       pc.Find,
		End:        pc.End,
		Pattern:    pc.Pattern,
		Anchor:     pc.Anchor,
		Delims:     delims,
		Occurrence: pc.Occurrence,
		FromLine:   pc.FromLine,
		ToLine:     pc.ToLine,
	}
	switch {
	case pc.Pattern != "":
		rule.Kind = patch.RuleRegex
	case pc.Anchor != "":
		rule.Kind = patch.RuleBalance
	default:
		rule.Kind = patch.RuleSubstring
	}
	return rule, nil
}

func checkDuplicateIDs(p *Plan) error {
	seen := make(map[string]string)
	for _, entry := range p.Files {
		for _, pc := range entry.Patches {
			if prev, dup := seen[pc.ID]; dup {
				return fmt.Errorf("duplicate patch id %q (in %s and %s)", pc.ID, prev, entry.Path)
			}
			seen[pc.ID] = entry.Path
		}
	}
	return nil
}
