package config

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/eupholio/costparity/internal/parityerr"
	"github.com/eupholio/costparity/internal/runner"
)

// Built-in engine commands, run from Root and Root/eupholio-core.
var (
	referenceArgs = []string{"run", "scripts/go_cost_compare.go"}
	candidateArgs = []string{"run", "--quiet", "--bin", "eupholio-core-cli"}
)

// CandidateSubdir is the candidate crate's directory under Root.
const CandidateSubdir = "eupholio-core"

// LookPathFunc resolves an executable name, like exec.LookPath.
type LookPathFunc func(string) (string, error)

// ResolveEngines turns the engine settings into runnable engines. A missing
// reference toolchain is a fatal CONFIG error. The candidate toolchain is
// not checked: if it cannot start, every case records that failure.
func (c *Config) ResolveEngines(lookPath LookPathFunc) (ref, cand runner.Engine, err error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	ref = runner.Engine{Name: "reference", Dir: c.Reference.Dir, Env: c.Reference.Env}
	if len(c.Reference.Argv) > 0 {
		ref.Argv = append([]string(nil), c.Reference.Argv...)
	} else {
		bin := c.GoBin
		if bin == "" {
			bin = "go"
		}
		ref.Argv = append([]string{bin}, referenceArgs...)
	}
	if ref.Dir == "" {
		ref.Dir = c.Root
	}
	if err := resolveReference(&ref, lookPath); err != nil {
		return runner.Engine{}, runner.Engine{}, err
	}

	cand = runner.Engine{Name: "candidate", Dir: c.Candidate.Dir, Env: c.Candidate.Env}
	if len(c.Candidate.Argv) > 0 {
		cand.Argv = append([]string(nil), c.Candidate.Argv...)
		if cand.Dir == "" {
			cand.Dir = c.Root
		}
	} else {
		bin := c.CargoBin
		if bin == "" {
			bin = "cargo"
		}
		cand.Argv = append([]string{bin}, candidateArgs...)
		if cand.Dir == "" {
			cand.Dir = filepath.Join(c.Root, CandidateSubdir)
		}
	}
	return ref, cand, nil
}

// resolveReference checks that the reference executable exists. Bare names
// are searched on PATH and replaced by the full path; names with a separator
// are checked as files, relative ones against the engine's Dir.
func resolveReference(ref *runner.Engine, lookPath LookPathFunc) error {
	name := ref.Argv[0]
	target := name
	if strings.ContainsRune(name, filepath.Separator) && !filepath.IsAbs(name) && ref.Dir != "" {
		target = filepath.Join(ref.Dir, name)
		if !strings.ContainsRune(target, filepath.Separator) {
			target = "." + string(filepath.Separator) + target
		}
	}
	path, err := lookPath(target)
	if err != nil {
		return parityerr.Wrap(parityerr.Config, "reference",
			fmt.Sprintf("reference toolchain %q not found (set %s or reference.argv)", name, EnvGoBin), err)
	}
	if !strings.ContainsRune(name, filepath.Separator) {
		ref.Argv[0] = path
	}
	return nil
}
