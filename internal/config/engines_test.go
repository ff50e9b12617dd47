package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupholio/costparity/internal/parityerr"
)

func fakeLookPath(found map[string]string) LookPathFunc {
	return func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestResolveEngines_Defaults(t *testing.T) {
	cfg := Default()
	cfg.Root = "/work"

	ref, cand, err := cfg.ResolveEngines(fakeLookPath(map[string]string{"go": "/usr/local/go/bin/go"}))
	require.NoError(t, err)

	assert.Equal(t, "reference", ref.Name)
	assert.Equal(t, []string{"/usr/local/go/bin/go", "run", "scripts/go_cost_compare.go"}, ref.Argv)
	assert.Equal(t, "/work", ref.Dir)

	assert.Equal(t, "candidate", cand.Name)
	assert.Equal(t, []string{"cargo", "run", "--quiet", "--bin", "eupholio-core-cli"}, cand.Argv)
	assert.Equal(t, "/work/eupholio-core", cand.Dir)
}

func TestResolveEngines_GoBinIsUsed(t *testing.T) {
	cfg := Default()
	cfg.GoBin = "/opt/go/bin/go"
	cfg.CargoBin = "/opt/cargo/bin/cargo"

	ref, cand, err := cfg.ResolveEngines(fakeLookPath(map[string]string{"/opt/go/bin/go": "/opt/go/bin/go"}))
	require.NoError(t, err)
	assert.Equal(t, "/opt/go/bin/go", ref.Argv[0])
	assert.Equal(t, "/opt/cargo/bin/cargo", cand.Argv[0])
}

func TestResolveEngines_MissingReferenceToolchainIsFatal(t *testing.T) {
	cfg := Default()

	_, _, err := cfg.ResolveEngines(fakeLookPath(nil))
	require.Error(t, err)
	assert.True(t, parityerr.Is(err, parityerr.Config))
	assert.Contains(t, err.Error(), "GO_BIN")
}

func TestResolveEngines_MissingGoBinIsConfigError(t *testing.T) {
	cfg := Default()
	cfg.GoBin = "/opt/missing/go"

	_, _, err := cfg.ResolveEngines(fakeLookPath(map[string]string{"go": "/usr/bin/go"}))
	require.Error(t, err)
	assert.True(t, parityerr.Is(err, parityerr.Config))
	assert.Contains(t, err.Error(), "/opt/missing/go")
}

func TestResolveEngines_RelativeReferenceIsCheckedInDir(t *testing.T) {
	cfg := Default()
	cfg.Root = "/work"
	cfg.Reference = Engine{Argv: []string{"./bin/go_cost_compare"}}

	ref, _, err := cfg.ResolveEngines(fakeLookPath(map[string]string{"/work/bin/go_cost_compare": "/work/bin/go_cost_compare"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"./bin/go_cost_compare"}, ref.Argv)

	cfg.Root = "/elsewhere"
	_, _, err = cfg.ResolveEngines(fakeLookPath(map[string]string{"/work/bin/go_cost_compare": "/work/bin/go_cost_compare"}))
	assert.True(t, parityerr.Is(err, parityerr.Config))
}

func TestResolveEngines_MissingCargoIsNotChecked(t *testing.T) {
	cfg := Default()

	_, cand, err := cfg.ResolveEngines(fakeLookPath(map[string]string{"go": "/usr/bin/go"}))
	require.NoError(t, err)
	assert.Equal(t, "cargo", cand.Argv[0])
}

func TestResolveEngines_CustomArgv(t *testing.T) {
	cfg := Default()
	cfg.Root = "/work"
	cfg.Reference = Engine{Argv: []string{"/work/bin/go_cost_compare"}}
	cfg.Candidate = Engine{Argv: []string{"./target/release/eupholio-core-cli"}, Dir: "/work/eupholio-core"}

	ref, cand, err := cfg.ResolveEngines(fakeLookPath(map[string]string{"/work/bin/go_cost_compare": "/work/bin/go_cost_compare"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/bin/go_cost_compare"}, ref.Argv)
	assert.Equal(t, "/work", ref.Dir)
	assert.Equal(t, []string{"./target/release/eupholio-core-cli"}, cand.Argv)
	assert.Equal(t, "/work/eupholio-core", cand.Dir)

	cfg.Reference.Argv[0] = "mutated"
	assert.Equal(t, "/work/bin/go_cost_compare", ref.Argv[0])
}
