package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupholio/costparity/internal/runner"
)

func candidateInv(body string) runner.Invocation {
	return runner.Invocation{Argv: []string{CandidateBin}, Stdin: []byte(body)}
}

func TestFakeEngines_DispatchesOnArgv(t *testing.T) {
	f := &FakeEngines{
		Reference: ReferenceAnswers("10", "20"),
		Candidate: CandidateAnswers(map[string]string{"moving_average": "10"}),
	}

	out, err := f.Run(context.Background(), runner.Invocation{Argv: []string{ReferenceBin}})
	require.NoError(t, err)
	assert.Contains(t, string(out.Stdout), `"method":"mam","realized_pnl_jpy":"10"`)
	assert.Contains(t, string(out.Stdout), `"method":"wam","realized_pnl_jpy":"20"`)

	out, err = f.Run(context.Background(), candidateInv(`{"method":"moving_average"}`))
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Contains(t, string(out.Stdout), `"realized_pnl_jpy": "10"`)

	assert.Equal(t, 1, f.ReferenceCalls())
	assert.Equal(t, 1, f.CandidateCalls("moving_average"))
	assert.Equal(t, 0, f.CandidateCalls("total_average"))
}

func TestFakeEngines_UnsupportedMethod(t *testing.T) {
	f := &FakeEngines{Candidate: CandidateAnswers(map[string]string{})}

	out, err := f.Run(context.Background(), candidateInv(`{"method":"total_average"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, out.ExitCode)
	assert.Equal(t, "Error: unsupported method: total_average", string(out.Stderr))
}

func TestFakeEngines_MissingScriptIsSpawnFailure(t *testing.T) {
	f := &FakeEngines{}

	_, err := f.Run(context.Background(), runner.Invocation{Argv: []string{CandidateBin}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executable file not found")

	_, err = f.Run(context.Background(), runner.Invocation{})
	require.Error(t, err)

	// Failed spawns are still recorded.
	assert.Len(t, f.Calls(), 2)
}

func TestFakeEngines_CanceledContext(t *testing.T) {
	f := &FakeEngines{Reference: ReferenceAnswers("1", "1")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Run(ctx, runner.Invocation{Argv: []string{ReferenceBin}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestByTaxYear(t *testing.T) {
	f := &FakeEngines{Candidate: ByTaxYear(map[int]Script{
		2025: Stdout(`{"realized_pnl_jpy":"1"}`),
		2026: Stdout(`{"realized_pnl_jpy":"2"}`),
	})}

	out, err := f.Run(context.Background(), candidateInv(`{"tax_year":2026}`))
	require.NoError(t, err)
	assert.Equal(t, `{"realized_pnl_jpy":"2"}`, string(out.Stdout))

	out, err = f.Run(context.Background(), candidateInv(`{"tax_year":1999}`))
	require.NoError(t, err)
	assert.Equal(t, 2, out.ExitCode)

	_, err = f.Run(context.Background(), candidateInv(`not json`))
	assert.Error(t, err)
}

func TestFakeEngines_ThreadSafe(t *testing.T) {
	f := &FakeEngines{Candidate: CandidateAnswers(map[string]string{"moving_average": "0"})}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := f.Run(context.Background(), candidateInv(`{"method":"moving_average"}`))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, f.CandidateCalls("moving_average"))
}
