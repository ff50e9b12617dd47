package journal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupholio/costparity/internal/runner"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Memory, "run-1")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_MemoryJournalSurvivesAcrossQueries(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, runner.Call{Case: "a.json", Engine: "reference", Request: []byte(`{}`)}))
	entries, err := j.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpen_FileJournalIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path, "run")
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, j.Record(context.Background(), runner.Call{Case: "a.json", Engine: "reference", Request: []byte(`{}`)}))
		require.NoError(t, j.Close())
	}

	j, err := Open(path, "run")
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	var version int
	require.NoError(t, j.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestRecord_StoresCallFields(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, runner.Call{
		Case:     "parity_fixture_case1.json",
		Engine:   "candidate",
		Method:   "moving_average",
		Request:  []byte(`{"method":"moving_average","tax_year":2025,"events":[]}`),
		ExitCode: 1,
		Duration: 1500 * time.Microsecond,
		Err:      "unsupported method",
	}))

	entries, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, "parity_fixture_case1.json", e.Case)
	assert.Equal(t, "candidate", e.Engine)
	assert.Equal(t, "moving_average", e.Method)
	assert.Equal(t, 1, e.ExitCode)
	assert.Equal(t, int64(1500), e.DurationUS)
	assert.Equal(t, "unsupported method", e.Error)
	assert.Len(t, e.RequestHash, 64)
}

func TestRecord_HashIgnoresFormatting(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, runner.Call{Case: "a", Engine: "candidate", Method: "total_average", Request: []byte(`{"tax_year":2025,"method":"total_average"}`)}))
	require.NoError(t, j.Record(ctx, runner.Call{Case: "b", Engine: "candidate", Method: "total_average", Request: []byte("{\n \"method\": \"total_average\",\n \"tax_year\": 2025\n}")}))

	entries, err := j.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0].RequestHash, entries[1].RequestHash)
}

func TestRecord_RejectsMalformedRequest(t *testing.T) {
	j := openTest(t)
	err := j.Record(context.Background(), runner.Call{Case: "a", Engine: "reference", Request: []byte(`{`)})
	require.Error(t, err)
}

func TestList_OrderIsIndependentOfInsertOrder(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	calls := []runner.Call{
		{Case: "b.json", Engine: "reference"},
		{Case: "a.json", Engine: "candidate", Method: "total_average"},
		{Case: "a.json", Engine: "reference"},
		{Case: "a.json", Engine: "candidate", Method: "moving_average"},
	}
	for _, c := range calls {
		require.NoError(t, j.Record(ctx, c))
	}

	entries, err := j.List(ctx)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Case+"/"+e.Engine+"/"+e.Method)
	}
	assert.Equal(t, []string{
		"a.json/candidate/moving_average",
		"a.json/candidate/total_average",
		"a.json/reference/",
		"b.json/reference/",
	}, got)
}

func TestHook_ConcurrentWrites(t *testing.T) {
	j := openTest(t)
	hook := j.Hook(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hook(context.Background(), runner.Call{Case: "a.json", Engine: "candidate", Method: "moving_average", Request: []byte(`{}`)})
		}()
	}
	wg.Wait()

	entries, err := j.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 16)
	for i, e := range entries {
		assert.Equal(t, "candidate", e.Engine)
		if i > 0 {
			assert.Greater(t, e.Seq, entries[i-1].Seq)
		}
	}
}

func TestHook_RecordsAfterCancellation(t *testing.T) {
	j := openTest(t)
	hook := j.Hook(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hook(ctx, runner.Call{Case: "a.json", Engine: "reference", Err: "reference timed out after 30s"})

	entries, err := j.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reference timed out after 30s", entries[0].Error)
}

func TestHook_LogsFailureOnce(t *testing.T) {
	j := openTest(t)
	var logs bytes.Buffer
	hook := j.Hook(slog.New(slog.NewTextHandler(&logs, nil)))

	for i := 0; i < 3; i++ {
		hook(context.Background(), runner.Call{Case: "a.json", Engine: "reference", Request: []byte("not json")})
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "journal write failed"))
}

func TestWriteTrace(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTrace(&buf, []Entry{
		{Case: "a.json", Engine: "reference", RequestHash: "0123456789abcdef", DurationUS: 2000},
		{Case: "a.json", Engine: "candidate", Method: "moving_average", ExitCode: 1, Error: "boom\nstack"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "CASE"))
	assert.Contains(t, lines[1], "0123456789ab")
	assert.NotContains(t, lines[1], "0123456789abc")
	assert.Contains(t, lines[1], "2ms")
	assert.Contains(t, lines[1], " - ")
	assert.Contains(t, lines[2], "boom ...")
}
