package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir holds golden reports, relative to the test's package.
const GoldenDir = "testdata/golden"

// AssertGolden renders results in both formats and compares them with
// GoldenDir/{name}.golden and GoldenDir/{name}.summary.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, results []CaseResult) {
	t.Helper()

	var text, summary bytes.Buffer
	if err := WriteReport(&text, results, FormatText); err != nil {
		t.Fatalf("render text report: %v", err)
	}
	if err := WriteReport(&summary, results, FormatJSON); err != nil {
		t.Fatalf("render summary: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, text.Bytes())
	g.Assert(t, name+".summary", summary.Bytes())
}
