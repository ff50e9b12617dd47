package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/eupholio/costparity/internal/parityerr"
)

// Event tags priced by both engines.
const (
	TagAcquire = "Acquire"
	TagDispose = "Dispose"
	TagIncome  = "Income"
)

// Fixture is one parsed case file.
type Fixture struct {
	// Path is the file the fixture was loaded from.
	Path string `json:"-"`

	Description string `json:"description,omitempty"`

	TaxYear int `json:"tax_year"`

	// Events are kept in file order; the engines process them chronologically.
	Events []Event `json:"events"`

	// CarryIn is the opening balance per asset for the total-average method.
	CarryIn map[string]CarryIn `json:"carry_in,omitempty"`

	// Rounding is the engines' rounding policy, forwarded verbatim.
	Rounding json.RawMessage `json:"rounding,omitempty"`

	// CheckMoving and CheckTotal are nil when absent. An explicit null
	// turns the check off.
	CheckMoving *bool `json:"check_moving,omitempty"`
	CheckTotal  *bool `json:"check_total,omitempty"`

	Expectation *Expectation `json:"expectation,omitempty"`
}

// Event is a tagged ledger event. Exactly one of JPYCost, JPYProceeds and
// JPYValue is set for the recognized tags.
type Event struct {
	Type        string  `json:"type"`
	ID          string  `json:"id,omitempty"`
	Asset       string  `json:"asset"`
	Qty         Amount  `json:"qty"`
	TS          string  `json:"ts,omitempty"`
	JPYCost     *Amount `json:"jpy_cost,omitempty"`
	JPYProceeds *Amount `json:"jpy_proceeds,omitempty"`
	JPYValue    *Amount `json:"jpy_value,omitempty"`
}

// CarryIn is an opening position carried from the previous tax year.
type CarryIn struct {
	Qty  Amount `json:"qty"`
	Cost Amount `json:"cost"`
}

// Expectation holds hand-computed realized P&L per method.
type Expectation struct {
	MovingRealizedPnLJPY *Amount `json:"moving_realized_pnl_jpy,omitempty"`
	TotalRealizedPnLJPY  *Amount `json:"total_realized_pnl_jpy,omitempty"`
}

// Name is the case name used in reports: the file's base name.
func (f *Fixture) Name() string {
	return filepath.Base(f.Path)
}

// ChecksMoving reports the check_moving flag (default true).
func (f *Fixture) ChecksMoving() bool {
	return f.CheckMoving == nil || *f.CheckMoving
}

// ChecksTotal reports the check_total flag (default true).
func (f *Fixture) ChecksTotal() bool {
	return f.CheckTotal == nil || *f.CheckTotal
}

// HasRounding reports whether a rounding policy was declared.
func (f *Fixture) HasRounding() bool {
	return len(bytes.TrimSpace(f.Rounding)) > 0 && !isNull(f.Rounding)
}

// Recognized reports whether the event tag is one the engines price.
func (e Event) Recognized() bool {
	switch e.Type {
	case TagAcquire, TagDispose, TagIncome:
		return true
	default:
		return false
	}
}

// Amount returns the variant-specific monetary field for the event's tag.
// ok is false for unrecognized tags or when the field is missing.
func (e Event) Amount() (Amount, bool) {
	var a *Amount
	switch e.Type {
	case TagAcquire:
		a = e.JPYCost
	case TagDispose:
		a = e.JPYProceeds
	case TagIncome:
		a = e.JPYValue
	}
	if a == nil {
		return Amount{}, false
	}
	return *a, true
}

var defaultLoader = sync.OnceValues(NewLoader)

// Load reads and validates a case file with the shared loader.
func Load(path string) (*Fixture, error) {
	l, err := defaultLoader()
	if err != nil {
		return nil, err
	}
	return l.Load(path)
}

// Loader reads case files and validates them against the fixture schema.
// It is safe for concurrent use.
type Loader struct {
	mu     sync.Mutex
	schema *schema
}

// NewLoader compiles the embedded schema.
func NewLoader() (*Loader, error) {
	s, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile fixture schema: %w", err)
	}
	return &Loader{schema: s}, nil
}

// Load reads a case file. Any failure is a FIXTURE_PARSE error.
func (l *Loader) Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, parityerr.Wrap(parityerr.FixtureParse, path, "failed to read fixture", err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		format = FormatJSON
	}

	return l.Parse(path, data, format)
}

// Supported case file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Parse decodes case file contents. name is used for error positions and
// becomes the fixture's Path.
func (l *Loader) Parse(name string, data []byte, format string) (*Fixture, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, parityerr.Wrap(parityerr.FixtureParse, name, "failed to parse YAML", err)
		}
		data = converted
	}

	l.mu.Lock()
	err := l.schema.validate(name, data)
	l.mu.Unlock()
	if err != nil {
		return nil, parityerr.Wrap(parityerr.FixtureParse, name, "fixture does not match schema", err)
	}

	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, parityerr.Wrap(parityerr.FixtureParse, name, "failed to decode fixture", err)
	}
	f.Path = name
	if err := applyNullChecks(&f, data); err != nil {
		return nil, parityerr.Wrap(parityerr.FixtureParse, name, "failed to decode fixture", err)
	}

	if err := validateFixture(&f); err != nil {
		return nil, parityerr.Wrap(parityerr.FixtureParse, name, "invalid fixture", err)
	}
	return &f, nil
}

// validateFixture checks what the schema cannot express per tag.
func validateFixture(f *Fixture) error {
	if f.TaxYear <= 0 {
		return fmt.Errorf("tax_year must be positive, got %d", f.TaxYear)
	}
	if f.Events == nil {
		return fmt.Errorf("events is required")
	}
	for i, e := range f.Events {
		if e.Asset == "" {
			return fmt.Errorf("events[%d]: asset is required", i)
		}
		if e.Qty.IsZero() {
			return fmt.Errorf("events[%d]: qty is required", i)
		}
		if !e.Recognized() {
			continue
		}
		if _, ok := e.Amount(); !ok {
			return fmt.Errorf("events[%d]: %s requires %s", i, e.Type, variantField(e.Type))
		}
		if n := countVariantFields(e); n != 1 {
			return fmt.Errorf("events[%d]: %s must carry only %s", i, e.Type, variantField(e.Type))
		}
	}
	for asset, c := range f.CarryIn {
		if c.Qty.IsZero() || c.Cost.IsZero() {
			return fmt.Errorf("carry_in[%q]: qty and cost are required", asset)
		}
	}
	return nil
}

// applyNullChecks turns a check off when its flag is present as null.
// json.Unmarshal leaves a *bool nil for null, which reads as the default.
func applyNullChecks(f *Fixture, data []byte) error {
	var raw struct {
		CheckMoving json.RawMessage `json:"check_moving"`
		CheckTotal  json.RawMessage `json:"check_total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	off := false
	if isNull(raw.CheckMoving) {
		f.CheckMoving = &off
	}
	if isNull(raw.CheckTotal) {
		f.CheckTotal = &off
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func variantField(tag string) string {
	switch tag {
	case TagAcquire:
		return "jpy_cost"
	case TagDispose:
		return "jpy_proceeds"
	case TagIncome:
		return "jpy_value"
	}
	return ""
}

func countVariantFields(e Event) int {
	n := 0
	for _, a := range []*Amount{e.JPYCost, e.JPYProceeds, e.JPYValue} {
		if a != nil {
			n++
		}
	}
	return n
}
