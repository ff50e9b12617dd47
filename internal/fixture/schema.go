package fixture

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

// schema is the compiled #Fixture definition. A cue.Context is not safe for
// concurrent use; Loader serializes access.
type schema struct {
	ctx     *cue.Context
	fixture cue.Value
}

func compileSchema() (*schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := v.LookupPath(cue.ParsePath("#Fixture"))
	if !def.Exists() {
		return nil, fmt.Errorf("schema.cue: #Fixture not defined")
	}
	return &schema{ctx: ctx, fixture: def}, nil
}

// validate checks JSON data against #Fixture.
func (s *schema) validate(name string, data []byte) error {
	expr, err := cuejson.Extract(name, data)
	if err != nil {
		return formatCUEError(err)
	}
	v := s.ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := s.fixture.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// SchemaError is a schema violation with its position in the case file.
type SchemaError struct {
	Message string
	File    string
	Line    int
	Column  int
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	se := &SchemaError{Message: first.Error()}
	for _, pos := range errors.Positions(first) {
		// Prefer a position inside the case file over one in schema.cue.
		if pos.Filename() == "schema.cue" {
			continue
		}
		se.File, se.Line, se.Column = pos.Filename(), pos.Line(), pos.Column()
		break
	}
	return se
}
