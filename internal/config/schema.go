package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// validateSchema checks raw YAML bytes against the embedded CUE schema.
// Schema violations surface as ConfigParseError before any parsing, so
// malformed documents never reach the variant tree.
func validateSchema(data []byte) error {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schemaCUE)
	if err := schemaVal.Err(); err != nil {
		return &ConfigParseError{Reason: fmt.Sprintf("internal schema error: %v", err), Err: err}
	}
	schema := schemaVal.LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return &ConfigParseError{Reason: fmt.Sprintf("internal schema error: %v", err), Err: err}
	}

	file, err := cueyaml.Extract("config.yaml", data)
	if err != nil {
		return &ConfigParseError{Reason: fmt.Sprintf("invalid YAML: %v", err), Err: err}
	}
	docVal := ctx.BuildFile(file)
	if err := docVal.Err(); err != nil {
		return &ConfigParseError{Reason: fmt.Sprintf("invalid YAML: %v", err), Err: err}
	}

	unified := schema.Unify(docVal)
	if err := unified.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return &ConfigParseError{Reason: fmt.Sprintf("schema violation: %v", err), Err: err}
	}
	return nil
}
