package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DocumentSchema is a compiled JSON Schema used to check response bodies
// from the interview service before they are mapped into domain types.
type DocumentSchema struct {
	name   string
	schema *gojsonschema.Schema
}

// MustCompileDocumentSchema compiles a JSON Schema document. It panics on an
// invalid schema, so it is only used for package-level schemas.
func MustCompileDocumentSchema(name, schemaJSON string) *DocumentSchema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", name, err))
	}
	return &DocumentSchema{name: name, schema: schema}
}

// Validate checks a raw JSON document.
func (d *DocumentSchema) Validate(document []byte) error {
	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("%s: validation error: %w", d.name, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%s: document invalid: %s", d.name, strings.Join(errs, "; "))
	}

	return nil
}
