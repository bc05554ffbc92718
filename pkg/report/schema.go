package report

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

// Schema returns the embedded report JSON Schema document.
func Schema() string {
	return schemaJSON
}

// Validate checks a serialized JSON report against the embedded schema and
// returns one message per violation, empty when the document conforms.
// The error covers undecodable input, not schema violations.
func Validate(document []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		issues = append(issues, resultErr.String())
	}

	return issues, nil
}
