// Package main generates the JSON schema for the report document from the
// report.Report struct. The checked-in pkg/report/schema.json was produced
// by this tool and hand-formatted.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode"

	"github.com/Sumatoshi-tech/testevo/pkg/report"
)

// Schema represents a JSON Schema document.
type Schema struct {
	Schema               string             `json:"$schema,omitempty"`
	Title                string             `json:"title,omitempty"`
	Type                 any                `json:"type,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	Definitions          map[string]*Schema `json:"definitions,omitempty"`
}

const schemaTitle = "testevo report"

// periodPattern matches the yearly and monthly period keys.
const periodPattern = `^[0-9]{4}(-[0-9]{2})?$`

var outputPath string

func main() {
	flag.StringVar(&outputPath, "o", "pkg/report/schema.json", "Output path for the schema")
	flag.Parse()

	schema := generateSchema(&report.Report{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling schema: %v\n", err)
		os.Exit(1)
	}

	data = append(data, '\n')

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outputPath)
}

func generateSchema(v any) *Schema {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	defs := make(map[string]*Schema)
	props, required := structToProperties(t, defs)

	schema := &Schema{
		Schema:               "http://json-schema.org/draft-07/schema#",
		Title:                schemaTitle,
		Type:                 "object",
		AdditionalProperties: boolPtr(false),
		Required:             required,
		Properties:           props,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

func structToProperties(t reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string) {
	props := make(map[string]*Schema)

	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")

		if jsonTag == "-" || jsonTag == "" {
			continue
		}

		parts := strings.Split(jsonTag, ",")
		jsonName := parts[0]
		isOmitempty := len(parts) > 1 && parts[1] == "omitempty"

		props[jsonName] = fieldToSchema(jsonName, field.Type, defs)

		if !isOmitempty {
			required = append(required, jsonName)
		}
	}

	return props, required
}

// fieldToSchema maps one struct field. Pointer fields are nullable in the
// document, and period keys carry the granularity pattern.
func fieldToSchema(jsonName string, t reflect.Type, defs map[string]*Schema) *Schema {
	nullable := t.Kind() == reflect.Ptr
	if nullable {
		t = t.Elem()
	}

	schema := typeToSchema(t, defs)

	if nullable {
		if base, ok := schema.Type.(string); ok {
			schema.Type = []string{base, "null"}
		}
	}

	if jsonName == "period" {
		schema.Pattern = periodPattern
	}

	return schema
}

func typeToSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer", Minimum: float64Ptr(0)}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number", Minimum: float64Ptr(0)}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice:
		// Row structs shared between array fields live in definitions.
		if t.Elem().Kind() == reflect.Struct {
			return &Schema{Type: "array", Items: refToDefinition(t.Elem(), defs)}
		}

		return &Schema{Type: "array", Items: typeToSchema(t.Elem(), defs)}

	case reflect.Struct:
		props, required := structToProperties(t, defs)

		return &Schema{
			Type:                 "object",
			AdditionalProperties: boolPtr(false),
			Required:             required,
			Properties:           props,
		}

	default:
		return &Schema{Type: "object"}
	}
}

func refToDefinition(t reflect.Type, defs map[string]*Schema) *Schema {
	name := snakeCase(t.Name())

	if _, exists := defs[name]; !exists {
		props, required := structToProperties(t, defs)
		defs[name] = &Schema{
			Type:                 "object",
			AdditionalProperties: boolPtr(false),
			Required:             required,
			Properties:           props,
		}
	}

	return &Schema{Ref: "#/definitions/" + name}
}

// snakeCase converts a Go type name like LineRow to line_row.
func snakeCase(name string) string {
	var b strings.Builder

	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}

			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func boolPtr(v bool) *bool {
	return &v
}

func float64Ptr(v float64) *float64 {
	return &v
}
