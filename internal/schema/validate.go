// Package schema validates structured resume JSON against a JSON Schema.
package schema

import (
	"fmt"
	"os"
	"strings"

	_ "embed"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed resume.schema.json
var defaultResumeSchema string

const maxReportedErrors = 20

// FieldError is a single violation at a field path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the violations of a document.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Lines returns the violations as "field: message" strings.
func (ve *ValidationError) Lines() []string {
	lines := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		lines = append(lines, err.Field+": "+err.Message)
	}
	return lines
}

// SchemaLoadError reports a schema that could not be read or compiled.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// Validator holds a compiled schema and is safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
	source string
}

// NewValidator compiles the schema at path, or the built-in resume schema
// when path is empty.
func NewValidator(path string) (*Validator, error) {
	content := defaultResumeSchema
	source := "(built-in resume schema)"

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &SchemaLoadError{Path: path, Message: "read schema", Cause: err}
		}
		content = string(data)
		source = path
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, &SchemaLoadError{Path: source, Message: "compile schema", Cause: err}
	}

	return &Validator{schema: compiled, source: source}, nil
}

// Source describes where the schema came from.
func (v *Validator) Source() string {
	return v.source
}

// Validate checks jsonContent. It returns a *ValidationError when the document
// violates the schema and a plain error when it is not JSON at all.
func (v *Validator) Validate(jsonContent string) error {
	result, err := v.schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, min(len(result.Errors()), maxReportedErrors)),
	}
	for _, desc := range result.Errors() {
		if len(validationErr.Errors) == maxReportedErrors {
			break
		}
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}

// ValidateResumeJSON validates against the built-in resume schema.
func ValidateResumeJSON(jsonContent string) error {
	v, err := NewValidator("")
	if err != nil {
		return err
	}
	return v.Validate(jsonContent)
}
