// Package schema holds the JSON Schema for notify.yml and validates
// configuration documents against it.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed notify.embedded.schema.json
var embeddedSchemaData []byte

const resourceName = "notify.json"

// Violation is one failed schema constraint.
type Violation struct {
	// Location is a JSON pointer into the document, e.g. "/source/binary".
	Location string
	Message  string
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations)+1)
	lines = append(lines, "schema validation failed:")
	for _, v := range e.Violations {
		lines = append(lines, fmt.Sprintf("- %s: %s", v.Location, v.Message))
	}
	return strings.Join(lines, "\n")
}

// Validator checks documents against the embedded schema.
type Validator struct {
	schema *jsonschema.Schema
}

var (
	shared     *Validator
	sharedErr  error
	sharedOnce sync.Once
)

// Shared returns a process-wide validator, compiling the schema once.
func Shared() (*Validator, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = NewValidator()
	})
	return shared, sharedErr
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader(embeddedSchemaData)); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks any value that marshals to JSON: a struct with json tags
// or a decoded document.
func (v *Validator) Validate(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document for validation: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(jsonData, &generic); err != nil {
		return fmt.Errorf("failed to decode document for validation: %w", err)
	}
	return v.validateGeneric(generic)
}

// ValidateYAML checks a raw notify.yml. An empty document is valid.
func (v *Validator) ValidateYAML(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return v.Validate(doc)
}

func (v *Validator) validateGeneric(doc interface{}) error {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	out := &ValidationError{}
	collect(verr, out)
	if len(out.Violations) == 0 {
		out.Violations = append(out.Violations, Violation{Location: "/", Message: verr.Message})
	}
	return out
}

// collect flattens the cause tree, keeping only leaf locations.
func collect(err *jsonschema.ValidationError, out *ValidationError) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		out.Violations = append(out.Violations, Violation{Location: loc, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collect(cause, out)
	}
}
