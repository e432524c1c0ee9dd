// Package validate performs structural and semantic validation of inbound
// request parameters against per-action schemas.
package validate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// FieldType enumerates the primitive shapes a parameter field may take.
type FieldType int

const (
	// TypeString accepts JSON strings.
	TypeString FieldType = iota
	// TypeNumber accepts any JSON number.
	TypeNumber
	// TypeInteger accepts JSON numbers with no fractional part.
	TypeInteger
	// TypeBoolean accepts JSON booleans.
	TypeBoolean
	// TypeObject accepts JSON objects.
	TypeObject
	// TypeArray accepts JSON arrays.
	TypeArray
	// TypeURL accepts strings parseable as URLs, optionally restricted to an
	// allow-listed set of schemes.
	TypeURL
)

// String returns a human-readable type name.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// Field declares the constraints on a single parameter field.
type Field struct {
	// Type is the expected shape.
	Type FieldType

	// Required fields must be present and non-null.
	Required bool

	// Enum restricts string values to this set when non-empty.
	Enum []string

	// MaxLength bounds string length in bytes. Zero means unbounded.
	MaxLength int

	// Schemes allow-lists URL schemes for TypeURL fields. Empty defaults to
	// http and https.
	Schemes []string
}

// ActionSchema declares the parameter contract for one action.
type ActionSchema struct {
	// Fields maps parameter names to their constraints.
	Fields map[string]Field

	// AllowExtra permits fields not declared in Fields.
	AllowExtra bool

	// Document is an optional full JSON Schema applied to the whole params
	// object. Compiled once at registration.
	Document json.RawMessage
}

// DefaultURLSchemes is the scheme allow-list applied when a TypeURL field
// declares none.
var DefaultURLSchemes = []string{"http", "https"}

// compiledSchema pairs the declarative rules with a compiled JSON Schema.
type compiledSchema struct {
	schema   ActionSchema
	document *gojsonschema.Schema
}

// Validator holds per-action schemas and checks params against them.
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]*compiledSchema
}

// New creates an empty validator.
func New() *Validator {
	return &Validator{schemas: make(map[string]*compiledSchema)}
}

// Register declares the schema for an action, compiling any JSON Schema
// document. Re-registering an action replaces its schema.
func (v *Validator) Register(action string, schema ActionSchema) error {
	if action == "" {
		return &ValidationError{Message: "action name cannot be empty"}
	}

	compiled := &compiledSchema{schema: schema}
	if len(schema.Document) > 0 {
		loader := gojsonschema.NewBytesLoader(schema.Document)
		doc, err := gojsonschema.NewSchema(loader)
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", action, err)
		}
		compiled.document = doc
	}

	v.mu.Lock()
	v.schemas[action] = compiled
	v.mu.Unlock()
	return nil
}

// HasSchema reports whether the action declares a schema.
func (v *Validator) HasSchema(action string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.schemas[action]
	return ok
}

// Validate checks params for the action. Actions without a registered schema
// pass. A non-empty action name is the caller's responsibility; an empty one
// always fails.
func (v *Validator) Validate(action string, params []byte) error {
	if action == "" {
		return &ValidationError{Path: "action", Message: "must be a non-empty string"}
	}

	v.mu.RLock()
	compiled, ok := v.schemas[action]
	v.mu.RUnlock()
	if !ok {
		return nil
	}

	var values map[string]any
	if len(params) > 0 {
		if err := json.Unmarshal(params, &values); err != nil {
			return &ValidationError{Path: "params", Message: "must be an object"}
		}
	}

	errs := &ValidationErrors{}
	v.checkFields(compiled.schema, values, errs)

	if compiled.document != nil && !errs.HasErrors() {
		doc := params
		if len(doc) == 0 {
			doc = []byte("{}")
		}
		result, err := compiled.document.Validate(gojsonschema.NewBytesLoader(doc))
		if err != nil {
			errs.Add("params", "must be valid JSON")
		} else if !result.Valid() {
			for _, re := range result.Errors() {
				errs.Add(re.Field(), re.Description())
			}
		}
	}

	return errs.OrNil()
}

func (v *Validator) checkFields(schema ActionSchema, values map[string]any, errs *ValidationErrors) {
	for name, field := range schema.Fields {
		value, present := values[name]
		if !present || value == nil {
			if field.Required {
				errs.Add(name, "required field is missing")
			}
			continue
		}
		v.checkField(name, field, value, errs)
	}

	if !schema.AllowExtra {
		for name := range values {
			if _, declared := schema.Fields[name]; !declared {
				errs.Add(name, "unexpected field")
			}
		}
	}
}

func (v *Validator) checkField(name string, field Field, value any, errs *ValidationErrors) {
	switch field.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			errs.Add(name, "must be a string")
			return
		}
		v.checkStringConstraints(name, field, s, errs)

	case TypeNumber:
		if _, ok := value.(float64); !ok {
			errs.Add(name, "must be a number")
		}

	case TypeInteger:
		f, ok := value.(float64)
		if !ok || f != float64(int64(f)) {
			errs.Add(name, "must be an integer")
		}

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			errs.Add(name, "must be a boolean")
		}

	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			errs.Add(name, "must be an object")
		}

	case TypeArray:
		if _, ok := value.([]any); !ok {
			errs.Add(name, "must be an array")
		}

	case TypeURL:
		s, ok := value.(string)
		if !ok {
			errs.Add(name, "must be a URL string")
			return
		}
		v.checkURL(name, field, s, errs)
	}
}

func (v *Validator) checkStringConstraints(name string, field Field, s string, errs *ValidationErrors) {
	if field.MaxLength > 0 && len(s) > field.MaxLength {
		errs.Add(name, fmt.Sprintf("exceeds maximum length of %d", field.MaxLength))
	}
	if len(field.Enum) > 0 {
		for _, allowed := range field.Enum {
			if s == allowed {
				return
			}
		}
		errs.Add(name, "is not an allowed value")
	}
}

func (v *Validator) checkURL(name string, field Field, s string, errs *ValidationErrors) {
	if field.MaxLength > 0 && len(s) > field.MaxLength {
		errs.Add(name, fmt.Sprintf("exceeds maximum length of %d", field.MaxLength))
		return
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		errs.Add(name, "must be an absolute URL")
		return
	}

	schemes := field.Schemes
	if len(schemes) == 0 {
		schemes = DefaultURLSchemes
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme {
			return
		}
	}
	errs.Add(name, "URL scheme is not allowed")
}
