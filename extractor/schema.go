// Package extractor applies a declarative field → CSS selector schema to a
// parsed HTML document.
package extractor

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	ierrors "github.com/cnosuke/mcp-crawl/internal/errors"
)

// Mode selects what a rule extracts from the matched elements.
type Mode string

const (
	ModeText          Mode = "text"
	ModeAttribute     Mode = "attribute"
	ModeListText      Mode = "list-text"
	ModeListAttribute Mode = "list-attribute"
)

var modeAliases = map[string]Mode{
	"":               ModeText,
	"text":           ModeText,
	"attribute":      ModeAttribute,
	"attr":           ModeAttribute,
	"list-text":      ModeListText,
	"list":           ModeListText,
	"list-attribute": ModeListAttribute,
	"list-attr":      ModeListAttribute,
}

// "attribute(href)" and "list-attribute(src)" carry the name inline.
var inlineAttrMode = regexp.MustCompile(`^([a-z-]+)\(\s*([^()\s]+)\s*\)$`)

// IsList reports whether the mode yields a sequence.
func (m Mode) IsList() bool {
	return m == ModeListText || m == ModeListAttribute
}

func (m Mode) usesAttribute() bool {
	return m == ModeAttribute || m == ModeListAttribute
}

// Rule describes how one field is extracted.
type Rule struct {
	Selector  string `json:"selector"`
	Mode      Mode   `json:"mode"`
	Attribute string `json:"attribute,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

// Field is a named, compiled rule.
type Field struct {
	Name string
	Rule Rule

	matcher cascadia.Selector
}

// Schema is an ordered set of uniquely named fields whose selectors have
// already been compiled.
type Schema struct {
	Fields []Field
}

// Names returns the field names in schema order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

type ruleSpec struct {
	Selector  string `json:"selector"`
	Mode      string `json:"mode"`
	Attribute string `json:"attribute"`
	Attr      string `json:"attr"`
	Required  bool   `json:"required"`
}

// ParseSchema decodes a JSON object mapping field names to rules. A rule is
// either a full object, a bare selector string (text mode) or a one-element
// array holding a selector (list-text mode). Structural problems fail with
// InvalidInput and bad selectors with InvalidSelector, both before any
// document is touched.
func ParseSchema(raw []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema is not valid JSON")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ierrors.InvalidInput("schema must be a JSON object of field rules")
	}

	var (
		rules []Field
		seen  = make(map[string]struct{})
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema is not valid JSON")
		}
		name := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema field %q is not valid JSON", name)
		}
		if _, dup := seen[name]; dup {
			return nil, ierrors.InvalidInput("duplicate schema field %q", name)
		}
		seen[name] = struct{}{}

		rule, err := decodeRule(name, value)
		if err != nil {
			return nil, err
		}
		rules = append(rules, Field{Name: name, Rule: rule})
	}

	if _, err := dec.Token(); err != nil {
		return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema is not valid JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ierrors.InvalidInput("unexpected data after schema object")
	}

	return NewSchema(rules)
}

// ParseSchemaValue accepts a schema that arrived either as a JSON string or
// as an already-decoded object.
func ParseSchemaValue(v any) (*Schema, error) {
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return nil, ierrors.InvalidInput("schema_json is required")
		}
		return ParseSchema([]byte(s))
	case []byte:
		return ParseSchema(s)
	case map[string]any:
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema cannot be encoded")
		}
		return ParseSchema(raw)
	case nil:
		return nil, ierrors.InvalidInput("schema_json is required")
	default:
		return nil, ierrors.InvalidInput("schema_json must be a JSON object or a string containing one, got %T", v)
	}
}

func decodeRule(name string, value json.RawMessage) (Rule, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return Rule{}, ierrors.InvalidInput("schema field %q has no rule", name)
	}

	switch trimmed[0] {
	case '"':
		var sel string
		if err := json.Unmarshal(trimmed, &sel); err != nil {
			return Rule{}, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema field %q", name)
		}
		return Rule{Selector: sel, Mode: ModeText}, nil

	case '[':
		var sels []string
		if err := json.Unmarshal(trimmed, &sels); err != nil || len(sels) != 1 {
			return Rule{}, ierrors.InvalidInput("schema field %q: list shorthand must be a single selector string in an array", name)
		}
		return Rule{Selector: sels[0], Mode: ModeListText}, nil

	case '{':
		var spec ruleSpec
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return Rule{}, ierrors.WithCause(ierrors.KindInvalidInput, err, "schema field %q has an invalid rule", name)
		}
		return specToRule(name, spec)
	}

	return Rule{}, ierrors.InvalidInput("schema field %q must be a selector string, a [selector] list or a rule object", name)
}

func specToRule(name string, spec ruleSpec) (Rule, error) {
	attr := spec.Attribute
	if attr == "" {
		attr = spec.Attr
	}

	modeName := strings.ToLower(strings.TrimSpace(spec.Mode))
	if m := inlineAttrMode.FindStringSubmatch(modeName); m != nil {
		modeName = m[1]
		if attr == "" {
			attr = m[2]
		}
	}

	mode, ok := modeAliases[modeName]
	if !ok {
		return Rule{}, ierrors.InvalidInput("schema field %q has unknown mode %q", name, spec.Mode)
	}
	if mode.usesAttribute() && strings.TrimSpace(attr) == "" {
		return Rule{}, ierrors.InvalidInput("schema field %q: mode %s needs an attribute name", name, mode)
	}
	if !mode.usesAttribute() {
		attr = ""
	}

	return Rule{
		Selector:  spec.Selector,
		Mode:      mode,
		Attribute: strings.TrimSpace(attr),
		Required:  spec.Required,
	}, nil
}

// NewSchema validates fields and compiles every selector. Compilation
// happens here so a bad selector is reported before any DOM traversal.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, ierrors.InvalidInput("schema has no fields")
	}

	out := make([]Field, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, ierrors.InvalidInput("schema field names must not be empty")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, ierrors.InvalidInput("duplicate schema field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		mode, ok := modeAliases[string(f.Rule.Mode)]
		if !ok {
			return nil, ierrors.InvalidInput("schema field %q has unknown mode %q", f.Name, f.Rule.Mode)
		}
		f.Rule.Mode = mode
		if mode.usesAttribute() && f.Rule.Attribute == "" {
			return nil, ierrors.InvalidInput("schema field %q: mode %s needs an attribute name", f.Name, mode)
		}
		if strings.TrimSpace(f.Rule.Selector) == "" {
			return nil, ierrors.InvalidInput("schema field %q has an empty selector", f.Name)
		}

		matcher, err := cascadia.Compile(f.Rule.Selector)
		if err != nil {
			return nil, ierrors.InvalidSelector(f.Name, err)
		}
		f.matcher = matcher
		out = append(out, f)
	}
	return &Schema{Fields: out}, nil
}
