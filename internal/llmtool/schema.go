package llmtool

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field types understood by Schema.Check.
const (
	TypeString     = "string"
	TypeNumber     = "number"
	TypeStringList = "[]string"
)

// PromptField describes a single output field.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Len         int // exact element count for list fields; 0 means any
	Description string
}

// Schema is the output contract of one structured task. The same value
// renders the [OUTPUT] section of the prompt and checks the response, so
// the two cannot drift apart.
type Schema struct {
	Name   string
	Fields []PromptField
	// Count > 0 means the response is a JSON array of exactly Count objects;
	// otherwise it is a single object.
	Count int
}

// SchemaFor derives a schema from the tags of struct v.
func SchemaFor(name string, v any, count int) (Schema, error) {
	fields, err := FieldsFromStruct(v)
	if err != nil {
		return Schema{}, err
	}
	for _, f := range fields {
		switch f.Type {
		case TypeString, TypeNumber, TypeStringList:
		default:
			return Schema{}, fmt.Errorf("llmtool: %s.%s: unsupported type %q", name, f.Name, f.Type)
		}
	}
	return Schema{Name: name, Fields: fields, Count: count}, nil
}

// MustSchemaFor panics on error; used for package-level task schemas.
func MustSchemaFor(name string, v any, count int) Schema {
	s, err := SchemaFor(name, v, count)
	if err != nil {
		panic(err)
	}
	return s
}

// FieldNames lists field names in declaration order.
func (s Schema) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Describe renders the schema as prompt text.
func (s Schema) Describe() string {
	var b strings.Builder
	if s.Count > 0 {
		fmt.Fprintf(&b, "A JSON array of exactly %d %s objects. Each object has these keys:\n", s.Count, s.Name)
	} else {
		fmt.Fprintf(&b, "A single JSON object (%s) with these keys:\n", s.Name)
	}
	b.WriteString(formatFields(s.Fields))
	return b.String()
}

// Violation names the first place a response breaks the schema.
type Violation struct {
	Path   string
	Reason string
}

func (v *Violation) Error() string {
	if v.Path == "" {
		return v.Reason
	}
	return v.Path + ": " + v.Reason
}

// Check validates a decoded JSON value (as produced by encoding/json into
// `any`) and returns a normalized copy: strings trimmed, numeric strings
// such as "$95" converted to numbers. The first problem found is returned
// as a *Violation and the value is discarded.
func (s Schema) Check(v any) (any, error) {
	if s.Count <= 0 {
		return s.checkObject(v, s.Name)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &Violation{Path: s.Name, Reason: fmt.Sprintf("expected an array of %d objects, got %s", s.Count, jsonKind(v))}
	}
	if len(items) != s.Count {
		return nil, &Violation{Path: s.Name, Reason: fmt.Sprintf("expected exactly %d items, got %d", s.Count, len(items))}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		norm, err := s.checkObject(item, fmt.Sprintf("%s[%d]", s.Name, i))
		if err != nil {
			return nil, err
		}
		out = append(out, norm)
	}
	return out, nil
}

func (s Schema) checkObject(v any, path string) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Violation{Path: path, Reason: "expected an object, got " + jsonKind(v)}
	}
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		fpath := path + "." + f.Name
		raw, present := obj[f.Name]
		if !present || raw == nil {
			if f.Required {
				return nil, &Violation{Path: fpath, Reason: "missing required field"}
			}
			continue
		}
		norm, err := checkValue(f, raw, fpath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = norm
	}
	return out, nil
}

func checkValue(f PromptField, v any, path string) (any, error) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, &Violation{Path: path, Reason: "expected a string, got " + jsonKind(v)}
		}
		return strings.TrimSpace(s), nil
	case TypeNumber:
		n, ok := asNumber(v)
		if !ok {
			return nil, &Violation{Path: path, Reason: "expected a number, got " + jsonKind(v)}
		}
		return n, nil
	case TypeStringList:
		items, ok := v.([]any)
		if !ok {
			return nil, &Violation{Path: path, Reason: "expected an array of strings, got " + jsonKind(v)}
		}
		if f.Len > 0 && len(items) != f.Len {
			return nil, &Violation{Path: path, Reason: fmt.Sprintf("expected exactly %d items, got %d", f.Len, len(items))}
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, &Violation{Path: fmt.Sprintf("%s[%d]", path, i), Reason: "expected a string, got " + jsonKind(item)}
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, nil
	default:
		return nil, &Violation{Path: path, Reason: "unsupported field type " + f.Type}
	}
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(x))
		if cleaned == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
