package llmtool

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Struct tags read by FieldsFromStruct. Fields are required unless tagged
// `prompt:"optional"`; `prompt:"-"` drops a field.
const (
	nameTag   = "json"
	descTag   = "prompt_desc"
	typeTag   = "prompt_type"
	lenTag    = "prompt_len"
	promptTag = "prompt"
)

// FieldsFromStruct derives the model-facing fields of a struct from its tags.
func FieldsFromStruct(v any) ([]PromptField, error) {
	if v == nil {
		return nil, fmt.Errorf("llmtool: struct is nil")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("llmtool: expected struct, got %s", t.Kind())
	}
	var fields []PromptField
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() || shouldSkipField(f) {
			continue
		}
		name := fieldName(f)
		if name == "" {
			continue
		}
		required := true
		if r, ok := requiredOverride(f); ok {
			required = r
		}
		length, err := fieldLen(f)
		if err != nil {
			return nil, err
		}
		fields = append(fields, PromptField{
			Name:        name,
			Type:        fieldType(f),
			Required:    required,
			Len:         length,
			Description: strings.TrimSpace(f.Tag.Get(descTag)),
		})
	}
	return fields, nil
}

func shouldSkipField(f reflect.StructField) bool {
	tag := strings.TrimSpace(f.Tag.Get(promptTag))
	if tag == "" {
		return false
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "-" || part == "omit" {
			return true
		}
	}
	return false
}

func requiredOverride(f reflect.StructField) (bool, bool) {
	tag := strings.TrimSpace(f.Tag.Get(promptTag))
	if tag == "" {
		return false, false
	}
	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case "required":
			return true, true
		case "optional":
			return false, true
		}
	}
	return false, false
}

func fieldLen(f reflect.StructField) (int, error) {
	raw := strings.TrimSpace(f.Tag.Get(lenTag))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("llmtool: field %s: invalid %s tag %q", f.Name, lenTag, raw)
	}
	if k := f.Type.Kind(); k != reflect.Slice && k != reflect.Array {
		return 0, fmt.Errorf("llmtool: field %s: %s on non-list type %s", f.Name, lenTag, f.Type)
	}
	return n, nil
}

func fieldName(f reflect.StructField) string {
	tag := strings.TrimSpace(f.Tag.Get(nameTag))
	if tag != "" {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return toSnake(f.Name)
}

func fieldType(f reflect.StructField) string {
	tag := strings.TrimSpace(f.Tag.Get(typeTag))
	if tag != "" {
		return tag
	}
	return typeString(f.Type)
}

func typeString(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Slice, reflect.Array:
		return "[]" + typeString(t.Elem())
	case reflect.Map:
		return fmt.Sprintf("map[%s]%s", typeString(t.Key()), typeString(t.Elem()))
	case reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return "object"
	case reflect.Interface:
		return "any"
	default:
		return t.Kind().String()
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			next := rune(0)
			if i+1 < len(s) {
				next = rune(s[i+1])
			}
			if prev >= 'a' && prev <= 'z' || (next >= 'a' && next <= 'z') {
				b.WriteByte('_')
			}
		}
		b.WriteRune(toLower(r))
	}
	return b.String()
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
