package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswersKind tags which shape a survey submission used.
type AnswersKind int

const (
	AnswersNone AnswersKind = iota
	AnswersMap
	AnswersList
)

// Answers holds a survey submission either as a mapping or as a list of
// strings. The content is opaque to the pipeline; it is only serialized.
type Answers struct {
	kind  AnswersKind
	byKey map[string]any
	list  []string
}

func AnswersFromMap(m map[string]any) Answers {
	if m == nil {
		m = map[string]any{}
	}
	return Answers{kind: AnswersMap, byKey: m}
}

func AnswersFromList(items []string) Answers {
	if items == nil {
		items = []string{}
	}
	return Answers{kind: AnswersList, list: items}
}

func (a Answers) Kind() AnswersKind { return a.kind }

func (a Answers) Map() (map[string]any, bool) {
	return a.byKey, a.kind == AnswersMap
}

func (a Answers) List() ([]string, bool) {
	return a.list, a.kind == AnswersList
}

func (a Answers) IsZero() bool {
	switch a.kind {
	case AnswersMap:
		return len(a.byKey) == 0
	case AnswersList:
		return len(a.list) == 0
	default:
		return true
	}
}

// MarshalJSON renders the wrapped value; encoding/json sorts map keys so the
// output is stable for identical input.
func (a Answers) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswersMap:
		return json.Marshal(a.byKey)
	case AnswersList:
		return json.Marshal(a.list)
	default:
		return []byte("null"), nil
	}
}

func (a *Answers) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Answers{}
		return nil
	}
	switch trimmed[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("answers: %w", err)
		}
		*a = AnswersFromMap(m)
		return nil
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("answers: %w", err)
		}
		list := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("answers: item %d is not a string", i)
			}
			list = append(list, s)
		}
		*a = AnswersFromList(list)
		return nil
	default:
		return fmt.Errorf("answers: expected an object or an array of strings")
	}
}
