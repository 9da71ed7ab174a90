package advisor

import (
	"encoding/json"
	"errors"
	"strings"

	"zentra/internal/apperr"
	"zentra/internal/gateway/entity"
	"zentra/internal/llmtool"
	"zentra/internal/util/jsonutil"
)

func parseRecommendations(text string) ([]entity.CardRecommendation, error) {
	return decodeChecked[[]entity.CardRecommendation](recommendSchema, text)
}

func parsePlan(text string) (entity.GuidancePlan, error) {
	return decodeChecked[entity.GuidancePlan](planSchema, text)
}

func parseChat(text string) (string, error) {
	reply := strings.TrimSpace(text)
	if reply == "" {
		return "", apperr.New(apperr.CodeUpstreamEmpty, "the advisor returned an empty reply")
	}
	return reply, nil
}

// decodeChecked parses model text, validates it against schema and decodes
// the normalized value into T. Nothing is partially accepted.
func decodeChecked[T any](schema llmtool.Schema, text string) (T, error) {
	var zero T
	raw, err := jsonutil.ExtractJSON(text)
	if err != nil {
		return zero, apperr.Wrap(err, apperr.CodeMalformedResponse, "model response is not valid JSON")
	}
	var parsed any
	if err := jsonutil.UnmarshalFlex(raw, &parsed); err != nil {
		return zero, apperr.Wrap(err, apperr.CodeMalformedResponse, "model response is not valid JSON")
	}
	norm, err := schema.Check(parsed)
	if err != nil {
		var v *llmtool.Violation
		if errors.As(err, &v) {
			return zero, apperr.Wrap(err, apperr.CodeSchemaViolation, "model response field "+v.Path+": "+v.Reason).
				WithContext("field", v.Path)
		}
		return zero, apperr.Wrap(err, apperr.CodeSchemaViolation, "model response does not match the expected shape")
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return zero, apperr.Wrap(err, apperr.CodeInternal, "re-encode model response")
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, apperr.Wrap(err, apperr.CodeSchemaViolation, "model response does not match the expected shape")
	}
	return out, nil
}
