package llmtool

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type offer struct {
	Title  string   `json:"title"`
	Fee    float64  `json:"fee"`
	Points []string `json:"points" prompt_len:"2"`
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return v
}

func TestSchemaFor_ReadsTags(t *testing.T) {
	s := MustSchemaFor("Offer", offer{}, 2)
	if got := strings.Join(s.FieldNames(), ","); got != "title,fee,points" {
		t.Fatalf("field names = %s", got)
	}
	if s.Fields[1].Type != TypeNumber || s.Fields[2].Len != 2 {
		t.Fatalf("fields = %+v", s.Fields)
	}
	if _, err := SchemaFor("Bad", struct {
		M map[string]string `json:"m"`
	}{}, 0); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestSchemaCheck_AcceptsAndNormalizes(t *testing.T) {
	s := MustSchemaFor("Offer", offer{}, 2)
	got, err := s.Check(decode(t, `[
		{"title":" A ","fee":"$1,000","points":["x "," y"]},
		{"title":"B","fee":0,"points":["p","q"],"extra":true}
	]`))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	items := got.([]any)
	first := items[0].(map[string]any)
	if first["title"] != "A" || first["fee"] != float64(1000) {
		t.Fatalf("first = %+v", first)
	}
	if _, ok := items[1].(map[string]any)["extra"]; ok {
		t.Fatalf("unknown keys should be dropped")
	}
}

func TestSchemaCheck_Violations(t *testing.T) {
	s := MustSchemaFor("Offer", offer{}, 2)
	cases := []struct {
		name     string
		raw      string
		wantPath string
	}{
		{"not an array", `{"title":"A"}`, "Offer"},
		{"too few items", `[{"title":"A","fee":1,"points":["a","b"]}]`, "Offer"},
		{"missing key", `[{"title":"A","fee":1,"points":["a","b"]},{"fee":1,"points":["a","b"]}]`, "Offer[1].title"},
		{"null key", `[{"title":null,"fee":1,"points":["a","b"]},{"title":"B","fee":1,"points":["a","b"]}]`, "Offer[0].title"},
		{"wrong list length", `[{"title":"A","fee":1,"points":["a"]},{"title":"B","fee":1,"points":["a","b"]}]`, "Offer[0].points"},
		{"non-string item", `[{"title":"A","fee":1,"points":["a",2]},{"title":"B","fee":1,"points":["a","b"]}]`, "Offer[0].points[1]"},
		{"bad number", `[{"title":"A","fee":"free","points":["a","b"]},{"title":"B","fee":1,"points":["a","b"]}]`, "Offer[0].fee"},
		{"item not object", `["A",{"title":"B","fee":1,"points":["a","b"]}]`, "Offer[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Check(decode(t, tc.raw))
			var v *Violation
			if !errors.As(err, &v) {
				t.Fatalf("Check() error = %v, want *Violation", err)
			}
			if v.Path != tc.wantPath {
				t.Fatalf("violation path = %q, want %q (%v)", v.Path, tc.wantPath, v)
			}
		})
	}
}

func TestSchemaDescribe_NamesEveryCheckedField(t *testing.T) {
	s := MustSchemaFor("Offer", offer{}, 2)
	text := s.Describe()
	if !strings.Contains(text, "exactly 2 Offer objects") {
		t.Fatalf("describe = %s", text)
	}
	for _, f := range s.Fields {
		if !strings.Contains(text, "- "+f.Name+" (") {
			t.Fatalf("describe is missing field %s:\n%s", f.Name, text)
		}
	}
	single := MustSchemaFor("Offer", offer{}, 0).Describe()
	if !strings.HasPrefix(single, "A single JSON object (Offer)") {
		t.Fatalf("describe single = %s", single)
	}
}
