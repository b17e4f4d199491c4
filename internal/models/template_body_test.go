package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseTemplateBody_MixedShapes(t *testing.T) {
	raw := `["CREATE TABLE a (id INT)", ["INSERT INTO a VALUES (1)", 42, "INSERT INTO a VALUES (2)"], 7, {"x": 1}, [["too deep"]], "  "]`

	body, err := ParseTemplateBody([]byte(raw))
	if err != nil {
		t.Fatalf("ParseTemplateBody() error = %v", err)
	}

	if len(body.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d: %+v", len(body.Entries), body.Entries)
	}
	if body.Entries[0].Kind != EntryStatement || body.Entries[0].SQL != "CREATE TABLE a (id INT)" {
		t.Errorf("entry 0 = %+v", body.Entries[0])
	}
	if body.Entries[1].Kind != EntryGroup || len(body.Entries[1].Group) != 2 {
		t.Errorf("entry 1 = %+v", body.Entries[1])
	}
	if body.Entries[2].Kind != EntryGroup || len(body.Entries[2].Group) != 0 {
		t.Errorf("entry 2 should be an empty group, got %+v", body.Entries[2])
	}

	expected := []string{
		"CREATE TABLE a (id INT)",
		"INSERT INTO a VALUES (1)",
		"INSERT INTO a VALUES (2)",
	}
	if got := body.Statements(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Statements() = %q, expected %q", got, expected)
	}
}

func TestParseTemplateBody_EmptyAndNonArray(t *testing.T) {
	inputs := []string{"", "   ", "null", `{"sql": "SELECT 1"}`, `"SELECT 1"`, "[]"}
	for _, in := range inputs {
		body, err := ParseTemplateBody([]byte(in))
		if err != nil {
			t.Errorf("ParseTemplateBody(%q) error = %v", in, err)
			continue
		}
		if len(body.Statements()) != 0 {
			t.Errorf("ParseTemplateBody(%q) should yield no statements, got %q", in, body.Statements())
		}
	}
}

func TestParseTemplateBody_Invalid(t *testing.T) {
	_, err := ParseTemplateBody([]byte(`["unterminated`))
	if !errors.Is(err, ErrInvalidBody) {
		t.Errorf("expected ErrInvalidBody, got %v", err)
	}
}

func TestTemplateBody_JSONRoundTrip(t *testing.T) {
	var req struct {
		Body TemplateBody `json:"body"`
	}
	if err := json.Unmarshal([]byte(`{"body": ["SELECT 'café'", ["SELECT 1 < 2", ""]]}`), &req); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	data, err := req.Body.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON error = %v", err)
	}
	if string(data) != `["SELECT 'café'",["SELECT 1 < 2",""]]` {
		t.Errorf("MarshalJSON = %s", data)
	}
}

func TestTemplateBody_Pretty(t *testing.T) {
	body := TemplateBody{Entries: []BodyEntry{
		{Kind: EntryStatement, SQL: "INSERT INTO t VALUES ('Ünïcode & <tags>')"},
		{Kind: EntryGroup},
	}}

	data, err := body.Pretty()
	if err != nil {
		t.Fatalf("Pretty() error = %v", err)
	}

	text := string(data)
	if !strings.Contains(text, "Ünïcode & <tags>") {
		t.Errorf("Pretty() should keep unicode and HTML characters verbatim, got %s", text)
	}
	if !strings.Contains(text, "\n  ") {
		t.Errorf("Pretty() should be indented, got %s", text)
	}
	if !strings.Contains(text, "[]") {
		t.Errorf("empty group should render as [], got %s", text)
	}

	reparsed, err := ParseTemplateBody(data)
	if err != nil {
		t.Fatalf("re-parse error = %v", err)
	}
	if !reflect.DeepEqual(reparsed.Statements(), body.Statements()) {
		t.Errorf("round trip changed statements: %q vs %q", reparsed.Statements(), body.Statements())
	}
}

func TestTemplateBody_ValueScan(t *testing.T) {
	body := TemplateBody{Entries: []BodyEntry{{Kind: EntryStatement, SQL: "SELECT 1"}}}

	v, err := body.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != `["SELECT 1"]` {
		t.Errorf("Value() = %v", v)
	}

	var scanned TemplateBody
	if err := scanned.Scan([]byte(`["SELECT 1", ["SELECT 2"]]`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(scanned.Statements()) != 2 {
		t.Errorf("expected 2 statements, got %q", scanned.Statements())
	}

	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if len(scanned.Entries) != 0 {
		t.Error("Scan(nil) should reset the body")
	}

	if err := scanned.Scan(12); err == nil {
		t.Error("Scan(int) should fail")
	}

	var empty TemplateBody
	if v, _ := empty.Value(); v != "[]" {
		t.Errorf("empty Value() = %v, expected []", v)
	}
}
