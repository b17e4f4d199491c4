package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// EntryKind tags a BodyEntry.
type EntryKind int

const (
	EntryStatement EntryKind = iota // a single SQL string
	EntryGroup                      // a nested list of SQL strings
)

// BodyEntry is one element of a template body.
type BodyEntry struct {
	Kind  EntryKind
	SQL   string
	Group []string
}

// TemplateBody is the parsed form of a template's JSON body: an ordered list
// whose elements are either a statement string or a list of statement strings.
// Elements of any other shape are dropped while parsing, as are non-string
// members of a group and anything nested deeper than one level.
type TemplateBody struct {
	Entries []BodyEntry
}

var ErrInvalidBody = errors.New("template body is not valid JSON")

// ParseTemplateBody parses raw JSON into a TemplateBody. Empty input and
// non-array documents yield an empty body.
func ParseTemplateBody(data []byte) (TemplateBody, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return TemplateBody{}, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return TemplateBody{}, ErrInvalidBody
	}

	doc := gjson.ParseBytes(trimmed)
	if !doc.IsArray() {
		return TemplateBody{}, nil
	}

	var body TemplateBody
	doc.ForEach(func(_, value gjson.Result) bool {
		switch {
		case value.Type == gjson.String:
			body.Entries = append(body.Entries, BodyEntry{Kind: EntryStatement, SQL: value.Str})
		case value.IsArray():
			group := []string{}
			value.ForEach(func(_, inner gjson.Result) bool {
				if inner.Type == gjson.String {
					group = append(group, inner.Str)
				}
				return true
			})
			body.Entries = append(body.Entries, BodyEntry{Kind: EntryGroup, Group: group})
		}
		return true
	})
	return body, nil
}

// Statements flattens the body in order, skipping blank statements.
func (b TemplateBody) Statements() []string {
	var out []string
	add := func(sql string) {
		if strings.TrimSpace(sql) != "" {
			out = append(out, sql)
		}
	}
	for _, e := range b.Entries {
		switch e.Kind {
		case EntryStatement:
			add(e.SQL)
		case EntryGroup:
			for _, sql := range e.Group {
				add(sql)
			}
		}
	}
	return out
}

func (b TemplateBody) document() []interface{} {
	doc := make([]interface{}, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.Kind == EntryGroup {
			group := e.Group
			if group == nil {
				group = []string{}
			}
			doc = append(doc, group)
			continue
		}
		doc = append(doc, e.SQL)
	}
	return doc
}

func (b TemplateBody) encode(indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(b.document()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Pretty renders the body as indented JSON without HTML escaping, so
// non-ASCII text and characters like < and & are written verbatim.
func (b TemplateBody) Pretty() ([]byte, error) {
	return b.encode("  ")
}

func (b TemplateBody) MarshalJSON() ([]byte, error) {
	return b.encode("")
}

func (b *TemplateBody) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTemplateBody(data)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Value stores the body as compact JSON text in body_json.
func (b TemplateBody) Value() (driver.Value, error) {
	data, err := b.encode("")
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *TemplateBody) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*b = TemplateBody{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported body_json type %T", value)
	}
	parsed, err := ParseTemplateBody(data)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
