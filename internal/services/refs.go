package services

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON")

// PersonRef identifies a user by email. It decodes from either a bare email
// string or an object {"email", "name", "faculty_number"}.
type PersonRef struct {
	Email         string  `json:"email"`
	Name          string  `json:"name,omitempty"`
	FacultyNumber *string `json:"faculty_number,omitempty"`
}

func (p *PersonRef) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errInvalidJSON
	}
	ref, _ := parsePerson(gjson.ParseBytes(data))
	*p = ref
	return nil
}

func parsePerson(r gjson.Result) (PersonRef, bool) {
	var ref PersonRef
	switch {
	case r.Type == gjson.String:
		ref.Email = r.String()
	case r.IsObject():
		ref.Email = r.Get("email").String()
		ref.Name = strings.TrimSpace(r.Get("name").String())
		if fn := r.Get("faculty_number"); fn.Exists() && fn.Type != gjson.Null {
			if v := strings.TrimSpace(fn.String()); v != "" {
				ref.FacultyNumber = &v
			}
		}
	default:
		return ref, false
	}
	ref.Email = strings.ToLower(strings.TrimSpace(ref.Email))
	return ref, ref.Email != ""
}

// PersonList decodes a JSON array of PersonRef values, dropping entries
// without an email.
type PersonList []PersonRef

func (l *PersonList) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errInvalidJSON
	}
	out := PersonList{}
	seen := make(map[string]bool)
	gjson.ParseBytes(data).ForEach(func(_, value gjson.Result) bool {
		if ref, ok := parsePerson(value); ok && !seen[ref.Email] {
			seen[ref.Email] = true
			out = append(out, ref)
		}
		return true
	})
	*l = out
	return nil
}

// TagList decodes tags given as strings or {"name": ...} objects.
type TagList []string

func (l *TagList) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errInvalidJSON
	}
	out := TagList{}
	seen := make(map[string]bool)
	gjson.ParseBytes(data).ForEach(func(_, value gjson.Result) bool {
		var name string
		switch {
		case value.Type == gjson.String:
			name = value.String()
		case value.IsObject():
			name = value.Get("name").String()
		}
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		return true
	})
	*l = out
	return nil
}

func unmarshalResult(r gjson.Result, v interface{}) error {
	return json.Unmarshal([]byte(r.Raw), v)
}
