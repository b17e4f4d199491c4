package models

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

const ActionStatusQueued = "queued"

// Action is a project-scoped work item queued for an operator, such as a
// deployment or a data refresh. Payload is kept verbatim.
type Action struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	ProjectID  uint          `gorm:"index;not null" json:"project_id"`
	ActionType string        `gorm:"size:100;not null" json:"action_type"`
	Status     string        `gorm:"size:50;default:queued" json:"status"`
	Payload    ActionPayload `gorm:"column:payload_json;type:text" json:"payload"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (Action) TableName() string { return "actions" }

var ErrInvalidPayload = errors.New("action payload is not valid JSON")

// ActionPayload is a raw JSON document. Empty and null payloads read as [].
type ActionPayload []byte

var emptyPayload = []byte("[]")

func NewActionPayload(data []byte) (ActionPayload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ActionPayload(emptyPayload), nil
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, ErrInvalidPayload
	}
	return ActionPayload(append([]byte(nil), trimmed...)), nil
}

func (p ActionPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return emptyPayload, nil
	}
	return p, nil
}

func (p *ActionPayload) UnmarshalJSON(data []byte) error {
	parsed, err := NewActionPayload(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p ActionPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return string(emptyPayload), nil
	}
	return string(p), nil
}

func (p *ActionPayload) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = ActionPayload(emptyPayload)
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported payload_json type %T", value)
	}
}
