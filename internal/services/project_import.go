package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/pkg/response"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// ImportItem is one project in a bulk import document.
type ImportItem struct {
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	ShortName    string     `json:"short_name"`
	Version      string     `json:"version"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Owner        *PersonRef `json:"owner"`
	OwnerEmail   string     `json:"owner_email"`
	Participants PersonList `json:"participants"`
	Tags         TagList    `json:"tags"`
}

type ImportSkip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created []uint       `json:"created"`
	Skipped []ImportSkip `json:"skipped"`
}

// ParseImport accepts either {"items": [...]} or a bare array.
func ParseImport(data []byte) ([]ImportItem, error) {
	if !gjson.ValidBytes(data) {
		return nil, errInvalidJSON
	}
	doc := gjson.ParseBytes(data)
	if items := doc.Get("items"); items.IsArray() {
		doc = items
	}
	if !doc.IsArray() {
		return nil, errors.New("expected an array of projects")
	}

	var out []ImportItem
	for _, raw := range doc.Array() {
		if !raw.IsObject() {
			continue
		}
		var item ImportItem
		if err := unmarshalResult(raw, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Import creates each listed project with its own database. Items without a
// code or name, or whose name is taken, are skipped. Unknown owners and
// participants are registered on the fly.
func (s *ProjectService) Import(ctx context.Context, items []ImportItem, actor Actor) (*ImportResult, error) {
	result := &ImportResult{Created: []uint{}, Skipped: []ImportSkip{}}

	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if strings.TrimSpace(item.Code) == "" || name == "" {
			result.Skipped = append(result.Skipped, ImportSkip{Name: name, Reason: "missing code or name"})
			continue
		}

		id, err := s.importOne(ctx, item, actor)
		if err != nil {
			var appErr *response.AppError
			if !errors.As(err, &appErr) || appErr.HTTPStatus >= 500 {
				return result, err
			}
			result.Skipped = append(result.Skipped, ImportSkip{Name: name, Reason: appErr.Error()})
			continue
		}
		result.Created = append(result.Created, id)
	}

	s.logs.Info(LogEntry{
		Module:  "Projects",
		Action:  "Import",
		Message: fmt.Sprintf("imported %d projects, skipped %d", len(result.Created), len(result.Skipped)),
		UserID:  &actor.UserID,
	})
	return result, nil
}

func (s *ProjectService) importOne(ctx context.Context, item ImportItem, actor Actor) (uint, error) {
	req := ProjectRequest{
		Code:      item.Code,
		Name:      item.Name,
		ShortName: item.ShortName,
		Version:   item.Version,
		Type:      item.Type,
		Status:    item.Status,
	}
	req.normalize()
	if err := s.ensureNameFree(req.Name, 0); err != nil {
		return 0, err
	}

	ownerRef := item.Owner
	if ownerRef == nil || ownerRef.Email == "" {
		if email := strings.ToLower(strings.TrimSpace(item.OwnerEmail)); email != "" {
			ownerRef = &PersonRef{Email: email}
		}
	}

	if err := s.provisioner.Provision(ctx, req.Name); err != nil {
		return 0, mapProvisionError(err)
	}

	var project models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ownerID := actor.UserID
		if ownerRef != nil && ownerRef.Email != "" {
			owner, err := findOrCreateUser(tx, *ownerRef)
			if err != nil {
				return err
			}
			ownerID = owner.ID
		}

		participantIDs, err := s.resolveParticipants(tx, item.Participants, true)
		if err != nil {
			return err
		}

		project = models.Project{
			Code:      req.Code,
			Name:      req.Name,
			ShortName: req.ShortName,
			Version:   req.Version,
			Type:      req.Type,
			Status:    req.Status,
			OwnerID:   ownerID,
		}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		if err := replaceParticipants(tx, project.ID, ownerID, participantIDs); err != nil {
			return err
		}
		return replaceTags(tx, project.ID, item.Tags)
	})
	if err != nil {
		s.provisioner.Deprovision(ctx, req.Name)
		if isDuplicateKey(err) {
			return 0, ErrProjectNameTaken
		}
		return 0, err
	}
	return project.ID, nil
}
