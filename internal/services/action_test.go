package services

import (
	"errors"
	"testing"

	"github.com/huangang/sqldesk/internal/models"
)

func TestActionService_CreateAndList(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.db, NewSystemLogService(f.db))
	p := f.project(t, "Deployments")
	owner := actorOf(f.owner)

	if _, err := svc.Create(p.ID, &ActionRequest{ActionType: "  "}, owner); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}

	first, err := svc.Create(p.ID, &ActionRequest{ActionType: " deploy "}, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Status != models.ActionStatusQueued || first.ActionType != "deploy" || string(first.Payload) != "[]" {
		t.Errorf("defaults not applied: %+v payload=%s", first, first.Payload)
	}

	second, err := svc.Create(p.ID, &ActionRequest{
		ActionType: "refresh",
		Status:     "running",
		Payload:    models.ActionPayload(`{"tables": ["users"], "note": "Zoë"}`),
	}, owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := svc.List(p.ID, owner)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[0].Status != "running" || string(list[0].Payload) != `{"tables": ["users"], "note": "Zoë"}` {
		t.Errorf("stored action = %+v payload=%s", list[0], list[0].Payload)
	}
}

func TestActionService_Access(t *testing.T) {
	f := newFixture(t)
	svc := NewActionService(f.db, NewSystemLogService(f.db))
	p := f.project(t, "Private")

	if _, err := svc.Create(p.ID, &ActionRequest{ActionType: "deploy"}, actorOf(f.outsider)); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider Create() error = %v, expected ErrForbidden", err)
	}
	if _, err := svc.List(p.ID, actorOf(f.outsider)); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider List() error = %v, expected ErrForbidden", err)
	}
	if _, err := svc.List(999, actorOf(f.admin)); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("List() on a missing project error = %v", err)
	}
	if _, err := svc.Create(p.ID, &ActionRequest{ActionType: "deploy"}, actorOf(f.admin)); err != nil {
		t.Errorf("admin Create() error = %v", err)
	}
}

func TestActionPayload_Normalizes(t *testing.T) {
	for in, want := range map[string]string{
		"":            "[]",
		" null ":      "[]",
		` {"a": 1} `:  `{"a": 1}`,
		`[1, "two"]`:  `[1, "two"]`,
		`"just text"`: `"just text"`,
	} {
		got, err := models.NewActionPayload([]byte(in))
		if err != nil || string(got) != want {
			t.Errorf("NewActionPayload(%q) = %s, %v; expected %s", in, got, err, want)
		}
	}
	if _, err := models.NewActionPayload([]byte(`{"a":`)); !errors.Is(err, models.ErrInvalidPayload) {
		t.Errorf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestProjectService_ListTags(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Tagged")
	if err := replaceTags(f.db, p.ID, TagList{"zeta", "alpha"}); err != nil {
		t.Fatal(err)
	}

	tags, err := f.projects.ListTags()
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "alpha" || tags[1].Name != "zeta" {
		t.Errorf("expected tags ordered by name, got %+v", tags)
	}
}
