package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangang/sqldesk/internal/models"
	"gorm.io/gorm"
)

func tableRows(t *testing.T, f *fixture, project, query string) int {
	t.Helper()
	conn, err := f.prov.Open(context.Background(), project)
	if err != nil {
		t.Fatalf("Open(%q): %v", project, err)
	}
	defer conn.Close()

	var n int
	if err := conn.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

func TestTemplateRun_ExecutesOnceThenLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Ledger")
	tpl := f.template(t, p.ID, "seed", `[
		"CREATE TABLE entries (id INTEGER PRIMARY KEY, amount INTEGER)",
		["INSERT INTO entries (amount) VALUES (10)", "INSERT INTO entries (amount) VALUES (20)"],
		"  "
	]`)

	run, err := f.runner.Run(ctx, tpl.ID, actorOf(f.owner))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != models.RunStatusSucceeded || run.Statements != 3 || run.Database != "ledger" {
		t.Errorf("run = %+v", run)
	}

	var stored models.Template
	f.db.First(&stored, tpl.ID)
	if !stored.IsLocked || stored.LockedAt == nil || stored.LastRunAt == nil {
		t.Errorf("template should be locked with timestamps, got %+v", stored)
	}

	if _, err := f.runner.Run(ctx, tpl.ID, actorOf(f.admin)); !errors.Is(err, ErrTemplateLocked) {
		t.Fatalf("second run: expected ErrTemplateLocked, got %v", err)
	}
	if n := tableRows(t, f, "Ledger", "SELECT COUNT(*) FROM entries"); n != 2 {
		t.Errorf("expected 2 rows after two run attempts, got %d", n)
	}
}

func TestTemplateRun_FailureRollsBackAndStaysEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Broken")
	tpl := f.template(t, p.ID, "bad", `["CREATE TABLE ok_table (id INTEGER)", "INSERT INTO missing_table VALUES (1)"]`)

	run, err := f.runner.Run(ctx, tpl.ID, actorOf(f.owner))
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if run == nil || run.Status != models.RunStatusFailed || run.Error == "" {
		t.Errorf("run = %+v", run)
	}

	var stored models.Template
	f.db.First(&stored, tpl.ID)
	if stored.IsLocked || stored.LockedAt != nil || stored.LastRunAt != nil {
		t.Errorf("failed run must leave template unlocked, got %+v", stored)
	}
	if n := tableRows(t, f, "Broken", "SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok_table'"); n != 0 {
		t.Error("statements before the failure must be rolled back")
	}

	fixed, _ := models.ParseTemplateBody([]byte(`["CREATE TABLE ok_table (id INTEGER)"]`))
	if _, err := f.templates.Update(tpl.ID, &TemplateRequest{Name: "bad", DBType: "sqlite", Body: fixed}, actorOf(f.owner)); err != nil {
		t.Fatalf("template should stay editable: %v", err)
	}
	if _, err := f.runner.Run(ctx, tpl.ID, actorOf(f.owner)); err != nil {
		t.Fatalf("rerun after fix: %v", err)
	}
}

func TestTemplateRun_IgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Detached")
	tpl := f.template(t, p.ID, "ddl", `["CREATE TABLE audit (id INTEGER)", "INSERT INTO audit VALUES (1)"]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.runner.Run(ctx, tpl.ID, actorOf(f.owner))
	if err != nil {
		t.Fatalf("Run() with a cancelled caller error = %v", err)
	}
	if run.Status != models.RunStatusSucceeded {
		t.Errorf("run status = %q", run.Status)
	}

	var stored models.Template
	f.db.First(&stored, tpl.ID)
	if !stored.IsLocked {
		t.Error("template should be locked after the run completes")
	}
	if n := tableRows(t, f, "Detached", "SELECT COUNT(*) FROM audit"); n != 1 {
		t.Errorf("expected the run to commit, got %d rows", n)
	}
}

func TestTemplateRun_JournalFailureLeavesTemplateUnlocked(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Journal")
	tpl := f.template(t, p.ID, "seed", `["CREATE TABLE never (id INTEGER)"]`)

	journalDown := errors.New("journal unavailable")
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_template_runs", func(tx *gorm.DB) {
		if tx.Statement.Table == "template_runs" {
			tx.AddError(journalDown)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.runner.Run(context.Background(), tpl.ID, actorOf(f.owner)); !errors.Is(err, journalDown) {
		t.Fatalf("expected the journal error, got %v", err)
	}

	var stored models.Template
	f.db.First(&stored, tpl.ID)
	if stored.IsLocked || stored.LockedAt != nil {
		t.Errorf("claim must roll back with its journal row, got %+v", stored)
	}
	if n := countRows(t, f.db, &models.TemplateRun{}, "template_id = ?", tpl.ID); n != 0 {
		t.Errorf("expected no journaled run, got %d", n)
	}
	if n := tableRows(t, f, "Journal", "SELECT COUNT(*) FROM sqlite_master WHERE name = 'never'"); n != 0 {
		t.Error("no statement may execute without a journaled claim")
	}
}

func TestTemplateRun_EmptyBodyLocks(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Empty")
	tpl := f.template(t, p.ID, "noop", `[]`)

	run, err := f.runner.Run(context.Background(), tpl.ID, actorOf(f.owner))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Statements != 0 {
		t.Errorf("Statements = %d", run.Statements)
	}
	if _, err := f.runner.Run(context.Background(), tpl.ID, actorOf(f.owner)); !errors.Is(err, ErrTemplateLocked) {
		t.Errorf("expected ErrTemplateLocked, got %v", err)
	}
}

func TestTemplateRun_ConcurrentCallersExecuteOnce(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Race")
	tpl := f.template(t, p.ID, "once", `["CREATE TABLE hits (id INTEGER)", "INSERT INTO hits VALUES (1)"]`)

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		locked    int
		other     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.runner.Run(context.Background(), tpl.ID, actorOf(f.owner))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrTemplateLocked):
				locked++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || locked != callers-1 {
		t.Fatalf("succeeded = %d, locked = %d, other = %v", succeeded, locked, other)
	}
	if n := tableRows(t, f, "Race", "SELECT COUNT(*) FROM hits"); n != 1 {
		t.Errorf("expected exactly one execution, table has %d rows", n)
	}
	if n := countRows(t, f.db, &models.TemplateRun{}, "template_id = ?", tpl.ID); n != 1 {
		t.Errorf("expected one journaled run, got %d", n)
	}
}

func TestTemplateRun_AccessAndMissing(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Private")
	tpl := f.template(t, p.ID, "t", `["SELECT 1"]`)

	if _, err := f.runner.Run(context.Background(), tpl.ID, actorOf(f.outsider)); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.runner.Run(context.Background(), 777, actorOf(f.admin)); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestTemplateLocked_RejectsMutationForEveryRole(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Frozen")
	tpl := f.template(t, p.ID, "final", `["CREATE TABLE t (id INTEGER)"]`)
	if _, err := f.runner.Run(context.Background(), tpl.ID, actorOf(f.owner)); err != nil {
		t.Fatal(err)
	}

	for _, actor := range []Actor{actorOf(f.owner), actorOf(f.admin)} {
		_, err := f.templates.Update(tpl.ID, &TemplateRequest{Name: "changed", DBType: "sqlite"}, actor)
		if !errors.Is(err, ErrTemplateLocked) {
			t.Errorf("update as %s: expected ErrTemplateLocked, got %v", actor.Role, err)
		}
		if err := f.templates.Delete(tpl.ID, actor); !errors.Is(err, ErrTemplateLocked) {
			t.Errorf("delete as %s: expected ErrTemplateLocked, got %v", actor.Role, err)
		}
	}

	var stored models.Template
	f.db.First(&stored, tpl.ID)
	if stored.Name != "final" {
		t.Errorf("locked template changed: %+v", stored)
	}
}

func TestTemplateService_CRUD(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Catalog")
	owner := actorOf(f.owner)

	if _, err := f.templates.Create(&TemplateRequest{ProjectID: p.ID, Name: "x"}, owner); !errors.Is(err, ErrMissingFields) {
		t.Errorf("missing db_type: expected ErrMissingFields, got %v", err)
	}
	if _, err := f.templates.Create(&TemplateRequest{ProjectID: 404, Name: "x", DBType: "mysql"}, owner); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("unknown project: expected ErrProjectNotFound, got %v", err)
	}
	if _, err := f.templates.Create(&TemplateRequest{ProjectID: p.ID, Name: "x", DBType: "mysql"}, actorOf(f.outsider)); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider: expected ErrForbidden, got %v", err)
	}

	tpl := f.template(t, p.ID, "first", `["SELECT 1"]`)
	f.template(t, p.ID, "second", `["SELECT 2"]`)

	list, err := f.templates.List(&TemplateListRequest{Project: "Cata"}, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "second" || list[0].ProjectName != "Catalog" {
		t.Errorf("list = %+v", list)
	}
	if list, _ := f.templates.List(&TemplateListRequest{}, actorOf(f.outsider)); len(list) != 0 {
		t.Errorf("outsider should see no templates, got %d", len(list))
	}

	got, err := f.templates.GetByID(tpl.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Body.Statements()) != 1 {
		t.Errorf("body = %+v", got.Body)
	}

	if err := f.templates.Delete(tpl.ID, owner); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.templates.GetByID(tpl.ID, owner); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound after delete, got %v", err)
	}
}

func TestReconcile_SweepAndResolve(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, "Crashy")
	executed := f.template(t, p.ID, "executed", `["SELECT 1"]`)
	lost := f.template(t, p.ID, "lost", `["SELECT 1"]`)

	// Simulate runs interrupted after claiming their templates.
	old := time.Now().Add(-time.Hour)
	var runs []models.TemplateRun
	for i, tpl := range []*models.Template{executed, lost} {
		f.db.Model(&models.Template{}).Where("id = ?", tpl.ID).Updates(map[string]interface{}{"is_locked": true, "locked_at": old})
		run := models.TemplateRun{
			Token:      []string{"run-a", "run-b"}[i],
			TemplateID: tpl.ID,
			ProjectID:  p.ID,
			Status:     models.RunStatusPending,
			StartedAt:  old,
		}
		f.db.Create(&run)
		runs = append(runs, run)
	}
	fresh := models.TemplateRun{Token: "run-c", TemplateID: executed.ID, ProjectID: p.ID, Status: models.RunStatusPending, StartedAt: time.Now()}
	f.db.Create(&fresh)

	svc := NewReconcileService(f.db, nil, 15*time.Minute)
	flagged, err := svc.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if flagged != 2 {
		t.Fatalf("flagged = %d, expected 2", flagged)
	}

	unknown, err := svc.ListRuns(&RunListRequest{Status: models.RunStatusUnknown})
	if err != nil || len(unknown) != 2 {
		t.Fatalf("unknown runs = %d, err = %v", len(unknown), err)
	}

	if _, err := svc.Resolve(runs[0].ID, OutcomeExecuted, actorOf(f.owner)); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin resolve: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Resolve(runs[0].ID, "maybe", actorOf(f.admin)); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("bad outcome: expected ErrInvalidOutcome, got %v", err)
	}
	if _, err := svc.Resolve(fresh.ID, OutcomeExecuted, actorOf(f.admin)); !errors.Is(err, ErrRunSettled) {
		t.Errorf("pending run: expected ErrRunSettled, got %v", err)
	}

	run, err := svc.Resolve(runs[0].ID, OutcomeExecuted, actorOf(f.admin))
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != models.RunStatusSucceeded {
		t.Errorf("Status = %q", run.Status)
	}
	var tpl models.Template
	f.db.First(&tpl, executed.ID)
	if !tpl.IsLocked || tpl.LastRunAt == nil {
		t.Errorf("executed template should stay locked with last_run_at, got %+v", tpl)
	}

	if _, err := svc.Resolve(runs[1].ID, OutcomeNotExecuted, actorOf(f.admin)); err != nil {
		t.Fatal(err)
	}
	f.db.First(&tpl, lost.ID)
	if tpl.IsLocked {
		t.Error("not_executed should unlock the template")
	}
	if _, err := f.runner.Run(context.Background(), lost.ID, actorOf(f.owner)); err != nil {
		t.Errorf("unlocked template should run again: %v", err)
	}

	if _, err := svc.Resolve(runs[1].ID, OutcomeExecuted, actorOf(f.admin)); !errors.Is(err, ErrRunSettled) {
		t.Errorf("double resolve: expected ErrRunSettled, got %v", err)
	}
	if _, err := svc.Resolve(999, OutcomeExecuted, actorOf(f.admin)); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
