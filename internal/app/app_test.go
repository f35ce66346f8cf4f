package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/infra/memory"
)

func adminScope(t *testing.T, tenant string) app.Scope {
	t.Helper()
	scope, err := app.NewScopeResolver(nil).Resolve(app.Credentials{AdminToken: tenant})
	if err != nil {
		t.Fatalf("resolve admin: %v", err)
	}
	return scope
}

func userScope(t *testing.T, tenant string) app.Scope {
	t.Helper()
	scope, err := app.NewScopeResolver(nil).Resolve(app.Credentials{UserToken: tenant})
	if err != nil {
		t.Fatalf("resolve user: %v", err)
	}
	return scope
}

func TestScopeResolver(t *testing.T) {
	r := app.NewScopeResolver([]string{"root"})

	if _, err := r.Resolve(app.Credentials{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized without tokens, got %v", err)
	}

	s, _ := r.Resolve(app.Credentials{AdminToken: "tenantA", UserToken: "tenantB"})
	if s.TenantTag != "tenantA" || !s.Admin || !s.LegacyVisible || s.PublishedOnly || s.AllTenants {
		t.Fatalf("admin token should win: %+v", s)
	}

	s, _ = r.Resolve(app.Credentials{UserToken: "tenantB"})
	if s.TenantTag != "tenantB" || s.Admin || !s.PublishedOnly {
		t.Fatalf("unexpected user scope: %+v", s)
	}

	s, _ = r.Resolve(app.Credentials{AdminToken: "root"})
	if !s.AllTenants {
		t.Fatalf("super token should unlock all tenants")
	}

	if got := r.Optional(app.Credentials{}); got != (app.Scope{}) {
		t.Fatalf("expected zero scope, got %+v", got)
	}
}

func TestTemplateListTenantBSeesOwnAndLegacy(t *testing.T) {
	store := memory.NewTemplateStore(domain.Template{ID: "legacy", Name: "Legacy", Status: domain.StatusPublished})
	svc := app.NewTemplateService(store, nil, time.Second)
	ctx := context.Background()

	a, err := svc.Create(ctx, domain.TemplateInput{Name: "A", Description: "a"}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	b, err := svc.Create(ctx, domain.TemplateInput{Name: "B", Description: "b", Status: domain.StatusPublished}, adminScope(t, "tenantB"))
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	if a.Status != domain.StatusDraft || a.TenantTag == nil || *a.TenantTag != "tenantA" {
		t.Fatalf("unexpected created template: %+v", a)
	}

	list, err := svc.List(ctx, domain.TemplateFilter{}, adminScope(t, "tenantB"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := map[string]bool{}
	for _, tpl := range list {
		ids[tpl.ID] = true
	}
	if len(list) != 2 || !ids[b.ID] || !ids["legacy"] || ids[a.ID] {
		t.Fatalf("tenantB should see own plus legacy templates, got %v", ids)
	}

	if _, err := svc.Get(ctx, a.ID, adminScope(t, "tenantB")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
}

func TestTemplateWritesRequireAdminAndOwnership(t *testing.T) {
	svc := app.NewTemplateService(memory.NewTemplateStore(), nil, time.Second)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.TemplateInput{Name: "x", Description: "y"}, userScope(t, "tenantA")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for user scope, got %v", err)
	}
	if _, err := svc.Create(ctx, domain.TemplateInput{Name: " "}, adminScope(t, "tenantA")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	tpl, err := svc.Create(ctx, domain.TemplateInput{
		Name:        "Launch",
		Description: "page",
		Sections: []domain.Section{
			{Kind: domain.SectionText, Value: "second", Order: 2},
			{Kind: domain.SectionImage, Value: "first", Order: 1},
		},
	}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tpl.Sections[0].Value != "first" {
		t.Fatalf("sections should be ordered: %+v", tpl.Sections)
	}

	name := "Hijacked"
	if _, err := svc.Update(ctx, tpl.ID, domain.TemplatePatch{Name: &name}, adminScope(t, "tenantB")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found updating foreign template, got %v", err)
	}
	name = "Relaunch"
	updated, err := svc.Update(ctx, tpl.ID, domain.TemplatePatch{Name: &name}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Relaunch" || updated.Description != "page" {
		t.Fatalf("unexpected updated template: %+v", updated)
	}

	if _, err := svc.DeleteMany(ctx, []string{tpl.ID}, adminScope(t, "tenantB")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found deleting foreign template, got %v", err)
	}
	if _, err := svc.DeleteMany(ctx, nil, adminScope(t, "tenantA")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty ids, got %v", err)
	}
	n, err := svc.DeleteMany(ctx, []string{tpl.ID}, adminScope(t, "tenantA"))
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
}

func TestUserScopeOnlySeesPublishedTemplates(t *testing.T) {
	store := memory.NewTemplateStore(
		domain.Template{ID: "draft", Name: "d", TenantTag: domain.Tag("tenantA"), Status: domain.StatusDraft},
		domain.Template{ID: "live", Name: "l", TenantTag: domain.Tag("tenantA"), Status: domain.StatusPublished},
	)
	svc := app.NewTemplateService(store, nil, time.Second)

	list, err := svc.List(context.Background(), domain.TemplateFilter{}, userScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "live" {
		t.Fatalf("expected only published template, got %+v", list)
	}
}

func questions(correct ...string) []domain.Question {
	out := make([]domain.Question, 0, len(correct))
	for i, c := range correct {
		out = append(out, domain.Question{
			Text: fmt.Sprintf("Q%d", i+1),
			Options: []domain.Option{
				{Text: c, IsCorrect: true},
				{Text: "wrong-" + c},
			},
		})
	}
	return out
}

type questionFixture struct {
	templates *memory.TemplateStore
	sets      *memory.QuestionSetStore
	svc       *app.QuestionService
}

func newQuestionFixture() questionFixture {
	templates := memory.NewTemplateStore(
		domain.Template{ID: "t1", Name: "T1", TenantTag: domain.Tag("tenantA"), Status: domain.StatusPublished},
		domain.Template{ID: "legacy", Name: "Legacy", Status: domain.StatusPublished},
	)
	sets := memory.NewQuestionSetStore()
	return questionFixture{
		templates: templates,
		sets:      sets,
		svc:       app.NewQuestionService(templates, sets, nil, nil, time.Second),
	}
}

func TestQuestionUpsertRejectsWholeSetOnAnyViolation(t *testing.T) {
	f := newQuestionFixture()
	bad := append(questions("Paris"), domain.Question{Text: "broken", Options: []domain.Option{{Text: "only", IsCorrect: true}}})

	_, err := f.svc.Upsert(context.Background(), "t1", adminScope(t, "tenantA"), app.QuestionSetInput{Questions: bad})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Violations[0].QuestionIndex != 1 {
		t.Fatalf("expected violation on question 1, got %+v", verr.Violations)
	}
	if _, err := f.sets.GetQuestionSet(context.Background(), "t1", "tenantA"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("nothing should be stored, got %v", err)
	}
}

func TestQuestionUpsertReplacesExistingSet(t *testing.T) {
	f := newQuestionFixture()
	ctx := context.Background()
	scope := adminScope(t, "tenantA")

	first, err := f.svc.Upsert(ctx, "t1", scope, app.QuestionSetInput{Questions: questions("Paris")})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.IsActive {
		t.Fatalf("sets default to active")
	}
	second, err := f.svc.Upsert(ctx, "t1", scope, app.QuestionSetInput{Questions: questions("Rome", "42")})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replace should keep the set id: %s != %s", second.ID, first.ID)
	}
	if len(second.Questions) != 2 || second.Questions[0].Options[0].Text != "Rome" {
		t.Fatalf("later write should win: %+v", second.Questions)
	}
}

func TestQuestionUpsertConcurrentWritersLeaveOneSet(t *testing.T) {
	f := newQuestionFixture()
	scope := adminScope(t, "tenantA")
	inputs := [][]domain.Question{questions("Paris"), questions("Rome", "42")}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(qs []domain.Question) {
			defer wg.Done()
			_, err := f.svc.Upsert(context.Background(), "t1", scope, app.QuestionSetInput{Questions: qs})
			errs <- err
		}(inputs[i%2])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := f.sets.GetQuestionSet(context.Background(), "t1", "tenantA")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n := len(got.Questions); n != 1 && n != 2 {
		t.Fatalf("stored set should equal one of the writes, got %d questions", n)
	}
}

func TestQuestionUpsertRequiresVisibleTemplate(t *testing.T) {
	f := newQuestionFixture()
	if _, err := f.svc.Upsert(context.Background(), "t1", adminScope(t, "tenantB"), app.QuestionSetInput{Questions: questions("x")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for foreign template, got %v", err)
	}
	if _, err := f.svc.Upsert(context.Background(), "legacy", adminScope(t, "tenantB"), app.QuestionSetInput{Questions: questions("x")}); err != nil {
		t.Fatalf("legacy templates accept tenant question sets: %v", err)
	}
}

func TestQuestionGetHidesInactiveSetsFromVisitors(t *testing.T) {
	f := newQuestionFixture()
	ctx := context.Background()
	inactive := false
	if _, err := f.svc.Upsert(ctx, "t1", adminScope(t, "tenantA"), app.QuestionSetInput{Questions: questions("Paris"), IsActive: &inactive}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := f.svc.GetByTemplate(ctx, "t1", userScope(t, "tenantA")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("visitor should not see inactive set, got %v", err)
	}
	if _, err := f.svc.GetByTemplate(ctx, "t1", adminScope(t, "tenantA")); err != nil {
		t.Fatalf("admin should see inactive set: %v", err)
	}
}

type failingInvalidator struct{ calls int }

func (f *failingInvalidator) InvalidateQuestionSet(context.Context, string, string) error {
	f.calls++
	return errors.New("redis down")
}

func TestQuestionUpsertSurvivesCacheInvalidationFailure(t *testing.T) {
	f := newQuestionFixture()
	inv := &failingInvalidator{}
	svc := app.NewQuestionService(f.templates, f.sets, inv, nil, time.Second)

	if _, err := svc.Upsert(context.Background(), "t1", adminScope(t, "tenantA"), app.QuestionSetInput{Questions: questions("Paris")}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if inv.calls != 1 {
		t.Fatalf("expected one invalidation, got %d", inv.calls)
	}
}

func TestRecordTagsResponseWithTemplateTenant(t *testing.T) {
	templates := memory.NewTemplateStore(
		domain.Template{ID: "t1", Name: "T1", TenantTag: domain.Tag("tenantA"), Status: domain.StatusPublished},
		domain.Template{ID: "legacy", Name: "Legacy", Status: domain.StatusPublished},
	)
	responses := memory.NewResponseStore()
	feed := memory.NewResponseFeed()
	svc := app.NewResponseService(templates, responses, feed, nil, time.Second)
	ctx := context.Background()

	live, cancel, _ := feed.SubscribeResponses(ctx, "tenantA")
	defer cancel()

	rec, err := svc.Record(ctx, app.RecordRequest{
		TemplateID: "t1",
		UserInfo:   domain.UserInfo{Name: "Ann", Email: "ann@example.com", Password: "secret"},
		Answers:    []domain.Answer{{SelectedOption: "Paris"}},
	}, app.Scope{})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.TenantTag != "tenantA" || !rec.Completed || rec.Score != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Answers[0].IsCorrect != nil {
		t.Fatalf("record must not score answers")
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.UserInfo.Password), []byte("secret")) != nil {
		t.Fatalf("password should be stored hashed")
	}
	select {
	case got := <-live:
		if got.ID != rec.ID {
			t.Fatalf("unexpected live response %s", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected live feed event")
	}

	legacy, err := svc.Record(ctx, app.RecordRequest{TemplateID: "legacy"}, userScope(t, "tenantB"))
	if err != nil {
		t.Fatalf("record legacy: %v", err)
	}
	if legacy.TenantTag != "tenantB" || legacy.Answers == nil {
		t.Fatalf("unexpected legacy record: %+v", legacy)
	}

	if _, err := svc.Record(ctx, app.RecordRequest{TemplateID: "missing"}, app.Scope{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Record(ctx, app.RecordRequest{}, app.Scope{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListResponsesScopesToTenant(t *testing.T) {
	templates := memory.NewTemplateStore(
		domain.Template{ID: "t1", TenantTag: domain.Tag("tenantA")},
		domain.Template{ID: "t2", TenantTag: domain.Tag("tenantB")},
	)
	svc := app.NewResponseService(templates, memory.NewResponseStore(), nil, nil, time.Second)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t1"} {
		if _, err := svc.Record(ctx, app.RecordRequest{TemplateID: id}, app.Scope{}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	list, err := svc.List(ctx, domain.ResponseFilter{AllTenants: true}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("non-super admin must stay in tenant, got %d", len(list))
	}

	super, _ := app.NewScopeResolver([]string{"root"}).Resolve(app.Credentials{AdminToken: "root"})
	list, _ = svc.List(ctx, domain.ResponseFilter{AllTenants: true}, super)
	if len(list) != 3 {
		t.Fatalf("super admin should see all tenants, got %d", len(list))
	}

	if _, err := svc.List(ctx, domain.ResponseFilter{}, userScope(t, "tenantA")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for visitors, got %v", err)
	}
}
