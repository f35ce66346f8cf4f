package app_test

import (
	"context"
	"testing"
	"time"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/infra/memory"
)

func TestSummarizeEmptyInput(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	r := app.Summarize(nil, now, time.UTC)

	if r.TotalResponses != 0 || r.TotalUsers != 0 || r.AverageScore != 0 || r.CompletionRate != 0 {
		t.Fatalf("expected zeroed report, got %+v", r)
	}
	if len(r.Daily) != 7 || r.Daily[0].Date != "2026-10-10" || r.Daily[6].Date != "2026-10-16" {
		t.Fatalf("unexpected daily buckets: %+v", r.Daily)
	}
	if r.Tenants == nil || r.Contents == nil {
		t.Fatalf("filter options should be empty slices")
	}
}

func TestSummarizeAggregates(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, loc)
	content := &domain.ContentInfo{ID: "c1", Heading: "Spring"}

	enhanced := func(email, user, tenant string, completed bool, score float64, at time.Time, stats bool) domain.EnhancedResponse {
		er := domain.EnhancedResponse{
			Response: domain.Response{
				UserID:    user,
				UserInfo:  domain.UserInfo{Email: email},
				Completed: completed,
				CreatedAt: at,
			},
			TenantName:  tenant,
			ContentInfo: content,
			Enhanced:    true,
		}
		if stats {
			er.Stats = &domain.ScoreStats{ScorePercentage: score}
		}
		return er
	}

	responses := []domain.EnhancedResponse{
		// 00:30 local today is 22:30 UTC yesterday; still counts as today.
		enhanced("a@x", "", "Acme", true, 100, time.Date(2026, 10, 15, 22, 30, 0, 0, time.UTC), true),
		enhanced("a@x", "", "Acme", false, 50, now.Add(-24*time.Hour), true),
		enhanced("b@x", "u2", "Globex", true, 0, now.Add(-6*24*time.Hour), false),
		enhanced("b@x", "u3", "Acme", true, 0, now.Add(-8*24*time.Hour), true),
	}

	r := app.Summarize(responses, now, loc)
	if r.TotalResponses != 4 {
		t.Fatalf("unexpected total: %d", r.TotalResponses)
	}
	if r.TotalUsers != 3 {
		t.Fatalf("expected 3 distinct (email, userId) pairs, got %d", r.TotalUsers)
	}
	if r.AverageScore != 37.5 {
		t.Fatalf("unexpected average: %v", r.AverageScore)
	}
	if r.CompletionRate != 75 {
		t.Fatalf("unexpected completion rate: %v", r.CompletionRate)
	}
	counts := []int{}
	for _, d := range r.Daily {
		counts = append(counts, d.Count)
	}
	want := []int{1, 0, 0, 0, 0, 1, 1}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("unexpected histogram %v, want %v", counts, want)
		}
	}
	if len(r.Tenants) != 2 || r.Tenants[0] != "Acme" || r.Tenants[1] != "Globex" {
		t.Fatalf("unexpected tenants: %v", r.Tenants)
	}
	if len(r.Contents) != 1 || r.Contents[0].ID != "c1" {
		t.Fatalf("unexpected contents: %+v", r.Contents)
	}
}

func TestReportServiceBuild(t *testing.T) {
	templates := memory.NewTemplateStore(domain.Template{ID: "T", TenantTag: domain.Tag("tenantA"), Status: domain.StatusPublished})
	responses := app.NewResponseService(templates, memory.NewResponseStore(), nil, nil, time.Second)
	enhancer := app.NewEnhancer(seededSets(t), nil, nil, nil, 2, time.Second)
	reports := app.NewReportService(responses, enhancer, time.UTC, nil)
	ctx := context.Background()

	for _, answers := range [][]domain.Answer{
		{{SelectedOption: "Paris"}, {SelectedOption: "42"}},
		{{SelectedOption: "Paris"}, {SelectedOption: "0"}},
	} {
		if _, err := responses.Record(ctx, app.RecordRequest{TemplateID: "T", Answers: answers}, app.Scope{}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	res, err := reports.Build(ctx, domain.ResponseFilter{}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Summary.TotalResponses != 2 || len(res.Responses) != 2 {
		t.Fatalf("unexpected report: %+v", res.Summary)
	}
	if res.Summary.AverageScore != 75 {
		t.Fatalf("unexpected average: %v", res.Summary.AverageScore)
	}
	if res.Summary.Daily[6].Count != 2 {
		t.Fatalf("both responses were recorded today: %+v", res.Summary.Daily)
	}
}

func TestReportServiceBuildSummarizesEveryPage(t *testing.T) {
	templates := memory.NewTemplateStore(domain.Template{ID: "T", TenantTag: domain.Tag("tenantA"), Status: domain.StatusPublished})
	responses := app.NewResponseService(templates, memory.NewResponseStore(), nil, nil, time.Second)
	enhancer := app.NewEnhancer(seededSets(t), nil, nil, nil, 2, time.Second)
	reports := app.NewReportService(responses, enhancer, time.UTC, nil)
	ctx := context.Background()

	const recorded = 260
	for i := 0; i < recorded; i++ {
		req := app.RecordRequest{TemplateID: "T", Answers: []domain.Answer{{SelectedOption: "Paris"}, {SelectedOption: "42"}}}
		if _, err := responses.Record(ctx, req, app.Scope{}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	res, err := reports.Build(ctx, domain.ResponseFilter{}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Summary.TotalResponses != recorded || res.Summary.Daily[6].Count != recorded {
		t.Fatalf("summary should cover all %d responses: %+v", recorded, res.Summary)
	}
	if res.Summary.AverageScore != 100 {
		t.Fatalf("unexpected average: %v", res.Summary.AverageScore)
	}
	if len(res.Responses) != 50 {
		t.Fatalf("expected default page of 50, got %d", len(res.Responses))
	}

	res, err = reports.Build(ctx, domain.ResponseFilter{Limit: 20, Offset: 250}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Summary.TotalResponses != recorded || len(res.Responses) != 10 {
		t.Fatalf("unexpected page: total=%d page=%d", res.Summary.TotalResponses, len(res.Responses))
	}

	res, err = reports.Build(ctx, domain.ResponseFilter{Offset: 1000}, adminScope(t, "tenantA"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Responses == nil || len(res.Responses) != 0 {
		t.Fatalf("expected an empty page past the end, got %v", res.Responses)
	}
}
