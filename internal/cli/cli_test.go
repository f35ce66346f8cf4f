package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/config"
	"tenant-quiz-service/internal/domain"
)

func TestReportUsesInMemoryRuntime(t *testing.T) {
	ctx := context.Background()
	rt, err := buildRuntime(ctx, config.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.Close()

	if _, err := rt.deps.Responses.Record(ctx, app.RecordRequest{
		TemplateID: "welcome",
		Answers:    []domain.Answer{{SelectedOption: "yes"}},
	}, app.Scope{TenantTag: "tenantA"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	var out bytes.Buffer
	if err := writeReport(ctx, &out, rt.deps.Resolver, rt.deps.Reports, reportFlags{tenant: "tenantA", limit: 10, summary: true}); err != nil {
		t.Fatalf("report: %v", err)
	}
	var summary domain.Report
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalResponses != 1 || summary.CompletionRate != 100 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestReportRequiresTenant(t *testing.T) {
	rt, err := buildRuntime(context.Background(), config.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	defer rt.Close()

	var out bytes.Buffer
	if err := writeReport(context.Background(), &out, rt.deps.Resolver, rt.deps.Reports, reportFlags{}); err == nil {
		t.Fatalf("expected error without tenant")
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "report"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("missing subcommand %s", name)
		}
	}
}
