package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
)

type reportFlags struct {
	tenant     string
	templateID string
	allTenants bool
	limit      int
	summary    bool
}

// NewReportCmd prints a tenant report as JSON.
func NewReportCmd(configPath *string) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the response report for a tenant as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := buildRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			return writeReport(ctx, cmd.OutOrStdout(), rt.deps.Resolver, rt.deps.Reports, flags)
		},
	}
	cmd.Flags().StringVar(&flags.tenant, "tenant", "", "tenant token to report on")
	cmd.Flags().StringVar(&flags.templateID, "template", "", "restrict to one template id")
	cmd.Flags().BoolVar(&flags.allTenants, "all-tenants", false, "report across tenants (super tokens only)")
	cmd.Flags().IntVar(&flags.limit, "limit", 200, "number of most recent responses")
	cmd.Flags().BoolVar(&flags.summary, "summary-only", false, "omit the enhanced responses")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func writeReport(ctx context.Context, w io.Writer, resolver *app.ScopeResolver, reports *app.ReportService, flags reportFlags) error {
	scope, err := resolver.Resolve(app.Credentials{AdminToken: flags.tenant})
	if err != nil {
		return err
	}
	result, err := reports.Build(ctx, domain.ResponseFilter{
		TemplateID: flags.templateID,
		AllTenants: flags.allTenants,
		Limit:      flags.limit,
	}, scope)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if flags.summary {
		return enc.Encode(result.Summary)
	}
	return enc.Encode(result)
}
