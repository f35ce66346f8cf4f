package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tenant-quiz-service/internal/domain"
)

const (
	reportDays       = 7
	reportDateFormat = "2006-01-02"
)

// Summarize aggregates enhanced responses into a report. It performs no I/O;
// days are bucketed on calendar boundaries in loc, ending with the day of now.
func Summarize(responses []domain.EnhancedResponse, now time.Time, loc *time.Location) domain.Report {
	if loc == nil {
		loc = time.UTC
	}
	report := domain.Report{
		TotalResponses: len(responses),
		Daily:          dailyHistogram(responses, now, loc),
		Tenants:        []string{},
		Contents:       []domain.ContentInfo{},
	}
	if len(responses) == 0 {
		return report
	}

	type userKey struct{ email, userID string }
	users := make(map[userKey]struct{}, len(responses))
	tenants := make(map[string]struct{})
	contents := make(map[string]struct{})

	var scoreSum float64
	completed := 0
	for _, r := range responses {
		users[userKey{r.UserInfo.Email, r.UserID}] = struct{}{}
		if r.Stats != nil {
			scoreSum += r.Stats.ScorePercentage
		}
		if r.Completed {
			completed++
		}
		if r.TenantName != "" {
			if _, ok := tenants[r.TenantName]; !ok {
				tenants[r.TenantName] = struct{}{}
				report.Tenants = append(report.Tenants, r.TenantName)
			}
		}
		if r.ContentInfo != nil {
			if _, ok := contents[r.ContentInfo.ID]; !ok {
				contents[r.ContentInfo.ID] = struct{}{}
				report.Contents = append(report.Contents, *r.ContentInfo)
			}
		}
	}

	report.TotalUsers = len(users)
	report.AverageScore = roundTenth(scoreSum / float64(len(responses)))
	report.CompletionRate = Percentage(completed, len(responses))
	return report
}

func dailyHistogram(responses []domain.EnhancedResponse, now time.Time, loc *time.Location) []domain.DailyCount {
	local := now.In(loc)
	y, m, d := local.Date()

	days := make([]domain.DailyCount, reportDays)
	starts := make([]time.Time, reportDays+1)
	for i := 0; i <= reportDays; i++ {
		starts[i] = time.Date(y, m, d-(reportDays-1)+i, 0, 0, 0, 0, loc)
	}
	for i := range days {
		days[i].Date = starts[i].Format(reportDateFormat)
	}

	for _, r := range responses {
		at := r.CreatedAt
		if at.Before(starts[0]) || !at.Before(starts[reportDays]) {
			continue
		}
		for i := 0; i < reportDays; i++ {
			if at.Before(starts[i+1]) {
				days[i].Count++
				break
			}
		}
	}
	return days
}

// ReportResult is a report together with the enhanced page it was built from.
type ReportResult struct {
	Summary   domain.Report             `json:"summary"`
	Responses []domain.EnhancedResponse `json:"responses"`
}

// ReportService lists, enhances and summarizes responses for a tenant.
type ReportService struct {
	responses *ResponseService
	enhancer  *Enhancer
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewReportService(responses *ResponseService, enhancer *Enhancer, loc *time.Location, logger *zap.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		responses: responses,
		enhancer:  enhancer,
		logger:    nopIfNil(logger),
		loc:       loc,
		now:       time.Now,
	}
}

// EnhancedResponses lists the scope's responses and enhances them in order.
func (s *ReportService) EnhancedResponses(ctx context.Context, filter domain.ResponseFilter, scope Scope) ([]domain.EnhancedResponse, error) {
	raw, err := s.responses.List(ctx, filter, scope)
	if err != nil {
		return nil, err
	}
	return s.enhancer.Enhance(ctx, raw, s.enhanceOptions(filter, scope)), nil
}

// Build summarizes every response matching the filter. Responses holds only
// the page selected by the filter's limit and offset.
func (s *ReportService) Build(ctx context.Context, filter domain.ResponseFilter, scope Scope) (ReportResult, error) {
	raw, err := s.responses.ListAll(ctx, filter, scope)
	if err != nil {
		return ReportResult{}, err
	}
	enhanced := s.enhancer.Enhance(ctx, raw, s.enhanceOptions(filter, scope))
	summary := Summarize(enhanced, s.now(), s.loc)
	s.logger.Debug("report built",
		zap.String("tenantTag", scope.TenantTag),
		zap.Int("responses", summary.TotalResponses))

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	page := []domain.EnhancedResponse{}
	if offset < len(enhanced) {
		page = enhanced[offset:min(offset+limit, len(enhanced))]
	}
	return ReportResult{Summary: summary, Responses: page}, nil
}

func (s *ReportService) enhanceOptions(filter domain.ResponseFilter, scope Scope) EnhanceOptions {
	return EnhanceOptions{
		TenantTag:  scope.TenantTag,
		AllTenants: filter.AllTenants && scope.AllTenants,
	}
}
