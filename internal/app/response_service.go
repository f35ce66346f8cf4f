package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/metrics"
)

const (
	defaultResponsePage = 50
	maxResponsePage     = 200
)

// RecordRequest is a visitor submission as received.
type RecordRequest struct {
	TemplateID string
	UserID     string
	UserInfo   domain.UserInfo
	Answers    []domain.Answer
	Completed  *bool
}

// ResponseService records visitor submissions. Scoring happens at read time,
// see Enhancer.
type ResponseService struct {
	templates TemplateRepository
	repo      ResponseRepository
	publisher ResponsePublisher
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
}

// NewResponseService wires the recorder. publisher may be nil.
func NewResponseService(templates TemplateRepository, repo ResponseRepository, publisher ResponsePublisher, logger *zap.Logger, timeout time.Duration) *ResponseService {
	return &ResponseService{
		templates: templates,
		repo:      repo,
		publisher: publisher,
		logger:    nopIfNil(logger),
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Record persists one immutable response tagged with the tenant of the
// template being answered. No credentials are required; for legacy templates
// the caller's optional scope supplies the tag.
func (s *ResponseService) Record(ctx context.Context, req RecordRequest, scope Scope) (domain.Response, error) {
	templateID := strings.TrimSpace(req.TemplateID)
	if templateID == "" {
		return domain.Response{}, domain.NewValidationError("templateId", "template id is required")
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	tpl, err := s.templates.FindTemplate(ctx, templateID)
	if err != nil {
		metrics.ResponsesRecorded.WithLabelValues("error").Inc()
		return domain.Response{}, classifyStoreErr(err)
	}
	tenantTag := scope.TenantTag
	if !tpl.IsLegacy() {
		tenantTag = *tpl.TenantTag
	}

	info := req.UserInfo
	if info.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(info.Password), bcrypt.DefaultCost)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return domain.Response{}, domain.NewValidationError("userInfo.password", "password must be at most 72 bytes")
		}
		if err != nil {
			return domain.Response{}, err
		}
		info.Password = string(hash)
	}

	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	resp := domain.Response{
		ID:         s.newID(),
		TemplateID: templateID,
		UserID:     req.UserID,
		UserInfo:   info,
		Answers:    append([]domain.Answer(nil), req.Answers...),
		Completed:  completed,
		TenantTag:  tenantTag,
		CreatedAt:  s.now(),
	}
	if resp.Answers == nil {
		resp.Answers = []domain.Answer{}
	}

	if err := s.repo.InsertResponse(ctx, resp); err != nil {
		metrics.ResponsesRecorded.WithLabelValues("error").Inc()
		return domain.Response{}, classifyStoreErr(err)
	}
	metrics.ResponsesRecorded.WithLabelValues("ok").Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishResponse(ctx, resp); err != nil {
			s.logger.Warn("publish recorded response failed",
				zap.String("responseId", resp.ID), zap.Error(err))
		}
	}
	return resp, nil
}

// List returns recorded responses newest first, restricted to the scope's
// tenant unless the scope may see all tenants.
func (s *ResponseService) List(ctx context.Context, filter domain.ResponseFilter, scope Scope) ([]domain.Response, error) {
	if err := scope.requireAdmin(); err != nil {
		return nil, err
	}
	filter.TenantTag = scope.TenantTag
	filter.AllTenants = filter.AllTenants && scope.AllTenants
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()
	responses, err := s.repo.ListResponses(ctx, filter)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return responses, nil
}

// ListAll walks every page of the filter's responses, newest first. The
// filter's own limit and offset are ignored.
func (s *ResponseService) ListAll(ctx context.Context, filter domain.ResponseFilter, scope Scope) ([]domain.Response, error) {
	all := make([]domain.Response, 0)
	filter.Limit = maxResponsePage
	for filter.Offset = 0; ; filter.Offset += maxResponsePage {
		page, err := s.List(ctx, filter, scope)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < maxResponsePage {
			return all, nil
		}
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultResponsePage
	}
	if limit > maxResponsePage {
		limit = maxResponsePage
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
