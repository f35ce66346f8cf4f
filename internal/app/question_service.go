package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/metrics"
)

// QuestionSetInput is the authored quiz for one template.
type QuestionSetInput struct {
	Questions []domain.Question `json:"questions"`
	IsActive  *bool             `json:"isActive"`
	CreatedBy string            `json:"createdBy"`
}

// QuestionService owns question set authoring. One set exists per
// (template, tenant); a second upsert replaces the first.
type QuestionService struct {
	templates TemplateRepository
	repo      QuestionSetRepository
	cache     QuestionSetInvalidator
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
}

// NewQuestionService wires the store. cache may be nil when no cache is deployed.
func NewQuestionService(templates TemplateRepository, repo QuestionSetRepository, cache QuestionSetInvalidator, logger *zap.Logger, timeout time.Duration) *QuestionService {
	return &QuestionService{
		templates: templates,
		repo:      repo,
		cache:     cache,
		logger:    nopIfNil(logger),
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Upsert validates every question and stores the set atomically. Any
// violation rejects the whole set.
func (s *QuestionService) Upsert(ctx context.Context, templateID string, scope Scope, in QuestionSetInput) (domain.QuestionSet, error) {
	if err := scope.requireAdmin(); err != nil {
		return domain.QuestionSet{}, err
	}
	if templateID == "" {
		return domain.QuestionSet{}, domain.NewValidationError("templateId", "template id is required")
	}
	if res := domain.ValidateQuestions(in.Questions); !res.OK() {
		metrics.QuestionSetUpserts.WithLabelValues("invalid").Inc()
		return domain.QuestionSet{}, res.Err()
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	if _, err := s.templates.GetTemplate(ctx, templateID, scope.TemplateQuery()); err != nil {
		return domain.QuestionSet{}, classifyStoreErr(err)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := s.now()
	qs := domain.QuestionSet{
		TemplateID: templateID,
		TenantTag:  scope.TenantTag,
		Questions:  append([]domain.Question(nil), in.Questions...),
		IsActive:   active,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store(ctx, qs); err != nil {
		metrics.QuestionSetUpserts.WithLabelValues("error").Inc()
		return domain.QuestionSet{}, classifyStoreErr(err)
	}
	metrics.QuestionSetUpserts.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if err := s.cache.InvalidateQuestionSet(ctx, templateID, scope.TenantTag); err != nil {
			s.logger.Warn("question set cache invalidation failed",
				zap.String("templateId", templateID), zap.Error(err))
		}
	}

	stored, err := s.repo.GetQuestionSet(ctx, templateID, scope.TenantTag)
	if err != nil {
		return domain.QuestionSet{}, classifyStoreErr(err)
	}
	return stored, nil
}

// store replaces the existing set, inserting when there is none. An insert
// that loses a race against a concurrent insert is retried once as a replace.
func (s *QuestionService) store(ctx context.Context, qs domain.QuestionSet) error {
	err := s.repo.ReplaceQuestionSet(ctx, qs)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	qs.ID = s.newID()
	err = s.repo.InsertQuestionSet(ctx, qs)
	if !errors.Is(err, domain.ErrConflict) {
		return err
	}

	metrics.QuestionSetUpserts.WithLabelValues("conflict_retry").Inc()
	s.logger.Info("question set insert conflicted, replacing",
		zap.String("templateId", qs.TemplateID), zap.String("tenantTag", qs.TenantTag))
	return s.repo.ReplaceQuestionSet(ctx, qs)
}

// GetByTemplate returns the tenant's question set for a template. Visitor
// scopes only see active sets on published templates.
func (s *QuestionService) GetByTemplate(ctx context.Context, templateID string, scope Scope) (domain.QuestionSet, error) {
	if err := scope.requireTenant(); err != nil {
		return domain.QuestionSet{}, err
	}
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	if _, err := s.templates.GetTemplate(ctx, templateID, scope.TemplateQuery()); err != nil {
		return domain.QuestionSet{}, classifyStoreErr(err)
	}
	qs, err := s.repo.GetQuestionSet(ctx, templateID, scope.TenantTag)
	if err != nil {
		return domain.QuestionSet{}, classifyStoreErr(err)
	}
	if !scope.Admin && !qs.IsActive {
		return domain.QuestionSet{}, domain.ErrNotFound
	}
	return qs, nil
}
