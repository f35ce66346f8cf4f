package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-quiz-service/internal/domain"
)

// TemplateService holds the tenant scoped template use cases.
type TemplateService struct {
	repo    TemplateRepository
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

func NewTemplateService(repo TemplateRepository, logger *zap.Logger, timeout time.Duration) *TemplateService {
	return &TemplateService{
		repo:    repo,
		logger:  nopIfNil(logger),
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// List returns the tenant's templates plus legacy ones. Visitor scopes only see published templates.
func (s *TemplateService) List(ctx context.Context, filter domain.TemplateFilter, scope Scope) ([]domain.Template, error) {
	if err := scope.requireTenant(); err != nil {
		return nil, err
	}
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	filter.Search = strings.TrimSpace(filter.Search)
	templates, err := s.repo.ListTemplates(ctx, filter, scope.TemplateQuery())
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return templates, nil
}

// Create stamps the caller's tenant tag onto a new template.
func (s *TemplateService) Create(ctx context.Context, in domain.TemplateInput, scope Scope) (domain.Template, error) {
	if err := scope.requireAdmin(); err != nil {
		return domain.Template{}, err
	}
	if err := domain.ValidateTemplateInput(in).Err(); err != nil {
		return domain.Template{}, err
	}

	now := s.now()
	status := in.Status
	if status == "" {
		status = domain.StatusDraft
	}
	sections := append([]domain.Section(nil), in.Sections...)
	domain.SortSections(sections)

	tpl := domain.Template{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		Status:      status,
		Sections:    sections,
		TenantTag:   domain.Tag(scope.TenantTag),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		return domain.Template{}, classifyStoreErr(err)
	}
	s.logger.Info("template created", zap.String("templateId", tpl.ID), zap.String("tenantTag", scope.TenantTag))
	return tpl, nil
}

// Get returns one template visible to the scope.
func (s *TemplateService) Get(ctx context.Context, id string, scope Scope) (domain.Template, error) {
	if err := scope.requireTenant(); err != nil {
		return domain.Template{}, err
	}
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	tpl, err := s.repo.GetTemplate(ctx, id, scope.TemplateQuery())
	if err != nil {
		return domain.Template{}, classifyStoreErr(err)
	}
	return tpl, nil
}

// Update applies a patch. Ownership is checked by the write itself, so a
// template owned by another tenant reports ErrNotFound.
func (s *TemplateService) Update(ctx context.Context, id string, patch domain.TemplatePatch, scope Scope) (domain.Template, error) {
	if err := scope.requireAdmin(); err != nil {
		return domain.Template{}, err
	}
	if err := domain.ValidateTemplatePatch(patch).Err(); err != nil {
		return domain.Template{}, err
	}
	if patch.Sections != nil {
		patch.Sections = append([]domain.Section(nil), patch.Sections...)
		domain.SortSections(patch.Sections)
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()
	if err := s.repo.UpdateTemplate(ctx, id, scope.TenantTag, patch, s.now()); err != nil {
		return domain.Template{}, classifyStoreErr(err)
	}
	tpl, err := s.repo.GetTemplate(ctx, id, scope.TemplateQuery())
	if err != nil {
		return domain.Template{}, classifyStoreErr(err)
	}
	return tpl, nil
}

// DeleteMany removes the given templates owned by the tenant (or legacy) and
// returns how many were deleted.
func (s *TemplateService) DeleteMany(ctx context.Context, ids []string, scope Scope) (int, error) {
	if err := scope.requireAdmin(); err != nil {
		return 0, err
	}
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return 0, domain.NewValidationError("ids", "at least one id is required")
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()
	n, err := s.repo.DeleteTemplates(ctx, cleaned, scope.TenantTag)
	if err != nil {
		return 0, classifyStoreErr(err)
	}
	if n == 0 {
		return 0, domain.ErrNotFound
	}
	s.logger.Info("templates deleted", zap.Int("count", n), zap.String("tenantTag", scope.TenantTag))
	return n, nil
}
