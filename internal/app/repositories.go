package app

import (
	"context"
	"time"

	"tenant-quiz-service/internal/domain"
)

// TemplateRepository persists templates. Writes must apply the owner-or-legacy
// tenant filter inside the write statement itself.
type TemplateRepository interface {
	ListTemplates(ctx context.Context, filter domain.TemplateFilter, q domain.TenantQuery) ([]domain.Template, error)
	GetTemplate(ctx context.Context, id string, q domain.TenantQuery) (domain.Template, error)
	// FindTemplate looks a template up regardless of tenant.
	FindTemplate(ctx context.Context, id string) (domain.Template, error)
	CreateTemplate(ctx context.Context, t domain.Template) error
	UpdateTemplate(ctx context.Context, id, tenantTag string, patch domain.TemplatePatch, now time.Time) error
	DeleteTemplates(ctx context.Context, ids []string, tenantTag string) (int, error)
}

// QuestionSetReader loads the question set of a template. An empty tenantTag
// matches a set of any tenant.
type QuestionSetReader interface {
	GetQuestionSet(ctx context.Context, templateID, tenantTag string) (domain.QuestionSet, error)
}

// QuestionSetRepository persists question sets, unique per (templateID, tenantTag).
type QuestionSetRepository interface {
	QuestionSetReader
	// InsertQuestionSet returns domain.ErrConflict when the pair already exists.
	InsertQuestionSet(ctx context.Context, qs domain.QuestionSet) error
	// ReplaceQuestionSet returns domain.ErrNotFound when no set exists for the pair.
	ReplaceQuestionSet(ctx context.Context, qs domain.QuestionSet) error
}

// QuestionSetInvalidator drops cached copies of a question set.
type QuestionSetInvalidator interface {
	InvalidateQuestionSet(ctx context.Context, templateID, tenantTag string) error
}

// ResponseRepository is an append-only response log.
type ResponseRepository interface {
	InsertResponse(ctx context.Context, r domain.Response) error
	// ListResponses returns responses newest first.
	ListResponses(ctx context.Context, filter domain.ResponseFilter) ([]domain.Response, error)
}

// ResponsePublisher fans newly recorded responses out to live subscribers.
type ResponsePublisher interface {
	PublishResponse(ctx context.Context, r domain.Response) error
}

// ContentDirectory reads content instances owned by the content store.
type ContentDirectory interface {
	ContentsForTemplates(ctx context.Context, templateIDs []string) ([]domain.ContentInstance, error)
}

// TenantDirectory resolves tenant tokens to display names.
type TenantDirectory interface {
	TenantNames(ctx context.Context, tokens []string) (map[string]string, error)
}

// ResponseSubscriber streams responses recorded after the subscription
// starts. An empty tenantTag subscribes to every tenant.
type ResponseSubscriber interface {
	SubscribeResponses(ctx context.Context, tenantTag string) (<-chan domain.Response, func(), error)
}
