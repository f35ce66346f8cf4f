package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"tenant-quiz-service/internal/domain"
)

type questionSetRow struct {
	bun.BaseModel `bun:"table:question_sets,alias:qs"`

	ID         string            `bun:"id,pk"`
	TemplateID string            `bun:"template_id,notnull"`
	TenantTag  string            `bun:"tenant_tag,notnull"`
	Questions  []domain.Question `bun:"questions,type:jsonb,notnull"`
	IsActive   bool              `bun:"is_active,notnull"`
	CreatedBy  string            `bun:"created_by,notnull"`
	CreatedAt  time.Time         `bun:"created_at,notnull"`
	UpdatedAt  time.Time         `bun:"updated_at,notnull"`
}

func (r questionSetRow) toDomain() domain.QuestionSet {
	questions := r.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	return domain.QuestionSet{
		ID:         r.ID,
		TemplateID: r.TemplateID,
		TenantTag:  r.TenantTag,
		Questions:  questions,
		IsActive:   r.IsActive,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// QuestionSetRepository stores question sets. The unique index on
// (template_id, tenant_tag) is the source of truth for one set per tenant.
type QuestionSetRepository struct {
	db *bun.DB
}

func NewQuestionSetRepository(db *bun.DB) *QuestionSetRepository {
	return &QuestionSetRepository{db: db}
}

func (r *QuestionSetRepository) GetQuestionSet(ctx context.Context, templateID, tenantTag string) (domain.QuestionSet, error) {
	var row questionSetRow
	sel := r.db.NewSelect().Model(&row).Where("qs.template_id = ?", templateID)
	if tenantTag != "" {
		sel = sel.Where("qs.tenant_tag = ?", tenantTag)
	}
	if err := sel.Order("qs.updated_at DESC", "qs.tenant_tag ASC").Limit(1).Scan(ctx); err != nil {
		return domain.QuestionSet{}, mapErr("get question set", err)
	}
	return row.toDomain(), nil
}

func (r *QuestionSetRepository) InsertQuestionSet(ctx context.Context, qs domain.QuestionSet) error {
	row := questionSetRow{
		ID:         qs.ID,
		TemplateID: qs.TemplateID,
		TenantTag:  qs.TenantTag,
		Questions:  qs.Questions,
		IsActive:   qs.IsActive,
		CreatedBy:  qs.CreatedBy,
		CreatedAt:  qs.CreatedAt,
		UpdatedAt:  qs.UpdatedAt,
	}
	if row.Questions == nil {
		row.Questions = []domain.Question{}
	}
	_, err := r.db.NewInsert().Model(&row).Exec(ctx)
	return mapErr("insert question set", err)
}

// ReplaceQuestionSet swaps the questions of the existing row in place,
// keeping its id and creation time.
func (r *QuestionSetRepository) ReplaceQuestionSet(ctx context.Context, qs domain.QuestionSet) error {
	questions := qs.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	res, err := r.db.NewUpdate().Model((*questionSetRow)(nil)).
		Set("questions = ?::jsonb", string(raw)).
		Set("is_active = ?", qs.IsActive).
		Set("created_by = ?", qs.CreatedBy).
		Set("updated_at = ?", qs.UpdatedAt).
		Where("template_id = ?", qs.TemplateID).
		Where("tenant_tag = ?", qs.TenantTag).
		Exec(ctx)
	if err != nil {
		return mapErr("replace question set", err)
	}
	_, err = affectedOrNotFound("replace question set", res)
	return err
}
