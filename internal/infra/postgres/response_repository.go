package postgres

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"tenant-quiz-service/internal/domain"
)

// userInfoDoc is the stored form of domain.UserInfo. The password hash is
// kept in storage but never serialized on the wire.
type userInfoDoc struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

type responseRow struct {
	bun.BaseModel `bun:"table:responses,alias:r"`

	ID         string          `bun:"id,pk"`
	TemplateID string          `bun:"template_id,notnull"`
	UserID     string          `bun:"user_id,notnull"`
	UserInfo   userInfoDoc     `bun:"user_info,type:jsonb,notnull"`
	Answers    []domain.Answer `bun:"answers,type:jsonb,notnull"`
	Score      float64         `bun:"score,notnull"`
	Completed  bool            `bun:"completed,notnull"`
	TenantTag  string          `bun:"tenant_tag,notnull"`
	CreatedAt  time.Time       `bun:"created_at,notnull"`
}

func (r responseRow) toDomain() domain.Response {
	answers := r.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	return domain.Response{
		ID:         r.ID,
		TemplateID: r.TemplateID,
		UserID:     r.UserID,
		UserInfo: domain.UserInfo{
			Name:     r.UserInfo.Name,
			Email:    r.UserInfo.Email,
			Password: r.UserInfo.Password,
		},
		Answers:   answers,
		Score:     r.Score,
		Completed: r.Completed,
		TenantTag: r.TenantTag,
		CreatedAt: r.CreatedAt,
	}
}

// ResponseRepository appends and pages visitor responses.
type ResponseRepository struct {
	db *bun.DB
}

func NewResponseRepository(db *bun.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) InsertResponse(ctx context.Context, resp domain.Response) error {
	row := responseRow{
		ID:         resp.ID,
		TemplateID: resp.TemplateID,
		UserID:     resp.UserID,
		UserInfo: userInfoDoc{
			Name:     resp.UserInfo.Name,
			Email:    resp.UserInfo.Email,
			Password: resp.UserInfo.Password,
		},
		Answers:   resp.Answers,
		Score:     resp.Score,
		Completed: resp.Completed,
		TenantTag: resp.TenantTag,
		CreatedAt: resp.CreatedAt,
	}
	if row.Answers == nil {
		row.Answers = []domain.Answer{}
	}
	_, err := r.db.NewInsert().Model(&row).Exec(ctx)
	return mapErr("insert response", err)
}

func (r *ResponseRepository) ListResponses(ctx context.Context, filter domain.ResponseFilter) ([]domain.Response, error) {
	var rows []responseRow
	sel := r.db.NewSelect().Model(&rows)
	if filter.TemplateID != "" {
		sel = sel.Where("r.template_id = ?", filter.TemplateID)
	}
	if !filter.AllTenants {
		sel = sel.Where("r.tenant_tag = ?", filter.TenantTag)
	}
	sel = sel.Order("r.created_at DESC", "r.id ASC")
	if filter.Limit > 0 {
		sel = sel.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		sel = sel.Offset(filter.Offset)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, mapErr("list responses", err)
	}
	out := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
