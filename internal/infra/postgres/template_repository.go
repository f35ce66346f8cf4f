package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"tenant-quiz-service/internal/domain"
)

type templateRow struct {
	bun.BaseModel `bun:"table:templates,alias:t"`

	ID          string           `bun:"id,pk"`
	Name        string           `bun:"name,notnull"`
	Description string           `bun:"description,notnull"`
	Type        string           `bun:"type,notnull"`
	Status      string           `bun:"status,notnull"`
	Sections    []domain.Section `bun:"sections,type:jsonb,notnull"`
	TenantTag   *string          `bun:"tenant_tag"`
	CreatedAt   time.Time        `bun:"created_at,notnull"`
	UpdatedAt   time.Time        `bun:"updated_at,notnull"`
}

func (r templateRow) toDomain() domain.Template {
	sections := r.Sections
	if sections == nil {
		sections = []domain.Section{}
	}
	return domain.Template{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Status:      domain.TemplateStatus(r.Status),
		Sections:    sections,
		TenantTag:   r.TenantTag,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// TemplateRepository stores templates with bun.
type TemplateRepository struct {
	db *bun.DB
}

func NewTemplateRepository(db *bun.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// tenantScope restricts reads to the tenant's rows, plus legacy rows when asked.
func tenantScope(q domain.TenantQuery) func(*bun.SelectQuery) *bun.SelectQuery {
	return func(sq *bun.SelectQuery) *bun.SelectQuery {
		sq = sq.Where("t.tenant_tag = ?", q.TenantTag)
		if q.IncludeLegacy {
			sq = sq.WhereOr("COALESCE(t.tenant_tag, '') = ''")
		}
		return sq
	}
}

func (r *TemplateRepository) ListTemplates(ctx context.Context, filter domain.TemplateFilter, q domain.TenantQuery) ([]domain.Template, error) {
	var rows []templateRow
	sel := r.db.NewSelect().Model(&rows).WhereGroup(" AND ", tenantScope(q))
	if q.PublishedOnly {
		sel = sel.Where("t.status = ?", string(domain.StatusPublished))
	}
	if filter.Type != "" {
		sel = sel.Where("t.type = ?", filter.Type)
	}
	if filter.Status != "" {
		sel = sel.Where("t.status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where("t.name ILIKE ?", pattern).WhereOr("t.description ILIKE ?", pattern)
		})
	}
	if err := sel.Order("t.created_at DESC", "t.id ASC").Scan(ctx); err != nil {
		return nil, mapErr("list templates", err)
	}
	out := make([]domain.Template, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *TemplateRepository) GetTemplate(ctx context.Context, id string, q domain.TenantQuery) (domain.Template, error) {
	var row templateRow
	sel := r.db.NewSelect().Model(&row).Where("t.id = ?", id).WhereGroup(" AND ", tenantScope(q))
	if q.PublishedOnly {
		sel = sel.Where("t.status = ?", string(domain.StatusPublished))
	}
	if err := sel.Limit(1).Scan(ctx); err != nil {
		return domain.Template{}, mapErr("get template", err)
	}
	return row.toDomain(), nil
}

func (r *TemplateRepository) FindTemplate(ctx context.Context, id string) (domain.Template, error) {
	var row templateRow
	if err := r.db.NewSelect().Model(&row).Where("t.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Template{}, mapErr("find template", err)
	}
	return row.toDomain(), nil
}

func (r *TemplateRepository) CreateTemplate(ctx context.Context, t domain.Template) error {
	row := templateRow{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Type:        t.Type,
		Status:      string(t.Status),
		Sections:    t.Sections,
		TenantTag:   t.TenantTag,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if row.Sections == nil {
		row.Sections = []domain.Section{}
	}
	_, err := r.db.NewInsert().Model(&row).Exec(ctx)
	return mapErr("create template", err)
}

// UpdateTemplate applies the patch in one statement whose WHERE clause holds
// the ownership check.
func (r *TemplateRepository) UpdateTemplate(ctx context.Context, id, tenantTag string, patch domain.TemplatePatch, now time.Time) error {
	upd := r.db.NewUpdate().Model((*templateRow)(nil)).Set("updated_at = ?", now)
	if patch.Name != nil {
		upd = upd.Set("name = ?", strings.TrimSpace(*patch.Name))
	}
	if patch.Description != nil {
		upd = upd.Set("description = ?", strings.TrimSpace(*patch.Description))
	}
	if patch.Type != nil {
		upd = upd.Set("type = ?", *patch.Type)
	}
	if patch.Status != nil {
		upd = upd.Set("status = ?", string(*patch.Status))
	}
	if patch.Sections != nil {
		raw, err := json.Marshal(patch.Sections)
		if err != nil {
			return err
		}
		upd = upd.Set("sections = ?::jsonb", string(raw))
	}
	res, err := upd.
		Where("id = ?", id).
		Where("(tenant_tag = ? OR COALESCE(tenant_tag, '') = '')", tenantTag).
		Exec(ctx)
	if err != nil {
		return mapErr("update template", err)
	}
	_, err = affectedOrNotFound("update template", res)
	return err
}

func (r *TemplateRepository) DeleteTemplates(ctx context.Context, ids []string, tenantTag string) (int, error) {
	res, err := r.db.NewDelete().Model((*templateRow)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Where("(tenant_tag = ? OR COALESCE(tenant_tag, '') = '')", tenantTag).
		Exec(ctx)
	if err != nil {
		return 0, mapErr("delete templates", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapErr("delete templates", err)
	}
	return int(n), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
