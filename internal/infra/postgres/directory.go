package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"

	"tenant-quiz-service/internal/domain"
)

// Querier is the read surface of *pgxpool.Pool used by Directory.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Directory reads content instances and tenant names owned by neighbouring
// services. It never writes.
type Directory struct {
	pool Querier
}

func NewDirectory(pool Querier) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) ContentsForTemplates(ctx context.Context, templateIDs []string) ([]domain.ContentInstance, error) {
	out := make([]domain.ContentInstance, 0)
	if len(templateIDs) == 0 {
		return out, nil
	}
	rows, err := d.pool.Query(ctx,
		`SELECT id, template_id, tenant_tag, heading, subheading, background_color
		   FROM content_instances
		  WHERE template_id = ANY($1)
		  ORDER BY created_at, id`, templateIDs)
	if err != nil {
		return nil, fmt.Errorf("load content instances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.ContentInstance
		if err := rows.Scan(&c.ID, &c.TemplateID, &c.TenantTag, &c.Heading, &c.Subheading, &c.BackgroundColor); err != nil {
			return nil, fmt.Errorf("scan content instance: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load content instances: %w", err)
	}
	return out, nil
}

func (d *Directory) TenantNames(ctx context.Context, tokens []string) (map[string]string, error) {
	out := make(map[string]string, len(tokens))
	if len(tokens) == 0 {
		return out, nil
	}
	rows, err := d.pool.Query(ctx, `SELECT token, tenant_name FROM tenants WHERE token = ANY($1)`, tokens)
	if err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var token, name string
		if err := rows.Scan(&token, &name); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out[token] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tenants: %w", err)
	}
	return out, nil
}
