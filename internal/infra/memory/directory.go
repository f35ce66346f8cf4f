package memory

import (
	"context"

	"tenant-quiz-service/internal/domain"
)

// StaticDirectory serves content instances and tenant names from fixed data
// (useful for tests/demos).
type StaticDirectory struct {
	contents []domain.ContentInstance
	tenants  map[string]string
}

func NewStaticDirectory(contents []domain.ContentInstance, tenants []domain.TenantEntry) *StaticDirectory {
	names := make(map[string]string, len(tenants))
	for _, t := range tenants {
		names[t.Token] = t.TenantName
	}
	return &StaticDirectory{
		contents: append([]domain.ContentInstance(nil), contents...),
		tenants:  names,
	}
}

func (d *StaticDirectory) ContentsForTemplates(_ context.Context, templateIDs []string) ([]domain.ContentInstance, error) {
	wanted := make(map[string]struct{}, len(templateIDs))
	for _, id := range templateIDs {
		wanted[id] = struct{}{}
	}
	out := make([]domain.ContentInstance, 0)
	for _, c := range d.contents {
		if _, ok := wanted[c.TemplateID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *StaticDirectory) TenantNames(_ context.Context, tokens []string) (map[string]string, error) {
	out := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		if name, ok := d.tenants[tok]; ok {
			out[tok] = name
		}
	}
	return out, nil
}
