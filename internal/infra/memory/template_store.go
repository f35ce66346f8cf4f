package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tenant-quiz-service/internal/domain"
)

// TemplateStore is an in-memory implementation of app.TemplateRepository.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]domain.Template
}

func NewTemplateStore(seed ...domain.Template) *TemplateStore {
	s := &TemplateStore{templates: make(map[string]domain.Template, len(seed))}
	for _, t := range seed {
		s.templates[t.ID] = cloneTemplate(t)
	}
	return s
}

func (s *TemplateStore) ListTemplates(_ context.Context, filter domain.TemplateFilter, q domain.TenantQuery) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	out := make([]domain.Template, 0, len(s.templates))
	for _, t := range s.templates {
		if !q.Matches(t) {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, cloneTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *TemplateStore) GetTemplate(_ context.Context, id string, q domain.TenantQuery) (domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok || !q.Matches(t) {
		return domain.Template{}, domain.ErrNotFound
	}
	return cloneTemplate(t), nil
}

func (s *TemplateStore) FindTemplate(_ context.Context, id string) (domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return domain.Template{}, domain.ErrNotFound
	}
	return cloneTemplate(t), nil
}

func (s *TemplateStore) CreateTemplate(_ context.Context, t domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.templates[t.ID]; exists {
		return domain.ErrConflict
	}
	s.templates[t.ID] = cloneTemplate(t)
	return nil
}

// UpdateTemplate checks ownership and writes under the same lock.
func (s *TemplateStore) UpdateTemplate(_ context.Context, id, tenantTag string, patch domain.TemplatePatch, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok || !writable(t, tenantTag) {
		return domain.ErrNotFound
	}
	if patch.Name != nil {
		t.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Sections != nil {
		t.Sections = append([]domain.Section(nil), patch.Sections...)
	}
	t.UpdatedAt = now
	s.templates[id] = t
	return nil
}

func (s *TemplateStore) DeleteTemplates(_ context.Context, ids []string, tenantTag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		t, ok := s.templates[id]
		if !ok || !writable(t, tenantTag) {
			continue
		}
		delete(s.templates, id)
		n++
	}
	return n, nil
}

func writable(t domain.Template, tenantTag string) bool {
	return t.IsLegacy() || *t.TenantTag == tenantTag
}

func cloneTemplate(t domain.Template) domain.Template {
	t.Sections = append([]domain.Section(nil), t.Sections...)
	if t.TenantTag != nil {
		t.TenantTag = domain.Tag(*t.TenantTag)
	}
	return t
}
