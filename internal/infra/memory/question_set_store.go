package memory

import (
	"context"
	"sync"

	"tenant-quiz-service/internal/domain"
)

type setKey struct {
	templateID string
	tenantTag  string
}

// QuestionSetStore keeps at most one question set per (template, tenant),
// the same uniqueness a database index would enforce.
type QuestionSetStore struct {
	mu   sync.RWMutex
	sets map[setKey]domain.QuestionSet
}

func NewQuestionSetStore() *QuestionSetStore {
	return &QuestionSetStore{sets: make(map[setKey]domain.QuestionSet)}
}

// GetQuestionSet returns the set for the pair. With an empty tenantTag the
// most recently updated set of any tenant is returned.
func (s *QuestionSetStore) GetQuestionSet(_ context.Context, templateID, tenantTag string) (domain.QuestionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tenantTag != "" {
		qs, ok := s.sets[setKey{templateID, tenantTag}]
		if !ok {
			return domain.QuestionSet{}, domain.ErrNotFound
		}
		return cloneQuestionSet(qs), nil
	}

	var (
		latest domain.QuestionSet
		found  bool
	)
	for k, qs := range s.sets {
		if k.templateID != templateID {
			continue
		}
		if !found || qs.UpdatedAt.After(latest.UpdatedAt) ||
			(qs.UpdatedAt.Equal(latest.UpdatedAt) && qs.TenantTag < latest.TenantTag) {
			latest, found = qs, true
		}
	}
	if !found {
		return domain.QuestionSet{}, domain.ErrNotFound
	}
	return cloneQuestionSet(latest), nil
}

func (s *QuestionSetStore) InsertQuestionSet(_ context.Context, qs domain.QuestionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := setKey{qs.TemplateID, qs.TenantTag}
	if _, exists := s.sets[k]; exists {
		return domain.ErrConflict
	}
	s.sets[k] = cloneQuestionSet(qs)
	return nil
}

// ReplaceQuestionSet keeps the stored id and creation time.
func (s *QuestionSetStore) ReplaceQuestionSet(_ context.Context, qs domain.QuestionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := setKey{qs.TemplateID, qs.TenantTag}
	current, exists := s.sets[k]
	if !exists {
		return domain.ErrNotFound
	}
	current.Questions = cloneQuestions(qs.Questions)
	current.IsActive = qs.IsActive
	current.CreatedBy = qs.CreatedBy
	current.UpdatedAt = qs.UpdatedAt
	s.sets[k] = current
	return nil
}

func cloneQuestionSet(qs domain.QuestionSet) domain.QuestionSet {
	qs.Questions = cloneQuestions(qs.Questions)
	return qs
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		q.Options = append([]domain.Option(nil), q.Options...)
		out[i] = q
	}
	return out
}
