package memory

import (
	"context"
	"sort"
	"sync"

	"tenant-quiz-service/internal/domain"
)

// ResponseStore is an append-only in-memory response log.
type ResponseStore struct {
	mu        sync.RWMutex
	responses []domain.Response
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{}
}

func (s *ResponseStore) InsertResponse(_ context.Context, r domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.responses {
		if existing.ID == r.ID {
			return domain.ErrConflict
		}
	}
	r.Answers = cloneAnswers(r.Answers)
	s.responses = append(s.responses, r)
	return nil
}

func (s *ResponseStore) ListResponses(_ context.Context, filter domain.ResponseFilter) ([]domain.Response, error) {
	s.mu.RLock()
	matched := make([]domain.Response, 0, len(s.responses))
	for i := len(s.responses) - 1; i >= 0; i-- {
		r := s.responses[i]
		if filter.TemplateID != "" && r.TemplateID != filter.TemplateID {
			continue
		}
		if !filter.AllTenants && r.TenantTag != filter.TenantTag {
			continue
		}
		r.Answers = cloneAnswers(r.Answers)
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Response{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func cloneAnswers(in []domain.Answer) []domain.Answer {
	out := make([]domain.Answer, len(in))
	for i, a := range in {
		if a.IsCorrect != nil {
			v := *a.IsCorrect
			a.IsCorrect = &v
		}
		out[i] = a
	}
	return out
}
