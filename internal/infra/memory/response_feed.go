package memory

import (
	"context"
	"sync"

	"tenant-quiz-service/internal/domain"
)

const feedBuffer = 16

// ResponseFeed fans recorded responses out to in-process subscribers.
// Slow subscribers drop messages instead of blocking the recorder.
type ResponseFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]feedSubscriber
}

type feedSubscriber struct {
	tenantTag string
	all       bool
	ch        chan domain.Response
}

func NewResponseFeed() *ResponseFeed {
	return &ResponseFeed{subs: make(map[int]feedSubscriber)}
}

func (f *ResponseFeed) PublishResponse(_ context.Context, r domain.Response) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		if !sub.all && sub.tenantTag != r.TenantTag {
			continue
		}
		select {
		case sub.ch <- r:
		default:
		}
	}
	return nil
}

func (f *ResponseFeed) SubscribeResponses(_ context.Context, tenantTag string) (<-chan domain.Response, func(), error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan domain.Response, feedBuffer)
	f.subs[id] = feedSubscriber{tenantTag: tenantTag, all: tenantTag == "", ch: ch}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Subscribers reports the number of live subscriptions.
func (f *ResponseFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
