package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/metrics"
)

// QuestionSetCache caches question sets in process with TTL to avoid
// repeated store hits while building report pages.
type QuestionSetCache struct {
	source app.QuestionSetReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[setKey]cachedSet
	// gens is bumped on invalidation; a fill only stores its result when the
	// generation it started under is still current.
	gens map[setKey]uint64
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionSetCache(source app.QuestionSetReader, ttl time.Duration) *QuestionSetCache {
	return &QuestionSetCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[setKey]cachedSet),
		gens:   make(map[setKey]uint64),
	}
}

func (c *QuestionSetCache) GetQuestionSet(ctx context.Context, templateID, tenantTag string) (domain.QuestionSet, error) {
	k := setKey{templateID, tenantTag}
	if qs, ok := c.lookup(k); ok {
		metrics.QuestionSetCacheLookups.WithLabelValues("hit").Inc()
		return qs, nil
	}
	metrics.QuestionSetCacheLookups.WithLabelValues("miss").Inc()

	result, err, _ := c.sf.Do(flightKey(k), func() (interface{}, error) {
		if qs, ok := c.lookup(k); ok {
			return qs, nil
		}
		c.mu.RLock()
		gen := c.gens[k]
		c.mu.RUnlock()

		qs, err := c.source.GetQuestionSet(ctx, templateID, tenantTag)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		c.mu.Lock()
		if c.gens[k] == gen {
			c.cache[k] = cachedSet{set: cloneQuestionSet(qs), expiresAt: c.clock().Add(c.ttlWithJitter())}
		}
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return cloneQuestionSet(result.(domain.QuestionSet)), nil
}

// InvalidateQuestionSet drops the tenant entry and the any-tenant entry.
// Fills already in flight for either key are not stored.
func (c *QuestionSetCache) InvalidateQuestionSet(_ context.Context, templateID, tenantTag string) error {
	keys := []setKey{{templateID, tenantTag}, {templateID, ""}}
	c.mu.Lock()
	for _, k := range keys {
		c.gens[k]++
		delete(c.cache, k)
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.sf.Forget(flightKey(k))
	}
	return nil
}

func flightKey(k setKey) string {
	return k.templateID + "\x00" + k.tenantTag
}

func (c *QuestionSetCache) lookup(k setKey) (domain.QuestionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[k]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuestionSet{}, false
	}
	return cloneQuestionSet(entry.set), true
}

func (c *QuestionSetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
