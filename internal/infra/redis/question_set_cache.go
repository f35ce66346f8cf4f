package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/metrics"
)

// QuestionSetCache caches question sets in Redis as JSON and falls back to
// the source store on a miss. Keys:
//
//	questionset:{templateID}:tenant:{tenantTag}
//	questionset:{templateID}:any
//
// Missing sets are not cached, so a newly authored set is visible at once.
// Each key has a "{key}:version" counter bumped on invalidation; a fill only
// writes when the version it read before loading is still current.
type QuestionSetCache struct {
	client *redis.Client
	source app.QuestionSetReader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

// setIfVersion stores ARGV[2] at KEYS[1] when KEYS[2] still holds ARGV[1].
// ARGV[3] is the TTL in milliseconds, 0 for none.
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

func NewQuestionSetCache(client *redis.Client, source app.QuestionSetReader, ttl time.Duration) *QuestionSetCache {
	return &QuestionSetCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionSetCache) GetQuestionSet(ctx context.Context, templateID, tenantTag string) (domain.QuestionSet, error) {
	key := c.key(templateID, tenantTag)
	if qs, ok := c.cached(ctx, key); ok {
		metrics.QuestionSetCacheLookups.WithLabelValues("hit").Inc()
		return qs, nil
	}
	metrics.QuestionSetCacheLookups.WithLabelValues("miss").Inc()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another instance filled it.
		if qs, ok := c.cached(ctx, key); ok {
			return qs, nil
		}
		version, verErr := c.version(ctx, key)
		qs, err := c.source.GetQuestionSet(ctx, templateID, tenantTag)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		if verErr != nil {
			return qs, nil
		}
		if raw, err := json.Marshal(qs); err == nil {
			ttl := c.ttlWithJitter().Milliseconds()
			_ = setIfVersion.Run(ctx, c.client, []string{key, versionKey(key)}, version, raw, ttl).Err()
		}
		return qs, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// InvalidateQuestionSet drops the tenant key and the any-tenant key and bumps
// their versions so fills already in flight are not stored.
func (c *QuestionSetCache) InvalidateQuestionSet(ctx context.Context, templateID, tenantTag string) error {
	keys := []string{c.key(templateID, tenantTag), c.key(templateID, "")}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, versionKey(k))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	for _, k := range keys {
		c.sf.Forget(k)
	}
	return err
}

// version returns the key's current version, "0" when it was never invalidated.
func (c *QuestionSetCache) version(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, versionKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func versionKey(key string) string {
	return key + ":version"
}

// cached treats Redis failures as misses; the source store stays authoritative.
func (c *QuestionSetCache) cached(ctx context.Context, key string) (domain.QuestionSet, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var qs domain.QuestionSet
	if err := json.Unmarshal(raw, &qs); err != nil {
		return domain.QuestionSet{}, false
	}
	return qs, true
}

func (c *QuestionSetCache) key(templateID, tenantTag string) string {
	if tenantTag == "" {
		return "questionset:" + templateID + ":any"
	}
	return "questionset:" + templateID + ":tenant:" + tenantTag
}

func (c *QuestionSetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
