package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"tenant-quiz-service/internal/domain"
)

const (
	feedPrefix = "responses:"
	feedBuffer = 16
)

// ResponseFeed publishes recorded responses on a per-tenant Redis channel so
// every instance can stream them to its websocket clients.
type ResponseFeed struct {
	client *redis.Client
}

func NewResponseFeed(client *redis.Client) *ResponseFeed {
	return &ResponseFeed{client: client}
}

func (f *ResponseFeed) PublishResponse(ctx context.Context, r domain.Response) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return f.client.Publish(ctx, channelFor(r.TenantTag), payload).Err()
}

// SubscribeResponses returns once Redis has confirmed the subscription.
func (f *ResponseFeed) SubscribeResponses(ctx context.Context, tenantTag string) (<-chan domain.Response, func(), error) {
	var pubsub *redis.PubSub
	if tenantTag == "" {
		pubsub = f.client.PSubscribe(ctx, feedPrefix+"*")
	} else {
		pubsub = f.client.Subscribe(ctx, channelFor(tenantTag))
	}
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe responses: %w", err)
	}

	out := make(chan domain.Response, feedBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		messages := pubsub.Channel()
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var r domain.Response
				if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
					continue
				}
				select {
				case out <- r:
				case <-done:
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

func channelFor(tenantTag string) string {
	return feedPrefix + tenantTag
}
