package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
)

// WSHandler streams newly recorded responses, enhanced, to admin clients.
type WSHandler struct {
	feed     app.ResponseSubscriber
	enhancer *app.Enhancer
	resolver *app.ScopeResolver
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(feed app.ResponseSubscriber, enhancer *app.Enhancer, resolver *app.ScopeResolver, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		feed:     feed,
		enhancer: enhancer,
		resolver: resolver,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type subscribedPayload struct {
	TenantTag  string `json:"tenantTag"`
	AllTenants bool   `json:"allTenants"`
}

// ServeWS authorizes the caller, subscribes to the live feed and then
// upgrades. The subscription is live before the "subscribed" message is sent.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	scope, err := h.resolver.Resolve(credentials(r))
	if err != nil || !scope.Admin {
		http.Error(w, "admin token required", http.StatusUnauthorized)
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("allTenants"))
	all = all && scope.AllTenants

	tenantTag := scope.TenantTag
	if all {
		tenantTag = ""
	}
	updates, cancel, err := h.feed.SubscribeResponses(r.Context(), tenantTag)
	if err != nil {
		h.logger.Warn("live feed subscribe failed", zap.Error(err))
		http.Error(w, "live feed unavailable", http.StatusServiceUnavailable)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", zap.Error(err))
				return
			}
		}
	}()

	opts := app.EnhanceOptions{TenantTag: scope.TenantTag, AllTenants: all}
	go func() {
		defer close(updatesDone)
		for {
			select {
			case resp, ok := <-updates:
				if !ok {
					return
				}
				enhanced := h.enhancer.Enhance(r.Context(), []domain.Response{resp}, opts)
				select {
				case send <- outboundMessage[any]{Type: "response", Payload: enhanced[0]}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "subscribed", Payload: subscribedPayload{TenantTag: scope.TenantTag, AllTenants: all}}

	// The feed is one-way; reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
