package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
)

const (
	headerTenantToken = "tenantToken"
	headerAdminToken  = "adminToken"
	headerUserToken   = "userToken"
)

// Deps are the use cases exposed over HTTP.
type Deps struct {
	Resolver  *app.ScopeResolver
	Templates *app.TemplateService
	Questions *app.QuestionService
	Responses *app.ResponseService
	Reports   *app.ReportService
	Enhancer  *app.Enhancer
	Feed      app.ResponseSubscriber
	Logger    *zap.Logger
}

// Handler adapts gin requests to the app layer.
type Handler struct {
	Deps
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Handler{Deps: deps}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		templates := api.Group("/templates")
		{
			templates.GET("", h.listTemplates)
			templates.POST("", h.createTemplate)
			templates.DELETE("", h.deleteTemplates)
			templates.GET("/:id", h.getTemplate)
			templates.PUT("/:id", h.updateTemplate)
			templates.GET("/:id/questions", h.getQuestions)
			templates.PUT("/:id/questions", h.upsertQuestions)
			templates.POST("/:id/responses", h.recordResponse)
		}
		api.GET("/responses", h.listResponses)
		api.GET("/reports", h.buildReport)
	}

	if deps.Feed != nil {
		ws := NewWSHandler(deps.Feed, deps.Enhancer, deps.Resolver, deps.Logger)
		router.GET("/ws/responses", gin.WrapF(ws.ServeWS))
	}
	return router
}

// credentials reads tokens from headers, falling back to query parameters
// for clients such as browsers opening a websocket.
func credentials(r *http.Request) app.Credentials {
	get := func(name string) string {
		if v := r.Header.Get(name); v != "" {
			return v
		}
		return r.URL.Query().Get(name)
	}
	admin := get(headerTenantToken)
	if admin == "" {
		admin = get(headerAdminToken)
	}
	return app.Credentials{AdminToken: admin, UserToken: get(headerUserToken)}
}

func (h *Handler) scope(c *gin.Context) (app.Scope, bool) {
	scope, err := h.Resolver.Resolve(credentials(c.Request))
	if err != nil {
		h.writeError(c, err)
		return app.Scope{}, false
	}
	return scope, true
}

type errorBody struct {
	Error      string             `json:"error"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Error = domain.ErrValidation.Error()
		body.Violations = verr.Violations
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		body.Error = "internal error"
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, field string, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
		Error: domain.ErrValidation.Error(),
		Violations: []domain.Violation{{
			Field:         field,
			Message:       err.Error(),
			QuestionIndex: -1,
			OptionIndex:   -1,
		}},
	})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
