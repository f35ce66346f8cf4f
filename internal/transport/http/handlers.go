package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/domain"
)

func (h *Handler) listTemplates(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	filter := domain.TemplateFilter{
		Type:   c.Query("type"),
		Status: domain.TemplateStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	templates, err := h.Templates.List(c.Request.Context(), filter, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *Handler) createTemplate(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var in domain.TemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", err)
		return
	}
	tpl, err := h.Templates.Create(c.Request.Context(), in, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) getTemplate(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	tpl, err := h.Templates.Get(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *Handler) updateTemplate(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var patch domain.TemplatePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "body", err)
		return
	}
	tpl, err := h.Templates.Update(c.Request.Context(), c.Param("id"), patch, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

type deleteTemplatesBody struct {
	IDs []string `json:"ids"`
}

func (h *Handler) deleteTemplates(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var body deleteTemplatesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", err)
		return
	}
	n, err := h.Templates.DeleteMany(c.Request.Context(), body.IDs, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) getQuestions(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	qs, err := h.Questions.GetByTemplate(c.Request.Context(), c.Param("id"), scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

func (h *Handler) upsertQuestions(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	var in app.QuestionSetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "body", err)
		return
	}
	qs, err := h.Questions.Upsert(c.Request.Context(), c.Param("id"), scope, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}

// recordBody mirrors the submission form; the password travels in on the
// wire even though domain.UserInfo never serializes it back out.
type recordBody struct {
	UserID   string `json:"userId"`
	UserInfo struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"userInfo"`
	Answers   []domain.Answer `json:"answers"`
	Completed *bool           `json:"completed"`
}

func (h *Handler) recordResponse(c *gin.Context) {
	var body recordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", err)
		return
	}
	scope := h.Resolver.Optional(credentials(c.Request))
	resp, err := h.Responses.Record(c.Request.Context(), app.RecordRequest{
		TemplateID: c.Param("id"),
		UserID:     body.UserID,
		UserInfo: domain.UserInfo{
			Name:     body.UserInfo.Name,
			Email:    body.UserInfo.Email,
			Password: body.UserInfo.Password,
		},
		Answers:   body.Answers,
		Completed: body.Completed,
	}, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func responseFilter(c *gin.Context) (domain.ResponseFilter, bool) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, "limit", err)
		return domain.ResponseFilter{}, false
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		badRequest(c, "offset", err)
		return domain.ResponseFilter{}, false
	}
	all, _ := strconv.ParseBool(c.Query("allTenants"))
	return domain.ResponseFilter{
		TemplateID: c.Query("templateId"),
		AllTenants: all,
		Limit:      limit,
		Offset:     offset,
	}, true
}

func (h *Handler) listResponses(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	filter, ok := responseFilter(c)
	if !ok {
		return
	}
	enhanced, err := h.Reports.EnhancedResponses(c.Request.Context(), filter, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, enhanced)
}

func (h *Handler) buildReport(c *gin.Context) {
	scope, ok := h.scope(c)
	if !ok {
		return
	}
	filter, ok := responseFilter(c)
	if !ok {
		return
	}
	report, err := h.Reports.Build(c.Request.Context(), filter, scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
