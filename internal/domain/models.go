package domain

import (
	"sort"
	"time"
)

// TemplateStatus is the publication state of a template.
type TemplateStatus string

const (
	StatusDraft     TemplateStatus = "draft"
	StatusPublished TemplateStatus = "published"
	StatusArchived  TemplateStatus = "archived"
)

// Valid reports whether the status is one of the known states.
func (s TemplateStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// SectionKind is the type of a content section inside a template.
type SectionKind string

const (
	SectionImage SectionKind = "image"
	SectionText  SectionKind = "text"
	SectionVideo SectionKind = "video"
	SectionLink  SectionKind = "link"
)

func (k SectionKind) Valid() bool {
	switch k {
	case SectionImage, SectionText, SectionVideo, SectionLink:
		return true
	}
	return false
}

// Section is one ordered block of template content.
type Section struct {
	Kind  SectionKind `json:"kind"`
	Value string      `json:"value"`
	Order int         `json:"order"`
}

// Template is a reusable landing page definition. A nil TenantTag marks a
// legacy template that every tenant can read.
type Template struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Status      TemplateStatus `json:"status"`
	Sections    []Section      `json:"sections"`
	TenantTag   *string        `json:"tenantTag"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// IsLegacy reports whether the template predates tenant tagging.
func (t Template) IsLegacy() bool {
	return t.TenantTag == nil || *t.TenantTag == ""
}

// SortSections orders sections by their Order field, keeping input order on ties.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})
}

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	Type   string
	Status TemplateStatus
	Search string
}

// TemplateInput carries the fields accepted when creating a template.
type TemplateInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Status      TemplateStatus `json:"status"`
	Sections    []Section      `json:"sections"`
}

// TemplatePatch carries optional template updates; nil fields are left alone.
type TemplatePatch struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Type        *string         `json:"type"`
	Status      *TemplateStatus `json:"status"`
	Sections    []Section       `json:"sections"`
}

// Option represents a possible answer for a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Text     string   `json:"text"`
	Options  []Option `json:"options"`
	Required bool     `json:"required"`
	Order    int      `json:"order"`
}

// QuestionSet is the quiz attached to one template for one tenant.
type QuestionSet struct {
	ID         string     `json:"id"`
	TemplateID string     `json:"templateId"`
	TenantTag  string     `json:"tenantTag"`
	Questions  []Question `json:"questions"`
	IsActive   bool       `json:"isActive"`
	CreatedBy  string     `json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// UserInfo is the identity a visitor typed into the quiz gate.
type UserInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// Answer is one submitted answer. QuestionText and IsCorrect are filled in at
// read time unless the submitter already provided them.
type Answer struct {
	QuestionText   string `json:"questionText,omitempty"`
	SelectedOption string `json:"selectedOption"`
	IsCorrect      *bool  `json:"isCorrect,omitempty"`
}

// Response is an immutable visitor submission.
type Response struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"templateId"`
	UserID     string    `json:"userId,omitempty"`
	UserInfo   UserInfo  `json:"userInfo"`
	Answers    []Answer  `json:"answers"`
	Score      float64   `json:"score"`
	Completed  bool      `json:"completed"`
	TenantTag  string    `json:"tenantTag"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ResponseFilter narrows response listings. A zero TemplateID lists every template.
type ResponseFilter struct {
	TemplateID string
	TenantTag  string
	AllTenants bool
	Limit      int
	Offset     int
}

// ContentInstance is a landing page built from a template. Owned by the content store.
type ContentInstance struct {
	ID              string `json:"id"`
	TemplateID      string `json:"templateId"`
	TenantTag       string `json:"tenantTag"`
	Heading         string `json:"heading"`
	Subheading      string `json:"subheading"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// TenantEntry maps a tenant token to a readable name.
type TenantEntry struct {
	Token      string `json:"token"`
	TenantName string `json:"tenantName"`
}

// ScoreStats summarises how a response scored against its question set.
type ScoreStats struct {
	CorrectCount    int     `json:"correctCount"`
	TotalQuestions  int     `json:"totalQuestions"`
	ScorePercentage float64 `json:"scorePercentage"`
}

// ContentInfo is the page context attached to an enhanced response.
type ContentInfo struct {
	ID         string `json:"id"`
	Heading    string `json:"heading"`
	Subheading string `json:"subheading"`
}

// EnhancedResponse is a response joined with scoring and page context.
// Enhanced is false when enhancement failed and the raw record was kept.
type EnhancedResponse struct {
	Response
	Stats       *ScoreStats  `json:"stats"`
	ContentInfo *ContentInfo `json:"contentInfo"`
	TenantName  string       `json:"tenantName"`
	Enhanced    bool         `json:"enhanced"`
}

// DailyCount is one bucket of the trailing daily histogram.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Report is the aggregate view over a set of enhanced responses.
type Report struct {
	TotalResponses int           `json:"totalResponses"`
	TotalUsers     int           `json:"totalUsers"`
	AverageScore   float64       `json:"averageScore"`
	CompletionRate float64       `json:"completionRate"`
	Daily          []DailyCount  `json:"daily"`
	Tenants        []string      `json:"tenants"`
	Contents       []ContentInfo `json:"contents"`
}

// TenantQuery selects the templates a tenant may read: its own, plus legacy
// templates when IncludeLegacy is set. PublishedOnly restricts visitor reads.
type TenantQuery struct {
	TenantTag     string
	IncludeLegacy bool
	PublishedOnly bool
}

// Matches applies the query to a single template.
func (q TenantQuery) Matches(t Template) bool {
	if q.PublishedOnly && t.Status != StatusPublished {
		return false
	}
	if t.IsLegacy() {
		return q.IncludeLegacy
	}
	return *t.TenantTag == q.TenantTag
}

// Tag returns a tenant tag pointer, or nil for the empty (legacy) tag.
func Tag(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
