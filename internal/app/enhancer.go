package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/metrics"
)

const (
	defaultEnhanceParallelism = 8
	unknownTenantName         = "Unknown"
)

// EnhanceOptions selects which tenant's question sets score the batch.
type EnhanceOptions struct {
	TenantTag  string
	AllTenants bool
}

// Enhancer joins raw responses with their question sets, content instances
// and tenant names. It never fails a batch: lookups that break degrade the
// affected records only.
type Enhancer struct {
	questions   QuestionSetReader
	contents    ContentDirectory
	tenants     TenantDirectory
	logger      *zap.Logger
	parallelism int
	timeout     time.Duration
}

// NewEnhancer wires the lookups. contents and tenants may be nil.
func NewEnhancer(questions QuestionSetReader, contents ContentDirectory, tenants TenantDirectory, logger *zap.Logger, parallelism int, timeout time.Duration) *Enhancer {
	if parallelism <= 0 {
		parallelism = defaultEnhanceParallelism
	}
	return &Enhancer{
		questions:   questions,
		contents:    contents,
		tenants:     tenants,
		logger:      nopIfNil(logger),
		parallelism: parallelism,
		timeout:     timeout,
	}
}

type questionLookup struct {
	set *domain.QuestionSet
	err error
}

// Enhance returns one enhanced record per input, in input order.
func (e *Enhancer) Enhance(ctx context.Context, raw []domain.Response, opts EnhanceOptions) []domain.EnhancedResponse {
	if len(raw) == 0 {
		return []domain.EnhancedResponse{}
	}
	start := time.Now()
	defer func() { metrics.EnhanceBatchDuration.Observe(time.Since(start).Seconds()) }()

	templateIDs := distinct(raw, func(r domain.Response) string { return r.TemplateID })
	tokens := distinct(raw, func(r domain.Response) string { return r.TenantTag })

	tenantTag := opts.TenantTag
	if opts.AllTenants {
		tenantTag = ""
	}
	sets := e.lookupQuestionSets(ctx, templateIDs, tenantTag)
	contents := e.contentByTemplate(ctx, templateIDs)
	names := e.tenantNames(ctx, tokens)

	out := make([]domain.EnhancedResponse, len(raw))
	for i, r := range raw {
		lookup := sets[r.TemplateID]
		if lookup.err != nil {
			metrics.EnhancementFallbacks.WithLabelValues("question_set").Inc()
			e.logger.Warn("response enhancement failed, returning raw record",
				zap.String("responseId", r.ID),
				zap.String("templateId", r.TemplateID),
				zap.Error(lookup.err))
			out[i] = domain.EnhancedResponse{Response: r}
			continue
		}
		out[i] = enhanceOne(r, lookup.set, contents, names)
	}
	return out
}

func enhanceOne(r domain.Response, set *domain.QuestionSet, contents map[string]domain.ContentInstance, names map[string]string) domain.EnhancedResponse {
	enhanced := domain.EnhancedResponse{Response: r, Enhanced: true, TenantName: unknownTenantName}
	if set == nil {
		enhanced.Answers = append(make([]domain.Answer, 0, len(r.Answers)), r.Answers...)
		enhanced.Stats = &domain.ScoreStats{TotalQuestions: len(r.Answers)}
	} else {
		answers, stats := ScoreAnswers(set.Questions, r.Answers)
		enhanced.Answers = answers
		enhanced.Stats = &stats
		enhanced.Score = stats.ScorePercentage
	}
	if c, ok := contents[r.TemplateID]; ok {
		enhanced.ContentInfo = &domain.ContentInfo{ID: c.ID, Heading: c.Heading, Subheading: c.Subheading}
	}
	if name, ok := names[r.TenantTag]; ok && name != "" {
		enhanced.TenantName = name
	}
	return enhanced
}

// lookupQuestionSets resolves each template's question set concurrently with
// bounded parallelism. A missing set is not an error; other failures are kept
// per template so only its records degrade.
func (e *Enhancer) lookupQuestionSets(ctx context.Context, templateIDs []string, tenantTag string) map[string]questionLookup {
	var (
		mu  sync.Mutex
		g   errgroup.Group
		out = make(map[string]questionLookup, len(templateIDs))
	)
	g.SetLimit(e.parallelism)
	for _, id := range templateIDs {
		id := id
		g.Go(func() error {
			lctx, cancel := storeContext(ctx, e.timeout)
			defer cancel()

			var res questionLookup
			qs, err := e.questions.GetQuestionSet(lctx, id, tenantTag)
			switch {
			case err == nil:
				res.set = &qs
			case errors.Is(err, domain.ErrNotFound):
			default:
				res.err = classifyStoreErr(err)
			}

			mu.Lock()
			out[id] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// contentByTemplate keeps the first content instance found per template.
func (e *Enhancer) contentByTemplate(ctx context.Context, templateIDs []string) map[string]domain.ContentInstance {
	out := make(map[string]domain.ContentInstance)
	if e.contents == nil {
		return out
	}
	lctx, cancel := storeContext(ctx, e.timeout)
	defer cancel()

	instances, err := e.contents.ContentsForTemplates(lctx, templateIDs)
	if err != nil {
		e.enrichmentFailed("content", err)
		return out
	}
	for _, c := range instances {
		if _, seen := out[c.TemplateID]; !seen {
			out[c.TemplateID] = c
		}
	}
	return out
}

func (e *Enhancer) tenantNames(ctx context.Context, tokens []string) map[string]string {
	if e.tenants == nil || len(tokens) == 0 {
		return map[string]string{}
	}
	lctx, cancel := storeContext(ctx, e.timeout)
	defer cancel()

	names, err := e.tenants.TenantNames(lctx, tokens)
	if err != nil {
		e.enrichmentFailed("tenant", err)
		return map[string]string{}
	}
	return names
}

func (e *Enhancer) enrichmentFailed(lookup string, err error) {
	metrics.EnhancementFallbacks.WithLabelValues(lookup).Inc()
	e.logger.Warn("enrichment lookup failed",
		zap.String("lookup", lookup),
		zap.Error(fmt.Errorf("%w: %v", domain.ErrEnrichment, err)))
}

func distinct(responses []domain.Response, key func(domain.Response) string) []string {
	seen := make(map[string]struct{}, len(responses))
	out := make([]string, 0, len(responses))
	for _, r := range responses {
		k := key(r)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
