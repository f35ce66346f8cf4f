package cli

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"tenant-quiz-service/internal/app"
	"tenant-quiz-service/internal/config"
	"tenant-quiz-service/internal/domain"
	"tenant-quiz-service/internal/infra/memory"
	"tenant-quiz-service/internal/infra/postgres"
	infraredis "tenant-quiz-service/internal/infra/redis"
	transport "tenant-quiz-service/internal/transport/http"
)

// runtime is the fully wired service graph for one process.
type runtime struct {
	deps    transport.Deps
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

type stores struct {
	templates app.TemplateRepository
	sets      app.QuestionSetRepository
	responses app.ResponseRepository
	contents  app.ContentDirectory
	tenants   app.TenantDirectory
}

// buildRuntime wires Postgres and Redis when configured and falls back to
// the in-memory stores otherwise.
func buildRuntime(ctx context.Context, cfg config.Config, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{}
	timeout := config.TTLDuration(cfg.Store.Timeout, app.DefaultStoreTimeout)
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var st stores
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		rt.closers = append(rt.closers, func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)

		dir := postgres.NewDirectory(pool)
		st = stores{
			templates: postgres.NewTemplateRepository(db),
			sets:      postgres.NewQuestionSetRepository(db),
			responses: postgres.NewResponseRepository(db),
			contents:  dir,
			tenants:   dir,
		}
		logger.Info("using postgres stores")
	} else {
		dir := memory.NewStaticDirectory(nil, nil)
		st = stores{
			templates: memory.NewTemplateStore(sampleTemplates()...),
			sets:      memory.NewQuestionSetStore(),
			responses: memory.NewResponseStore(),
			contents:  dir,
			tenants:   dir,
		}
		logger.Warn("postgres url not configured, using in-memory stores")
	}

	var (
		reader app.QuestionSetReader
		cache  app.QuestionSetInvalidator
		feed   interface {
			app.ResponsePublisher
			app.ResponseSubscriber
		}
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		redisCache := infraredis.NewQuestionSetCache(client, st.sets, cacheTTL)
		reader, cache = redisCache, redisCache
		feed = infraredis.NewResponseFeed(client)
	} else {
		memCache := memory.NewQuestionSetCache(st.sets, cacheTTL)
		reader, cache = memCache, memCache
		feed = memory.NewResponseFeed()
	}

	responses := app.NewResponseService(st.templates, st.responses, feed, logger, timeout)
	enhancer := app.NewEnhancer(reader, st.contents, st.tenants, logger, cfg.Enhance.Parallelism, timeout)
	rt.deps = transport.Deps{
		Resolver:  app.NewScopeResolver(cfg.Auth.SuperTokens),
		Templates: app.NewTemplateService(st.templates, logger, timeout),
		Questions: app.NewQuestionService(st.templates, st.sets, cache, logger, timeout),
		Responses: responses,
		Reports:   app.NewReportService(responses, enhancer, loc, logger),
		Enhancer:  enhancer,
		Feed:      feed,
		Logger:    logger,
	}
	return rt, nil
}

// sampleTemplates seeds the in-memory backend with one legacy template so a
// fresh dev instance has something to list.
func sampleTemplates() []domain.Template {
	now := time.Now().UTC()
	return []domain.Template{{
		ID:          "welcome",
		Name:        "Welcome",
		Description: "Starter landing page",
		Type:        "landing",
		Status:      domain.StatusPublished,
		Sections: []domain.Section{
			{Kind: domain.SectionText, Value: "Welcome aboard", Order: 1},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}}
}
