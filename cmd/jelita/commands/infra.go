// cmd/jelita/commands/infra.go
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"jelita/internal/common/auth"
	"jelita/internal/common/config"
	"jelita/internal/common/database"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/httpapi"
	"jelita/internal/common/logger"
	"jelita/internal/common/observability"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// infra owns the process-wide clients. Connections are opened on first use so
// `serve gateway` never dials Postgres.
type infra struct {
	cfg    *config.Config
	zap    *zap.Logger
	log    logger.Logger
	obs    *observability.Observability
	errs   *apperrors.ErrorHandler
	tokens *auth.TokenManager
	mw     *auth.Middleware

	mu    sync.Mutex
	pg    *database.PostgresClient
	redis *database.RedisClient
	es    *database.ElasticsearchClient
}

func newInfra(cfg *config.Config) *infra {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.NewZapAdapter(zapLog)
	errs := apperrors.NewErrorHandler(log, !cfg.App.IsProduction())
	tokens := auth.NewTokenManager(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, config.GetDuration(cfg.Auth.JWT.TTL))
	return &infra{
		cfg:    cfg,
		zap:    zapLog,
		log:    log,
		obs:    observability.New(cfg.App.Name, cfg.Observability.JaegerEndpoint, cfg.Observability.SampleRatio, log),
		errs:   errs,
		tokens: tokens,
		mw:     auth.NewMiddleware(tokens, errs),
	}
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func (in *infra) postgres(ctx context.Context) (*sql.DB, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pg != nil {
		return in.pg.DB, nil
	}

	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(in.cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 8, time.Second, in.zap, "PostgreSQL connection")
	if err != nil {
		return nil, err
	}
	in.zap.Info("PostgreSQL connected successfully")
	in.pg = pg
	return pg.DB, nil
}

func (in *infra) redisClient(ctx context.Context) (*database.RedisClient, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.redis != nil {
		return in.redis, nil
	}

	rdb := database.NewRedis(in.cfg.Database.Redis)
	err := retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 5, time.Second, in.zap, "Redis connection")
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	in.zap.Info("Redis connected successfully")
	in.redis = rdb
	return rdb, nil
}

// elasticsearch returns nil when search is disabled in configuration.
func (in *infra) elasticsearch() (*database.ElasticsearchClient, error) {
	if !in.cfg.Database.Elasticsearch.Enabled {
		return nil, nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.es != nil {
		return in.es, nil
	}

	var es *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(in.cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 5, time.Second, in.zap, "Elasticsearch connection")
	if err != nil {
		return nil, err
	}
	in.zap.Info("Elasticsearch connected successfully")
	in.es = es
	return es, nil
}

func (in *infra) router(service string) *mux.Router {
	log := in.log.WithFields(map[string]interface{}{"service": service})
	return httpapi.NewRouter(service, log, in.errs, in.obs.Tracer())
}

func (in *infra) Close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pg != nil {
		_ = in.pg.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	in.obs.Shutdown()
	_ = in.zap.Sync()
}
