// cmd/jelita/commands/serve.go
package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"jelita/internal/common/aws"
	"jelita/internal/common/cache"
	"jelita/internal/common/config"
	"jelita/internal/common/httpapi"
	"jelita/internal/common/sideeffect"
	"jelita/internal/services/archive"
	"jelita/internal/services/gateway"
	"jelita/internal/services/registration"
	"jelita/internal/services/survey"
	"jelita/internal/services/users"
	"jelita/internal/services/workflow"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// builder assembles one service. The returned func runs after the server stops.
type builder func(ctx context.Context, in *infra) (http.Handler, func(), error)

var builders = map[string]builder{
	registration.ServiceName: buildRegistration,
	workflow.ServiceName:     buildWorkflow,
	survey.ServiceName:       buildSurvey,
	archive.ServiceName:      buildArchive,
	users.ServiceName:        buildUsers,
	gateway.ServiceName:      buildGateway,
}

func serviceNames() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newServeCmd() *cobra.Command {
	valid := append(serviceNames(), "all")
	return &cobra.Command{
		Use:       "serve <" + strings.Join(valid, "|") + ">",
		Short:     "Run one service, or every service in one process",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			targets := []string{args[0]}
			if args[0] == "all" {
				targets = serviceNames()
			}

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			in := newInfra(cfg)
			defer in.Close()
			return serve(ctx, in, targets)
		},
	}
}

// serve builds every target first so a wiring failure aborts before any port opens.
func serve(ctx context.Context, in *infra, targets []string) error {
	type running struct {
		name    string
		handler http.Handler
		done    func()
	}
	built := make([]running, 0, len(targets))
	for _, name := range targets {
		h, done, err := builders[name](ctx, in)
		if err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
		built = append(built, running{name: name, handler: h, done: done})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		firstErr error
		errOnce  sync.Once
	)
	for _, svc := range built {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := in.log.WithFields(map[string]interface{}{"service": svc.name})
			err := httpapi.Serve(ctx, in.cfg.Server.Addr(svc.name), svc.handler,
				config.GetDuration(in.cfg.Server.ReadTimeout), config.GetDuration(in.cfg.Server.WriteTimeout), log)
			if err != nil {
				errOnce.Do(func() { firstErr = fmt.Errorf("%s: %w", svc.name, err) })
				cancel()
			}
			if svc.done != nil {
				svc.done()
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func listCache(ctx context.Context, in *infra, name string) cache.Cache {
	var rdb redis.Cmdable
	if in.cfg.Cache.Enabled && in.cfg.Cache.Backend == "redis" {
		rc, err := in.redisClient(ctx)
		if err != nil {
			in.log.Warn("redis cache unavailable, using in-process cache", map[string]interface{}{"error": err.Error()})
		} else {
			rdb = rc.Client
		}
	}
	return cache.New(in.cfg.Cache, name, rdb)
}

func buildRegistration(ctx context.Context, in *infra) (http.Handler, func(), error) {
	db, err := in.postgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg := registration.LoadConfig(in.cfg)
	effects := sideeffect.NewDispatcher(in.log, in.obs, cfg.DownstreamTimeout)
	peers := registration.NewHTTPPeers(cfg.SurveyURL, cfg.WorkflowURL, cfg.ArchiveURL, cfg.DownstreamTimeout)
	svc := registration.NewService(cfg, registration.NewPostgresStore(db), listCache(ctx, in, registration.ServiceName), peers, effects, in.obs, in.log)

	r := in.router(registration.ServiceName)
	registration.NewHandler(svc, in.errs).Routes(r, in.mw)
	return r, effects.Wait, nil
}

func buildWorkflow(ctx context.Context, in *infra) (http.Handler, func(), error) {
	db, err := in.postgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg := workflow.LoadConfig(in.cfg)
	effects := sideeffect.NewDispatcher(in.log, in.obs, cfg.DownstreamTimeout)
	peer := workflow.NewHTTPRegistration(cfg.RegistrationURL, cfg.DownstreamTimeout)
	svc := workflow.NewService(cfg, workflow.NewPostgresStore(db), peer, effects, in.obs, in.log)

	r := in.router(workflow.ServiceName)
	workflow.NewHandler(svc, in.errs).Routes(r, in.mw)
	return r, effects.Wait, nil
}

func buildSurvey(ctx context.Context, in *infra) (http.Handler, func(), error) {
	db, err := in.postgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := aws.NewNotifierFromConfig(ctx, in.cfg.Notifications, in.log)
	if err != nil {
		return nil, nil, fmt.Errorf("notification channels: %w", err)
	}
	cfg := survey.LoadConfig(in.cfg)
	effects := sideeffect.NewDispatcher(in.log, in.obs, cfg.DownstreamTimeout)
	peers := survey.NewHTTPPeers(cfg.RegistrationURL, cfg.ArchiveURL, cfg.DownstreamTimeout)
	svc := survey.NewService(cfg, survey.NewPostgresStore(db), peers, notifier, effects, in.obs, in.log)

	r := in.router(survey.ServiceName)
	survey.NewHandler(svc, in.errs).Routes(r, in.mw)
	return r, effects.Wait, nil
}

func buildArchive(ctx context.Context, in *infra) (http.Handler, func(), error) {
	db, err := in.postgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg := archive.LoadConfig(in.cfg)

	// A nil *ElasticIndex must not reach the Index interface.
	var index archive.Index
	es, err := in.elasticsearch()
	switch {
	case err != nil:
		in.log.Warn("archive search disabled", map[string]interface{}{"error": err.Error()})
	case es != nil:
		idx := archive.NewElasticIndex(es.Client, cfg.IndexName)
		if err := es.EnsureIndex(ctx, idx.Name(), idx.Mapping()); err != nil {
			in.log.Warn("archive index not ensured", map[string]interface{}{"index": idx.Name(), "error": err.Error()})
		}
		index = idx
	}

	effects := sideeffect.NewDispatcher(in.log, in.obs, cfg.IndexTimeout)
	svc := archive.NewService(cfg, archive.NewPostgresStore(db), index, effects, in.obs, in.log)

	r := in.router(archive.ServiceName)
	archive.NewHandler(svc, in.errs).Routes(r, in.mw)
	return r, effects.Wait, nil
}

func buildUsers(ctx context.Context, in *infra) (http.Handler, func(), error) {
	db, err := in.postgres(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg := users.LoadConfig(in.cfg)

	var revoked users.Revocations = users.NewMemoryRevocations(0, cfg.TokenTTL)
	if in.cfg.Database.Redis.Address != "" {
		rc, err := in.redisClient(ctx)
		if err != nil {
			in.log.Warn("redis unavailable, token revocations are process-local", map[string]interface{}{"error": err.Error()})
		} else {
			revoked = users.NewRedisRevocations(rc.Client)
		}
	}
	svc := users.NewService(cfg, users.NewPostgresStore(db), in.tokens, revoked, in.log)

	r := in.router(users.ServiceName)
	users.NewHandler(svc, in.errs).Routes(r, in.mw)
	return r, nil, nil
}

func buildGateway(_ context.Context, in *infra) (http.Handler, func(), error) {
	cfg := gateway.LoadConfig(in.cfg)
	effects := sideeffect.NewDispatcher(in.log, in.obs, cfg.DownstreamTimeout)
	oss := gateway.NewHTTPOSS(cfg.OSSBaseURL, cfg.OSSTimeout)
	reg := gateway.NewHTTPRegistration(cfg.RegistrationURL, cfg.DownstreamTimeout)
	svc := gateway.NewService(cfg, oss, reg, effects, gateway.NewAuditLog(cfg.AuditCapacity), in.log)
	limiter := gateway.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.LimiterSize, cfg.LimiterIdle, in.errs, in.log)

	r := in.router(gateway.ServiceName)
	gateway.NewHandler(svc, limiter, in.errs).Routes(r, in.mw)
	return r, effects.Wait, nil
}
