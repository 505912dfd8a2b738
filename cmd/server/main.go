// Command server runs the roster API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"roster/internal/audit"
	branchhandler "roster/internal/branch/handler"
	branchservice "roster/internal/branch/service"
	branchstore "roster/internal/branch/store"
	identityhandler "roster/internal/identity/handler"
	identitymodels "roster/internal/identity/models"
	identityservice "roster/internal/identity/service"
	"roster/internal/identity/query"
	"roster/internal/identity/store/refreshtoken"
	"roster/internal/identity/store/revocation"
	userstore "roster/internal/identity/store/user"
	"roster/internal/platform/config"
	"roster/internal/platform/database"
	"roster/internal/platform/health"
	"roster/internal/platform/httpserver"
	"roster/internal/platform/kafka/producer"
	"roster/internal/platform/logger"
	"roster/internal/platform/metrics"
	"roster/internal/platform/objectstore"
	"roster/internal/platform/redis"
	"roster/internal/platform/tracing"
	profilehandler "roster/internal/profile/handler"
	profilemodels "roster/internal/profile/models"
	profileservice "roster/internal/profile/service"
	profilestore "roster/internal/profile/store"
	rolehandler "roster/internal/role/handler"
	roleservice "roster/internal/role/service"
	rolestore "roster/internal/role/store"
	"roster/internal/seeder"
	"roster/internal/token"
	transport "roster/internal/transport/http"
	id "roster/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database. An empty URL means the in-memory stores back everything:
	// useful for local development and demos.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck

	redisClient, err := redis.New(config.DefaultRedisConfig(cfg.RedisURL))
	if err != nil {
		return err
	}

	var kafkaProducer *producer.Producer
	auditSink := audit.Sink(audit.NoopSink{})
	if cfg.KafkaBrokers != "" {
		kafkaProducer, err = producer.New(producer.Config{Brokers: cfg.KafkaBrokers}, log)
		if err != nil {
			return err
		}
		defer kafkaProducer.Close() //nolint:errcheck
		auditSink = audit.NewKafkaSink(kafkaProducer, cfg.AuditTopic)
	}
	auditor := audit.NewPublisher(auditSink,
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	objects, err := objectstore.NewFilesystem(cfg.ObjectStoreRoot)
	if err != nil {
		return err
	}

	m := metrics.New()
	tracer := tracing.NewOTel()

	// Stores: PostgreSQL when configured, in-memory otherwise.
	var (
		users         identityservice.UserStore
		profiles      profileservice.Store
		roles         roleservice.Store
		branches      branchservice.Store
		refreshTokens identityservice.RefreshTokenStore
	)
	if pool != nil {
		users = userstore.NewPostgres(pool.DB())
		profiles = profilestore.NewPostgres(pool.DB())
		roles = rolestore.NewPostgres(pool.DB())
		branches = branchstore.NewPostgres(pool.DB())
		refreshTokens = refreshtoken.NewPostgres(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memUsers := userstore.NewInMemory()
		memProfiles := profilestore.NewInMemory()
		memRoles := rolestore.NewInMemory()
		memBranches := branchstore.NewInMemory()
		memUsers.SetResolvers(
			func(ids []id.RoleID) []identitymodels.RoleRef {
				resolved, err := memRoles.FindByIDs(context.Background(), ids)
				if err != nil {
					return nil
				}
				refs := make([]identitymodels.RoleRef, 0, len(resolved))
				for _, role := range resolved {
					refs = append(refs, identitymodels.RoleRef{ID: role.ID, Name: role.Name})
				}
				return refs
			},
			func(branchID id.BranchID) *identitymodels.BranchRef {
				branch, err := memBranches.FindByID(context.Background(), branchID)
				if err != nil {
					return nil
				}
				return &identitymodels.BranchRef{ID: branch.ID, Name: branch.Name, Code: branch.Code}
			},
			func(profileID id.ProfileID) *profilemodels.Profile {
				profile, err := memProfiles.FindByID(context.Background(), profileID)
				if err != nil {
					return nil
				}
				return profile
			},
		)
		users = memUsers
		profiles = memProfiles
		roles = memRoles
		branches = memBranches
		refreshTokens = refreshtoken.NewInMemory()
	}

	var revoked revocation.List
	if redisClient != nil {
		revoked = revocation.NewRedis(redisClient)
	} else {
		revoked = revocation.NewInMemory()
	}

	jwtService := token.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTokenTTL)

	if err := seeder.New(roles, users, profiles, log).Seed(ctx, seeder.Admin{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}); err != nil {
		return err
	}

	roleSvc := roleservice.New(roles, log)
	branchSvc := branchservice.New(branches, auditor, log)
	profileSvc := profileservice.New(profiles, objects, auditor, m, log, profileservice.Config{
		PhotoBucket:     cfg.PhotoBucket,
		MaxPhotoBytes:   cfg.MaxPhotoBytes,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})
	identitySvc := identityservice.New(users, profiles, roleSvc, branches,
		refreshTokens, revoked, jwtService, auditor, m, tracer, log,
		identityservice.Config{
			Limits: query.Limits{
				DefaultPageSize: cfg.DefaultPageSize,
				MaxPageSize:     cfg.MaxPageSize,
			},
			RefreshTTL: cfg.RefreshTokenTTL,
		})

	healthHandler := health.New()
	if pool != nil {
		healthHandler.Register("database", pool)
	}
	if redisClient != nil {
		healthHandler.Register("redis", redisClient)
	}
	if kafkaProducer != nil {
		healthHandler.Register("kafka", healthFunc(func(ctx context.Context) error {
			if !kafkaProducer.Healthy(ctx) {
				return errors.New("kafka unreachable")
			}
			return nil
		}))
	}

	router := transport.New(transport.Handlers{
		Identity: identityhandler.New(identitySvc, log),
		Profile:  profilehandler.New(profileSvc, identitySvc, log, cfg.MaxPhotoBytes),
		Branch:   branchhandler.New(branchSvc, log),
		Role:     rolehandler.New(roleSvc, log),
		Health:   healthHandler,
	}, transport.Config{
		TokenValidator:    token.NewJWTServiceAdapter(jwtService),
		RevocationChecker: revoked,
		RequestTimeout:    30 * time.Second,
		Logger:            log,
	})

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// healthFunc adapts a closure to the health.Checker interface.
type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }
