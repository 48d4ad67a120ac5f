package kb

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/biz"
	"github.com/kart-io/sentinel-kb/internal/kb/handler"
	"github.com/kart-io/sentinel-kb/internal/kb/router"
	"github.com/kart-io/sentinel-kb/internal/kb/staging"
	"github.com/kart-io/sentinel-kb/internal/kb/store"

	"github.com/kart-io/sentinel-kb/pkg/component/extractor"
	"github.com/kart-io/sentinel-kb/pkg/component/milvus"
	"github.com/kart-io/sentinel-kb/pkg/component/mysql"
	"github.com/kart-io/sentinel-kb/pkg/component/ollama"
	"github.com/kart-io/sentinel-kb/pkg/component/redis"
	"github.com/kart-io/sentinel-kb/pkg/component/storage"
	"github.com/kart-io/sentinel-kb/pkg/infra/app"
	"github.com/kart-io/sentinel-kb/pkg/infra/pool"
	"github.com/kart-io/sentinel-kb/pkg/infra/server"
	authzopts "github.com/kart-io/sentinel-kb/pkg/options/authz"
	"github.com/kart-io/sentinel-kb/pkg/security/auth/jwt"
	"github.com/kart-io/sentinel-kb/pkg/security/authz"
	casbinauthz "github.com/kart-io/sentinel-kb/pkg/security/authz/casbin"
	casbinredis "github.com/kart-io/sentinel-kb/pkg/security/authz/casbin/infrastructure/redis"
	"github.com/kart-io/sentinel-kb/pkg/security/authz/rbac"
	"github.com/kart-io/sentinel-kb/pkg/utils/validator"
	"gorm.io/gorm"
)

const (
	appName        = "sentinel-kb"
	appDescription = `Sentinel Knowledge Base Service

The knowledge base ingestion service for the Sentinel platform.

This server provides:
  - Draft staging with chunk preview and cost estimation
  - Document ingestion pipeline (scrape, parse, chunk, embed, index)
  - Per-knowledge-base vector collections in Milvus
  - Document reprocessing and coordinated deletion`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the knowledge base service with the given options.
func Run(opts *Options) error {
	fmt.Printf("Starting %s...\n", appName)

	// 1. Logger
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting knowledge base service...")

	// 2. Relational store
	storageMgr := storage.NewManager()
	defer storageMgr.CloseAll()

	mysqlClient, err := mysql.New(opts.MySQL)
	if err != nil {
		return fmt.Errorf("failed to initialize mysql: %w", err)
	}
	storageMgr.MustRegister("mysql-primary", mysqlClient)
	db := mysqlClient.DB()

	if err := store.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	factory := store.New(db)
	logger.Info("Store layer initialized")

	// 3. Draft staging store
	stagingStore, redisClient, err := newStagingStore(opts)
	if err != nil {
		return err
	}
	if redisClient != nil {
		storageMgr.MustRegister("redis-staging", redisClient)
	}
	logger.Infow("Draft staging initialized", "backend", opts.Ingest.StagingBackend)

	for name, status := range storageMgr.HealthCheckAll(context.Background()) {
		if !status.Healthy {
			logger.Warnw("storage backend unhealthy at startup", "name", name, "error", status.Error)
		}
	}

	// 4. Vector index
	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to initialize milvus: %w", err)
	}
	defer milvusClient.Close(context.Background())
	logger.Info("Milvus client initialized")

	// 5. Embedding and extraction clients
	var embedder biz.Embedder = ollama.New(opts.Ollama)
	if redisClient != nil {
		embedder = biz.NewCachedEmbedder(embedder, redisClient.Client(), opts.Ollama.EmbedModel, opts.Ingest.EmbedCacheTTL)
		logger.Info("Embedding cache enabled")
	}
	extractorClient := extractor.New(opts.Extractor)
	logger.Info("Embedding and extraction clients initialized")

	// 6. Worker pool
	workerPool, err := pool.NewPool("kb-pipeline", pool.DefaultPool, &pool.Config{
		Capacity: opts.Ingest.Workers,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer workerPool.Release()

	// 7. Domain service
	service := biz.NewService(biz.ServiceConfig{
		Store:         factory,
		Staging:       stagingStore,
		Extractor:     extractorClient,
		Embedder:      embedder,
		Vector:        milvusClient,
		Pool:          workerPool,
		Pipeline:      opts.PipelineConfig(),
		SweepInterval: opts.Ingest.SweepInterval,
		Prices:        opts.Ingest.Prices,
	})
	logger.Info("Business layer initialized")

	// Resume executions interrupted by the previous shutdown, then keep
	// retrying parked deletions in the background.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	if err := service.Pipeline.ResumeRunning(bgCtx); err != nil {
		logger.Warnw("failed to resume interrupted executions", "error", err)
	}
	go service.Sweeper.Run(bgCtx)

	// 8. Handler layer
	kbHandler := handler.New(service)
	logger.Info("Handler layer initialized")

	// Token auth is optional; the service usually sits behind the platform
	// gateway which terminates authentication. When enabled, an authorizer
	// checks the token's role against the requested resource and action.
	var (
		jwtAuth    *jwt.JWT
		authorizer authz.Authorizer
	)
	if !opts.JWT.DisableAuth {
		jwtAuth, err = jwt.New(jwt.WithOptions(opts.JWT))
		if err != nil {
			return fmt.Errorf("failed to initialize jwt: %w", err)
		}
		authorizer, err = newAuthorizer(opts, db, redisClient)
		if err != nil {
			return err
		}
		logger.Infow("Authentication initialized", "authz-engine", opts.Authz.Engine)
	}

	// 9. Server
	serverManager := server.NewManager(
		server.WithMode(opts.Server.Mode),
		server.WithHTTPOptions(opts.Server.HTTP),
		server.WithGRPCOptions(opts.Server.GRPC),
		server.WithMiddleware(opts.Server.Middleware),
		server.WithShutdownTimeout(opts.Server.ShutdownTimeout),
	)

	// Request binding validates through the unified validator so
	// validation errors carry translatable messages.
	if httpSrv := serverManager.HTTPServer(); httpSrv != nil {
		v := validator.New()
		v.SetTagName("binding")
		validator.SetGlobal(v)
		httpSrv.SetValidator(v)
	}

	// 10. Routes
	if err := router.Register(serverManager, kbHandler, jwtAuth, authorizer); err != nil {
		return fmt.Errorf("failed to register routes: %w", err)
	}

	logger.Info("Knowledge base service is ready")
	return serverManager.Run()
}

// newAuthorizer builds the authorizer backing the authz middleware. The
// casbin engine persists policies in MySQL and propagates changes across
// replicas over redis pub/sub when the redis staging backend is active.
// The rbac engine serves the static knowledge base roles from memory.
// Decisions are cached either way.
func newAuthorizer(opts *Options, db *gorm.DB, redisClient *redis.Client) (authz.Authorizer, error) {
	var base authz.Authorizer
	switch opts.Authz.Engine {
	case authzopts.EngineCasbin:
		svc, err := casbinauthz.NewServiceWithGorm(db, opts.Authz.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize casbin: %w", err)
		}
		if redisClient != nil {
			if err := svc.SetWatcher(casbinredis.NewWatcher(redisClient.Client())); err != nil {
				return nil, fmt.Errorf("failed to attach casbin watcher: %w", err)
			}
		}
		base = svc
	default:
		r := rbac.New(rbac.WithAuditLogger(rbac.NewDefaultAuditLogger()))
		if err := seedRoles(r); err != nil {
			return nil, fmt.Errorf("failed to seed rbac roles: %w", err)
		}
		base = r
	}
	return authz.NewCachedAuthorizer(base,
		authz.WithCacheTTL(opts.Authz.CacheTTL),
		authz.WithCacheMaxSize(opts.Authz.CacheSize),
	), nil
}

// seedRoles installs the static knowledge base roles. Tokens carry the role
// name in their claims, so each role is assigned to itself as a subject.
func seedRoles(r *rbac.RBAC) error {
	roles := map[string][]authz.Permission{
		"kb_admin": {
			authz.NewPermission("*", "*"),
		},
		"kb_editor": {
			authz.NewPermission("drafts", "*"),
			authz.NewPermission("knowledge-bases", "*"),
			authz.NewPermission("executions", "read"),
		},
		"kb_viewer": {
			authz.NewPermission("drafts", "read"),
			authz.NewPermission("knowledge-bases", "read"),
			authz.NewPermission("executions", "read"),
		},
	}
	for name, perms := range roles {
		if err := r.AddRole(name, perms...); err != nil {
			return err
		}
		if err := r.AssignRole(name, name); err != nil {
			return err
		}
	}
	return nil
}

// newStagingStore builds the draft staging backend. The redis backend keeps
// drafts across restarts; memory is for single-node and development use.
// The redis client is returned so other components can share the connection.
func newStagingStore(opts *Options) (staging.Store, *redis.Client, error) {
	switch opts.Ingest.StagingBackend {
	case StagingRedis:
		redisClient, err := redis.New(opts.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		return staging.NewRedisStore(redisClient.Client(), opts.Ingest.DraftTTL), redisClient, nil
	default:
		return staging.NewMemoryStore(opts.Ingest.DraftTTL), nil, nil
	}
}
