package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kart-io/logger"

	apierrors "github.com/kart-io/sentinel-kb/pkg/errors"

	// 注册所有内置中间件工厂和路由注册器。
	_ "github.com/kart-io/sentinel-kb/pkg/infra/middleware"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/service"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
	options "github.com/kart-io/sentinel-kb/pkg/options/server/http"
)

// 从 options 包重导出,调用方不用多引一个包。
type (
	Options = options.Options
	Option  = options.Option
)

var (
	NewOptions       = options.NewOptions
	WithAddr         = options.WithAddr
	WithReadTimeout  = options.WithReadTimeout
	WithWriteTimeout = options.WithWriteTimeout
	WithIdleTimeout  = options.WithIdleTimeout
)

// Server is the gin-based HTTP transport.
type Server struct {
	opts     *options.Options
	mwOpts   *mwopts.Options
	engine   *gin.Engine
	server   *http.Server
	handlers []registeredHandler
}

var (
	_ transport.Transport     = (*Server)(nil)
	_ transport.HTTPRegistrar = (*Server)(nil)
)

type registeredHandler struct {
	svc     service.Service
	handler transport.HTTPHandler
}

// ginValidator 把 transport.Validator 适配成 gin binding 的校验器。
type ginValidator struct {
	validator transport.Validator
}

func (v *ginValidator) ValidateStruct(obj interface{}) error { return v.validator.Validate(obj) }

func (v *ginValidator) Engine() interface{} { return nil }

// NewServer creates an HTTP server. 中间件链在这里就挂到 engine 上:
// gin 的子路由组会拷贝创建时已有的 handlers,晚于路由注册再挂就不会被继承。
func NewServer(serverOpts *options.Options, middlewareOpts *mwopts.Options) *Server {
	if serverOpts == nil {
		serverOpts = options.NewOptions()
	}
	if middlewareOpts == nil {
		middlewareOpts = mwopts.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:     serverOpts,
		mwOpts:   middlewareOpts,
		engine:   gin.New(),
		handlers: make([]registeredHandler, 0),
	}
	s.applyMiddleware(middlewareOpts)

	return s
}

// Name returns the server name.
func (s *Server) Name() string { return "http[gin]" }

// Engine returns the underlying gin.Engine.
func (s *Server) Engine() *gin.Engine { return s.engine }

// RegisterHTTPHandler registers an HTTP handler for a service.
func (s *Server) RegisterHTTPHandler(svc service.Service, handler transport.HTTPHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}
	s.handlers = append(s.handlers, registeredHandler{svc: svc, handler: handler})
	return nil
}

// SetValidator sets the global validator for the server.
func (s *Server) SetValidator(v transport.Validator) {
	binding.Validator = &ginValidator{validator: v}
}

// Start 挂载路由并开始监听。ListenAndServe 在后台 goroutine 里跑,
// 立即失败的错误会被带回来。
func (s *Server) Start(ctx context.Context) error {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    apierrors.ErrRouteNotFound.Code,
			"message": apierrors.ErrRouteNotFound.MessageEN,
		})
	})

	if err := s.registerRoutes(); err != nil {
		return err
	}

	for _, h := range s.handlers {
		h.handler.RegisterRoutes(s.engine)
	}

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// applyMiddleware 按 GetMiddlewareOrder 的顺序通过工厂注册表创建并挂载中间件。
func (s *Server) applyMiddleware(opts *mwopts.Options) {
	_ = opts.Complete()

	for _, name := range opts.GetMiddlewareOrder() {
		if !opts.IsEnabled(name) {
			continue
		}

		factory, ok := mwopts.GetFactory(name)
		if !ok {
			continue
		}

		// auth/authz 这类需要运行时依赖的中间件不能自动创建,
		// 由调用方通过 Engine().Use 手动挂载。
		if factory.NeedsRuntime() {
			continue
		}

		handler, err := factory.Create(opts.GetConfig(name))
		if err != nil {
			logger.Errorw("failed to create middleware, skipping",
				"middleware", name,
				"error", err.Error(),
			)
			continue
		}

		s.engine.Use(handler)
	}
}

// registerRoutes 注册端点型中间件的路由 (health、metrics、pprof、version)。
func (s *Server) registerRoutes() error {
	for _, name := range []string{
		mwopts.MiddlewareHealth,
		mwopts.MiddlewareMetrics,
		mwopts.MiddlewarePprof,
		mwopts.MiddlewareVersion,
	} {
		if !s.mwOpts.IsEnabled(name) {
			continue
		}

		registrar, ok := mwopts.GetRouteRegistrar(name)
		if !ok {
			continue
		}

		if err := registrar.RegisterRoutes(s.engine, s.mwOpts.GetConfig(name)); err != nil {
			return err
		}
	}
	return nil
}
