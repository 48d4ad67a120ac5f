package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/service"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport/grpc"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport/http"
	options "github.com/kart-io/sentinel-kb/pkg/options/server"
)

// Aliases re-exported from pkg/options/server so callers only import this
// package.
type (
	Options = options.Options
	Option  = options.Option
	Mode    = options.Mode
)

const (
	ModeHTTPOnly = options.ModeHTTPOnly
	ModeGRPCOnly = options.ModeGRPCOnly
	ModeBoth     = options.ModeBoth
)

// NewOptions is re-exported from pkg/options/server.
var NewOptions = options.NewOptions

var (
	WithMode            = options.WithMode
	WithHTTPOptions     = options.WithHTTPOptions
	WithGRPCOptions     = options.WithGRPCOptions
	WithMiddleware      = options.WithMiddleware
	WithShutdownTimeout = options.WithShutdownTimeout
)

// Manager drives the lifecycle of the HTTP and gRPC transports plus any
// custom Runnable servers, sharing one service registry.
type Manager struct {
	opts       *options.Options
	registry   *Registry
	httpServer *http.Server
	grpcServer *grpc.Server
	servers    []Runnable
	mu         sync.Mutex
	started    bool
}

// NewManager creates a server manager. Transports are instantiated up front
// according to the configured mode.
func NewManager(opts ...options.Option) *Manager {
	serverOpts := options.NewOptions()
	for _, opt := range opts {
		opt(serverOpts)
	}

	m := &Manager{
		opts:     serverOpts,
		registry: NewRegistry(),
		servers:  make([]Runnable, 0),
	}

	if serverOpts.EnableHTTP() && serverOpts.HTTP != nil {
		m.httpServer = http.NewServer(serverOpts.HTTP, serverOpts.Middleware)
	}

	if serverOpts.EnableGRPC() && serverOpts.GRPC != nil {
		m.grpcServer = grpc.NewServer(
			grpc.WithAddr(serverOpts.GRPC.Addr),
			grpc.WithTimeout(serverOpts.GRPC.Timeout),
			grpc.WithMaxRecvMsgSize(serverOpts.GRPC.MaxRecvMsgSize),
			grpc.WithMaxSendMsgSize(serverOpts.GRPC.MaxSendMsgSize),
			grpc.WithReflection(serverOpts.GRPC.EnableReflection),
		)
	}

	return m
}

// Registry returns the service registry.
func (m *Manager) Registry() *Registry { return m.registry }

// HTTPServer returns the HTTP server, nil when the mode disables it.
func (m *Manager) HTTPServer() *http.Server { return m.httpServer }

// GRPCServer returns the gRPC server, nil when the mode disables it.
func (m *Manager) GRPCServer() *grpc.Server { return m.grpcServer }

// RegisterService registers a service exposed over both HTTP and gRPC.
func (m *Manager) RegisterService(svc service.Service, httpHandler transport.HTTPHandler, grpcDesc *transport.GRPCServiceDesc) error {
	return m.registry.RegisterService(svc, httpHandler, grpcDesc)
}

// RegisterHTTP registers an HTTP-only handler.
func (m *Manager) RegisterHTTP(svc service.Service, handler transport.HTTPHandler) error {
	return m.registry.RegisterHTTP(svc, handler)
}

// RegisterGRPC registers a gRPC-only service.
func (m *Manager) RegisterGRPC(svc service.Service, desc *transport.GRPCServiceDesc) error {
	return m.registry.RegisterGRPC(svc, desc)
}

// AddServer adds a custom server to be started and stopped with the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start wires the registry into the transports, initializes services and
// starts every server. A failure part-way through stops whatever was already
// started.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("server manager already started")
	}
	m.started = true
	m.mu.Unlock()

	if m.httpServer != nil {
		if err := m.registry.ApplyToHTTP(m.httpServer); err != nil {
			return fmt.Errorf("failed to apply HTTP handlers: %w", err)
		}
	}
	if m.grpcServer != nil {
		if err := m.registry.ApplyToGRPC(m.grpcServer); err != nil {
			return fmt.Errorf("failed to apply gRPC services: %w", err)
		}
	}

	for _, svc := range m.registry.GetAllServices() {
		if init, ok := svc.(service.Initializable); ok {
			if err := init.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize service %s: %w", svc.ServiceName(), err)
			}
		}
	}

	// 启动失败时按逆序回滚已启动的 server
	var rollback []func()
	startOne := func(name, addr string, start func(context.Context) error, stop func(context.Context) error) error {
		if err := start(ctx); err != nil {
			for i := len(rollback) - 1; i >= 0; i-- {
				rollback[i]()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		rollback = append(rollback, func() { _ = stop(ctx) })
		if addr != "" {
			logger.Infow("Server started", "name", name, "addr", addr)
		} else {
			logger.Infow("Server started", "name", name)
		}
		return nil
	}

	if m.httpServer != nil {
		if err := startOne("HTTP server", m.opts.HTTP.Addr, m.httpServer.Start, m.httpServer.Stop); err != nil {
			return err
		}
	}
	if m.grpcServer != nil {
		if err := startOne("gRPC server", m.opts.GRPC.Addr, m.grpcServer.Start, m.grpcServer.Stop); err != nil {
			return err
		}
	}
	for _, server := range m.servers {
		if err := startOne(server.Name(), "", server.Start, server.Stop); err != nil {
			return err
		}
	}

	return nil
}

// Stop shuts down every server and closes services. It keeps going past
// individual failures and reports them together.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var errs []error

	// 自定义 server 最先停，传输层随后
	for _, server := range m.servers {
		if err := server.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server %s: %w", server.Name(), err))
		}
	}

	if m.httpServer != nil {
		if err := m.httpServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
		}
		logger.Info("HTTP server stopped")
	}

	if m.grpcServer != nil {
		if err := m.grpcServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop gRPC server: %w", err))
		}
		logger.Info("gRPC server stopped")
	}

	for _, svc := range m.registry.GetAllServices() {
		if closer, ok := svc.(service.Closeable); ok {
			if err := closer.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to close service %s: %w", svc.ServiceName(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

// Run starts all servers, blocks until SIGINT or SIGTERM, then performs a
// graceful shutdown bounded by the configured timeout.
func (m *Manager) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), m.opts.ShutdownTimeout)
	defer shutdownCancel()

	return m.Stop(shutdownCtx)
}

// Wait reports whether the manager is started with at least one server
// configured. Start already guarantees the listeners are accepting before it
// returns, so there is nothing further to block on.
func (m *Manager) Wait(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return fmt.Errorf("server manager not started")
	}
	if m.httpServer == nil && m.grpcServer == nil && len(m.servers) == 0 {
		return fmt.Errorf("no servers configured")
	}

	logger.Info("All servers ready")
	return nil
}
