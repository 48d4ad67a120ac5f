package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport"
	grpcopts "github.com/kart-io/sentinel-kb/pkg/options/server/grpc"
)

// 从 options 包重导出,调用方不用多引一个包。
type (
	Options = grpcopts.Options
	Option  = grpcopts.Option
)

var (
	NewOptions         = grpcopts.NewOptions
	WithAddr           = grpcopts.WithAddr
	WithTimeout        = grpcopts.WithTimeout
	WithMaxRecvMsgSize = grpcopts.WithMaxRecvMsgSize
	WithMaxSendMsgSize = grpcopts.WithMaxSendMsgSize
	WithReflection     = grpcopts.WithReflection
)

// Server 是 gRPC 传输实现,生命周期接口与 HTTP 传输保持一致。
type Server struct {
	opts     *grpcopts.Options
	server   *grpc.Server
	listener net.Listener
	services []*transport.GRPCServiceDesc
}

var (
	_ transport.Transport     = (*Server)(nil)
	_ transport.GRPCRegistrar = (*Server)(nil)
)

// NewServer creates a gRPC server with the given options.
func NewServer(opts ...grpcopts.Option) *Server {
	options := grpcopts.NewOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Server{
		opts: options,
		server: grpc.NewServer(
			grpc.MaxRecvMsgSize(options.MaxRecvMsgSize),
			grpc.MaxSendMsgSize(options.MaxSendMsgSize),
		),
		services: make([]*transport.GRPCServiceDesc, 0),
	}
}

// Name returns the server name.
func (s *Server) Name() string { return "grpc" }

// RegisterGRPCService 暂存服务描述,实际注册发生在 Start。
func (s *Server) RegisterGRPCService(desc *transport.GRPCServiceDesc) error {
	s.services = append(s.services, desc)
	return nil
}

// RegisterService 直接在底层 grpc.Server 上注册。
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.server.RegisterService(desc, impl)
}

// Server returns the underlying grpc.Server.
func (s *Server) Server() *grpc.Server { return s.server }

// Start 注册暂存的服务并开始监听。Serve 在后台 goroutine 里跑,
// 立即失败的错误会被带回来。
func (s *Server) Start(ctx context.Context) error {
	for _, svc := range s.services {
		if desc, ok := svc.ServiceDesc.(*grpc.ServiceDesc); ok {
			s.server.RegisterService(desc, svc.ServiceImpl)
		}
	}

	if s.opts.EnableReflection {
		reflection.Register(s.server)
	}

	var err error
	s.listener, err = net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil {
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

// Stop 优雅停止,context 到期后转为强制停止。
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}
