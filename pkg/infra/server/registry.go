package server

import (
	"sync"

	"github.com/kart-io/sentinel-kb/pkg/infra/server/service"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport/grpc"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport/http"
)

// Registry manages service registration for HTTP and gRPC transports.
type Registry struct {
	mu           sync.RWMutex
	services     map[string]service.Service
	httpHandlers map[string]transport.HTTPHandler
	grpcDescs    []*transport.GRPCServiceDesc
}

// NewRegistry creates a new service registry.
func NewRegistry() *Registry {
	return &Registry{
		services:     make(map[string]service.Service),
		httpHandlers: make(map[string]transport.HTTPHandler),
		grpcDescs:    make([]*transport.GRPCServiceDesc, 0),
	}
}

// RegisterService registers a service with optional HTTP and gRPC handlers.
// Registering the same service name twice overwrites the previous entry.
func (r *Registry) RegisterService(svc service.Service, httpHandler transport.HTTPHandler, grpcDesc *transport.GRPCServiceDesc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := svc.ServiceName()
	r.services[name] = svc

	if httpHandler != nil {
		r.httpHandlers[name] = httpHandler
	}
	if grpcDesc != nil {
		r.grpcDescs = append(r.grpcDescs, grpcDesc)
	}

	return nil
}

// RegisterHTTP registers only an HTTP handler for a service.
func (r *Registry) RegisterHTTP(svc service.Service, handler transport.HTTPHandler) error {
	return r.RegisterService(svc, handler, nil)
}

// RegisterGRPC registers only a gRPC handler for a service.
func (r *Registry) RegisterGRPC(svc service.Service, desc *transport.GRPCServiceDesc) error {
	return r.RegisterService(svc, nil, desc)
}

// GetService returns a registered service by name.
func (r *Registry) GetService(name string) (service.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[name]
	return svc, ok
}

// GetAllServices returns all registered services.
func (r *Registry) GetAllServices() []service.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]service.Service, 0, len(r.services))
	for _, svc := range r.services {
		services = append(services, svc)
	}
	return services
}

// ApplyToHTTP applies all registered HTTP handlers to the given HTTP server.
func (r *Registry) ApplyToHTTP(server *http.Server) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, handler := range r.httpHandlers {
		if err := server.RegisterHTTPHandler(r.services[name], handler); err != nil {
			return err
		}
	}
	return nil
}

// ApplyToGRPC applies all gRPC services to the given gRPC server.
func (r *Registry) ApplyToGRPC(server *grpc.Server) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, desc := range r.grpcDescs {
		if err := server.RegisterGRPCService(desc); err != nil {
			return err
		}
	}
	return nil
}
