package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grpcopts "github.com/kart-io/sentinel-kb/pkg/infra/server/grpc"
	httpopts "github.com/kart-io/sentinel-kb/pkg/infra/server/http"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/service"
	"github.com/kart-io/sentinel-kb/pkg/infra/server/transport"
)

// fakeService records lifecycle calls.
type fakeService struct {
	name     string
	mu       sync.Mutex
	inited   bool
	closed   bool
	initErr  error
	closeErr error
}

func (s *fakeService) ServiceName() string { return s.name }

func (s *fakeService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inited = true
	return s.initErr
}

func (s *fakeService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *fakeService) wasInited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inited
}

func (s *fakeService) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type draftsHandler struct{}

func (h *draftsHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/v1/drafts", func(c *gin.Context) {
		c.JSON(200, gin.H{"items": []string{}})
	})
}

// fakeRunnable is a custom server attached alongside HTTP/gRPC.
type fakeRunnable struct {
	name     string
	mu       sync.Mutex
	started  bool
	stopped  bool
	startErr error
	stopErr  error
}

func (r *fakeRunnable) Name() string { return r.name }

func (r *fakeRunnable) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return r.startErr
}

func (r *fakeRunnable) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return r.stopErr
}

func testHTTPOptions() *httpopts.Options {
	return &httpopts.Options{
		Addr:         ":0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}
}

func testGRPCOptions() *grpcopts.Options {
	return &grpcopts.Options{
		Addr:             ":0",
		Timeout:          10 * time.Second,
		MaxRecvMsgSize:   16 * 1024 * 1024,
		MaxSendMsgSize:   16 * 1024 * 1024,
		EnableReflection: true,
	}
}

func TestNewManagerModes(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantHTTP bool
		wantGRPC bool
	}{
		{"http only", []Option{WithMode(ModeHTTPOnly)}, true, false},
		{"grpc only", []Option{WithMode(ModeGRPCOnly)}, false, true},
		{"both", []Option{WithMode(ModeBoth)}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager(tt.opts...)
			require.NotNil(t, mgr)
			assert.Equal(t, tt.wantHTTP, mgr.HTTPServer() != nil)
			assert.Equal(t, tt.wantGRPC, mgr.GRPCServer() != nil)
		})
	}
}

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager()
	require.NotNil(t, mgr)
	assert.NotNil(t, mgr.Registry())
	assert.Same(t, mgr.registry, mgr.Registry())

	mgr = NewManager(WithShutdownTimeout(60 * time.Second))
	assert.Equal(t, 60*time.Second, mgr.opts.ShutdownTimeout)
}

func TestRegisterService(t *testing.T) {
	mgr := NewManager()
	svc := &fakeService{name: "kb-ingest"}

	require.NoError(t, mgr.RegisterService(svc, &draftsHandler{}, nil))

	got, ok := mgr.registry.GetService("kb-ingest")
	require.True(t, ok)
	assert.Same(t, service.Service(svc), got)
}

func TestRegisterHTTP(t *testing.T) {
	mgr := NewManager()
	svc := &fakeService{name: "kb-api"}

	require.NoError(t, mgr.RegisterHTTP(svc, &draftsHandler{}))

	_, ok := mgr.registry.GetService("kb-api")
	assert.True(t, ok)
}

func TestRegisterGRPC(t *testing.T) {
	mgr := NewManager()
	svc := &fakeService{name: "kb-ingest-grpc"}
	desc := &transport.GRPCServiceDesc{
		ServiceDesc: "ingest-desc",
		ServiceImpl: "ingest-impl",
	}

	require.NoError(t, mgr.RegisterGRPC(svc, desc))

	_, ok := mgr.registry.GetService("kb-ingest-grpc")
	assert.True(t, ok)
}

func TestAddServer(t *testing.T) {
	mgr := NewManager()
	runnable := &fakeRunnable{name: "draft-reaper"}

	mgr.AddServer(runnable)

	require.Len(t, mgr.servers, 1)
	assert.Same(t, Runnable(runnable), mgr.servers[0])
}

func TestAddServerConcurrent(t *testing.T) {
	mgr := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mgr.AddServer(&fakeRunnable{name: "worker"})
		}()
	}
	wg.Wait()

	assert.Len(t, mgr.servers, 100)
}

func TestStartStopGuards(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions()))
	require.NoError(t, mgr.RegisterHTTP(&fakeService{name: "kb-api"}, &draftsHandler{}))

	mgr.started = true
	assert.Error(t, mgr.Start(context.Background()), "double start must fail")
	mgr.started = false

	assert.NoError(t, mgr.Stop(context.Background()), "stop before start is a no-op")
}

func TestServiceLifecycle(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly))
	svc := &fakeService{name: "kb-ingest"}
	require.NoError(t, mgr.RegisterHTTP(svc, &draftsHandler{}))

	ctx := context.Background()
	for _, s := range mgr.registry.GetAllServices() {
		if init, ok := s.(service.Initializable); ok {
			require.NoError(t, init.Init(ctx))
		}
	}
	assert.True(t, svc.wasInited())

	for _, s := range mgr.registry.GetAllServices() {
		if closer, ok := s.(service.Closeable); ok {
			require.NoError(t, closer.Close(ctx))
		}
	}
	assert.True(t, svc.wasClosed())
}

func TestServiceInitErrorPropagates(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly))
	svc := &fakeService{name: "kb-ingest", initErr: errors.New("milvus unreachable")}
	require.NoError(t, mgr.RegisterHTTP(svc, &draftsHandler{}))

	for _, s := range mgr.registry.GetAllServices() {
		if init, ok := s.(service.Initializable); ok {
			err := init.Init(context.Background())
			require.Error(t, err)
			assert.EqualError(t, err, "milvus unreachable")
		}
	}
}

func TestCustomServerErrors(t *testing.T) {
	mgr := NewManager()
	runnable := &fakeRunnable{
		name:     "draft-reaper",
		startErr: errors.New("start failed"),
		stopErr:  errors.New("stop failed"),
	}
	mgr.AddServer(runnable)

	ctx := context.Background()
	for _, server := range mgr.servers {
		assert.EqualError(t, server.Start(ctx), "start failed")
		assert.EqualError(t, server.Stop(ctx), "stop failed")
	}
	assert.True(t, runnable.started)
	assert.True(t, runnable.stopped)
}

func TestWaitNotStarted(t *testing.T) {
	mgr := NewManager()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := mgr.Wait(ctx)
	require.Error(t, err)
	assert.EqualError(t, err, "server manager not started")
}

func TestWaitNoServers(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly))
	mgr.mu.Lock()
	mgr.started = true
	mgr.httpServer = nil
	mgr.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := mgr.Wait(ctx)
	require.Error(t, err)
	assert.EqualError(t, err, "no servers configured")
}

func startAndWait(t *testing.T, mgr *Manager) {
	t.Helper()
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, mgr.Wait(ctx))
}

func TestWaitHTTPReady(t *testing.T) {
	startAndWait(t, NewManager(WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions())))
}

func TestWaitGRPCReady(t *testing.T) {
	startAndWait(t, NewManager(WithMode(ModeGRPCOnly), WithGRPCOptions(testGRPCOptions())))
}

func TestWaitBothReady(t *testing.T) {
	startAndWait(t, NewManager(
		WithMode(ModeBoth),
		WithHTTPOptions(testHTTPOptions()),
		WithGRPCOptions(testGRPCOptions()),
	))
}

func TestWaitRepeatable(t *testing.T) {
	mgr := NewManager(WithMode(ModeHTTPOnly), WithHTTPOptions(testHTTPOptions()))
	require.NoError(t, mgr.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
	}()

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := mgr.Wait(ctx)
		cancel()
		require.NoError(t, err)
	}
}
