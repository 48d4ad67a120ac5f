package middleware

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// Priority 定义中间件优先级类型。
// 数值越大，优先级越高，越先执行。
type Priority int

// 预定义的中间件优先级常量。
// 优先级从高到低排列，确保中间件按正确顺序执行。
const (
	// PriorityRecovery 最高优先级，必须第一个执行以捕获所有 panic。
	PriorityRecovery Priority = 1000

	// PriorityRequestID 第二优先级，为其他中间件提供唯一请求 ID。
	PriorityRequestID Priority = 900

	// PriorityLogger 依赖 RequestID，记录请求日志。
	PriorityLogger Priority = 800

	// PriorityMetrics 观测性中间件，收集性能指标。
	PriorityMetrics Priority = 700

	// PriorityTracing 分布式追踪中间件。
	PriorityTracing Priority = 650

	// PriorityCORS 跨域资源共享，安全相关。
	PriorityCORS Priority = 600

	// PriorityBodyLimit 请求体大小限制，防止 DoS 攻击。
	PriorityBodyLimit Priority = 550

	// PrioritySecurityHeaders 安全响应头设置。
	PrioritySecurityHeaders Priority = 540

	// PriorityTimeout 请求超时控制，弹性机制。
	PriorityTimeout Priority = 500

	// PriorityAuth 身份认证，必须在业务逻辑前执行。
	PriorityAuth Priority = 400

	// PriorityAuthz 授权检查，在认证后执行。
	PriorityAuthz Priority = 300

	// PriorityCompression 响应压缩，在业务逻辑之后执行。
	PriorityCompression Priority = 200

	// PriorityCustom 自定义中间件的默认优先级。
	PriorityCustom Priority = 100
)

// PrioritizedMiddleware 表示带优先级的中间件。
type PrioritizedMiddleware struct {
	// Name 中间件名称，用于调试和日志。
	Name string

	// Priority 优先级，数值越大越先执行。
	Priority Priority

	// Handler 中间件处理函数。
	Handler gin.HandlerFunc

	// order 注册顺序，用于同优先级时的排序。
	order int
}

// Registrar 中间件注册器，管理中间件的注册和应用。
// 解决手工 Use 调用顺序易错的问题：无论注册顺序如何，
// Apply 总是按优先级从高到低应用中间件。
type Registrar struct {
	mu          sync.RWMutex
	middlewares []PrioritizedMiddleware
	counter     int
}

// NewRegistrar 创建一个新的中间件注册器。
func NewRegistrar() *Registrar {
	return &Registrar{}
}

// Register 注册一个带优先级的中间件。
// handler 为 nil 时 panic，注册期错误应当尽早暴露。
func (r *Registrar) Register(name string, priority Priority, handler gin.HandlerFunc) {
	if handler == nil {
		panic(fmt.Sprintf("middleware: Register called with nil handler for %q", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.middlewares = append(r.middlewares, PrioritizedMiddleware{
		Name:     name,
		Priority: priority,
		Handler:  handler,
		order:    r.counter,
	})
	r.counter++
}

// RegisterIf 仅在条件为 true 时注册中间件。
func (r *Registrar) RegisterIf(cond bool, name string, priority Priority, handler gin.HandlerFunc) {
	if cond {
		r.Register(name, priority, handler)
	}
}

// Apply 按优先级从高到低将所有中间件应用到 engine。
// 同优先级的中间件按注册顺序执行。
func (r *Registrar) Apply(engine *gin.Engine) {
	for _, m := range r.sorted() {
		engine.Use(m.Handler)
	}
}

// List 返回按应用顺序排列的中间件描述，格式为 name[priority]。
func (r *Registrar) List() []string {
	sorted := r.sorted()
	names := make([]string, 0, len(sorted))
	for _, m := range sorted {
		names = append(names, fmt.Sprintf("%s[%d]", m.Name, m.Priority))
	}
	return names
}

// Count 返回已注册的中间件数量。
func (r *Registrar) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.middlewares)
}

// Clear 清空所有已注册的中间件。
func (r *Registrar) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = nil
	r.counter = 0
}

// sorted 返回按优先级降序（同优先级按注册顺序）排序的副本。
func (r *Registrar) sorted() []PrioritizedMiddleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]PrioritizedMiddleware, len(r.middlewares))
	copy(sorted, r.middlewares)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].order < sorted[j].order
	})
	return sorted
}
