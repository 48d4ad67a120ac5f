// Package rbac provides a Role-Based Access Control authorizer.
//
// It implements the authz.Authorizer interface with support for role
// inheritance, wildcard permissions and deny rules.
//
//	rbac := rbac.New()
//
//	rbac.AddRole("kb_admin",
//	    authz.NewPermission("*", "*"),
//	)
//	rbac.AddRole("kb_editor",
//	    authz.NewPermission("knowledge-bases", "*"),
//	    authz.NewPermission("documents", "*"),
//	)
//	rbac.AddRole("kb_viewer",
//	    authz.NewPermission("knowledge-bases", "read"),
//	    authz.NewPermission("documents", "read"),
//	)
//
//	rbac.AssignRole("user-1", "kb_admin")
//	rbac.AssignRole("user-2", "kb_editor")
//
//	allowed, _ := rbac.Authorize(ctx, "user-2", "documents", "write")
package rbac

import (
	"context"
	"sync"

	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/security/authz"
)

// RBAC implements Role-Based Access Control.
type RBAC struct {
	mu sync.RWMutex

	// 角色名 -> 权限列表
	roles map[string][]authz.Permission

	// 主体 -> 直接持有的角色集合
	assignments map[string]map[string]struct{}

	// 角色 -> 父角色，用于权限继承
	roleHierarchy map[string][]string

	// 可选的持久化存储
	store authz.PolicyStore

	// superAdmin 角色绕过所有权限检查
	superAdmin string

	// audit 接收权限变更事件
	audit AuditLogger
}

// Option is a functional option for RBAC.
type Option func(*RBAC)

// New creates a new RBAC authorizer.
func New(opts ...Option) *RBAC {
	r := &RBAC{
		roles:         make(map[string][]authz.Permission),
		assignments:   make(map[string]map[string]struct{}),
		roleHierarchy: make(map[string][]string),
		superAdmin:    "super_admin",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithStore sets the policy store.
func WithStore(store authz.PolicyStore) Option {
	return func(r *RBAC) { r.store = store }
}

// WithSuperAdmin sets the super admin role name.
func WithSuperAdmin(role string) Option {
	return func(r *RBAC) { r.superAdmin = role }
}

// persist 在配置了存储时执行持久化操作,未配置时为空操作。
func (r *RBAC) persist(fn func(authz.PolicyStore) error) error {
	if r.store == nil {
		return nil
	}
	return fn(r.store)
}

// Authorize checks if the subject can perform the action on the resource.
func (r *RBAC) Authorize(ctx context.Context, subject, resource, action string) (bool, error) {
	return r.AuthorizeWithContext(ctx, subject, resource, action, nil)
}

// AuthorizeWithContext checks authorization with additional context.
// Deny rules win over allow rules within the subject's role set.
func (r *RBAC) AuthorizeWithContext(ctx context.Context, subject, resource, action string, context map[string]interface{}) (bool, error) {
	switch {
	case subject == "":
		return false, errors.ErrInvalidParam.WithMessage("subject is required")
	case resource == "":
		return false, errors.ErrInvalidParam.WithMessage("resource is required")
	case action == "":
		return false, errors.ErrInvalidParam.WithMessage("action is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := r.expandRoles(subject)

	// 超级管理员不受 deny 规则约束,先单独判定
	for _, role := range roles {
		if role == r.superAdmin {
			return true, nil
		}
	}

	allowed := false
	for _, role := range roles {
		for _, perm := range r.roles[role] {
			if !perm.Matches(resource, action) {
				continue
			}
			if perm.Effect == authz.EffectDeny {
				return false, nil
			}
			allowed = true
		}
	}
	return allowed, nil
}

// expandRoles 收集主体的全部角色,沿继承链向上展开,迭代遍历避免深继承链爆栈。
func (r *RBAC) expandRoles(subject string) []string {
	direct, ok := r.assignments[subject]
	if !ok {
		return nil
	}

	stack := make([]string, 0, len(direct))
	for role := range direct {
		stack = append(stack, role)
	}

	seen := make(map[string]struct{}, len(stack))
	var result []string
	for len(stack) > 0 {
		role := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
		stack = append(stack, r.roleHierarchy[role]...)
	}
	return result
}

// AddRole creates a new role with the given permissions.
func (r *RBAC) AddRole(role string, permissions ...authz.Permission) error {
	if role == "" {
		return errors.ErrInvalidParam.WithMessage("role name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.roles[role] = permissions
	if err := r.persist(func(s authz.PolicyStore) error {
		return s.SaveRole(context.Background(), role, permissions)
	}); err != nil {
		return err
	}

	r.emitAudit(AuditRoleAdded, "", role, map[string]interface{}{
		"permissions": len(permissions),
	})
	return nil
}

// RemoveRole removes a role.
func (r *RBAC) RemoveRole(role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.roles, role)
	delete(r.roleHierarchy, role)
	if err := r.persist(func(s authz.PolicyStore) error {
		return s.DeleteRole(context.Background(), role)
	}); err != nil {
		return err
	}

	r.emitAudit(AuditRoleRemoved, "", role, nil)
	return nil
}

// GetRole returns the permissions for a role.
func (r *RBAC) GetRole(role string) ([]authz.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	permissions, ok := r.roles[role]
	if !ok {
		return nil, errors.ErrNotFound.WithMessagef("role not found: %s", role)
	}
	return permissions, nil
}

// AssignRole assigns a role to a subject. The role must exist.
func (r *RBAC) AssignRole(subject, role string) error {
	if subject == "" || role == "" {
		return errors.ErrInvalidParam.WithMessage("subject and role are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[role]; !ok {
		return errors.ErrNotFound.WithMessagef("role not found: %s", role)
	}

	if r.assignments[subject] == nil {
		r.assignments[subject] = make(map[string]struct{})
	}
	r.assignments[subject][role] = struct{}{}

	if err := r.persist(func(s authz.PolicyStore) error {
		return s.SaveRoleAssignment(context.Background(), subject, role)
	}); err != nil {
		return err
	}

	r.emitAudit(AuditRoleAssigned, subject, role, nil)
	return nil
}

// RevokeRole revokes a role from a subject.
func (r *RBAC) RevokeRole(subject, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if roles, ok := r.assignments[subject]; ok {
		delete(roles, role)
		if len(roles) == 0 {
			delete(r.assignments, subject)
		}
	}

	if err := r.persist(func(s authz.PolicyStore) error {
		return s.DeleteRoleAssignment(context.Background(), subject, role)
	}); err != nil {
		return err
	}

	r.emitAudit(AuditRoleRevoked, subject, role, nil)
	return nil
}

// GetRoles returns the roles directly assigned to a subject.
func (r *RBAC) GetRoles(subject string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.assignments[subject]))
	for role := range r.assignments[subject] {
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, nil
	}
	return roles, nil
}

// HasRole checks if a subject has a specific role.
func (r *RBAC) HasRole(subject, role string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, has := r.assignments[subject][role]
	return has, nil
}

// SetRoleParent sets the parent roles for a role. The assignment is rolled
// back when it would introduce a cycle in the hierarchy.
func (r *RBAC) SetRoleParent(role string, parents ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[role]; !ok {
		return errors.ErrNotFound.WithMessagef("role not found: %s", role)
	}
	for _, parent := range parents {
		if _, ok := r.roles[parent]; !ok {
			return errors.ErrNotFound.WithMessagef("parent role not found: %s", parent)
		}
	}

	oldParents := r.roleHierarchy[role]
	r.roleHierarchy[role] = parents

	if cycle := r.detectCycle(role); cycle != nil {
		if oldParents == nil {
			delete(r.roleHierarchy, role)
		} else {
			r.roleHierarchy[role] = oldParents
		}
		return errors.ErrInvalidParam.WithMessagef("circular role dependency detected: %v", cycle)
	}
	return nil
}

// detectCycle 从 startRole 出发做 DFS,发现环时返回环路径。
func (r *RBAC) detectCycle(startRole string) []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var dfs func(string) bool
	dfs = func(role string) bool {
		visited[role] = true
		onStack[role] = true
		path = append(path, role)

		for _, parent := range r.roleHierarchy[role] {
			if !visited[parent] {
				if dfs(parent) {
					return true
				}
				continue
			}
			if onStack[parent] {
				// 截掉环外前缀,只保留环本身
				for i, p := range path {
					if p == parent {
						path = append(path[i:], parent)
						break
					}
				}
				return true
			}
		}

		onStack[role] = false
		path = path[:len(path)-1]
		return false
	}

	if dfs(startRole) {
		return path
	}
	return nil
}

// ListRoles lists all defined roles.
func (r *RBAC) ListRoles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.roles))
	for role := range r.roles {
		roles = append(roles, role)
	}
	return roles
}

// Clear removes all roles and assignments.
func (r *RBAC) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roles = make(map[string][]authz.Permission)
	r.assignments = make(map[string]map[string]struct{})
	r.roleHierarchy = make(map[string][]string)
}

// Load loads roles and assignments from the store. Roles that fail to load
// individually are skipped.
func (r *RBAC) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	roles, err := r.store.ListRoles(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, role := range roles {
		permissions, err := r.store.GetRole(ctx, role)
		if err != nil {
			continue
		}
		r.roles[role] = permissions
	}
	return nil
}
