package casbin

import (
	"context"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/persist"
)

// PermissionService is the policy-based authorization facade.
// It satisfies authz.Authorizer so it can back the authz middleware, and
// adds policy management on top of the Casbin enforcer.
type PermissionService interface {
	// Authorize checks if the subject can perform the action on the resource.
	Authorize(ctx context.Context, subject, resource, action string) (bool, error)

	// AuthorizeWithContext checks authorization with additional context.
	// The extra context is ignored by the Casbin model.
	AuthorizeWithContext(ctx context.Context, subject, resource, action string, extra map[string]interface{}) (bool, error)

	// AddPolicy adds an allow rule for subject/resource/action.
	AddPolicy(subject, resource, action string) error

	// RemovePolicy removes an allow rule.
	RemovePolicy(subject, resource, action string) error

	// AddRoleForUser makes the subject inherit the role's permissions.
	AddRoleForUser(subject, role string) error

	// DeleteRoleForUser removes a role from the subject.
	DeleteRoleForUser(subject, role string) error

	// GetRolesForUser lists roles assigned to the subject.
	GetRolesForUser(subject string) ([]string, error)

	// SetWatcher attaches a watcher so policy changes propagate across replicas.
	SetWatcher(w persist.Watcher) error

	// Reload reloads policies from the underlying store.
	Reload() error
}

// service wraps a Casbin enforcer.
type service struct {
	enforcer *casbin.Enforcer
}

// NewService creates a PermissionService from an existing enforcer.
func NewService(e *casbin.Enforcer) PermissionService {
	return &service{enforcer: e}
}

func (s *service) Authorize(_ context.Context, subject, resource, action string) (bool, error) {
	return s.enforcer.Enforce(subject, resource, action)
}

func (s *service) AuthorizeWithContext(ctx context.Context, subject, resource, action string, _ map[string]interface{}) (bool, error) {
	return s.Authorize(ctx, subject, resource, action)
}

func (s *service) AddPolicy(subject, resource, action string) error {
	_, err := s.enforcer.AddPolicy(subject, resource, action)
	return err
}

func (s *service) RemovePolicy(subject, resource, action string) error {
	_, err := s.enforcer.RemovePolicy(subject, resource, action)
	return err
}

func (s *service) AddRoleForUser(subject, role string) error {
	_, err := s.enforcer.AddRoleForUser(subject, role)
	return err
}

func (s *service) DeleteRoleForUser(subject, role string) error {
	_, err := s.enforcer.DeleteRoleForUser(subject, role)
	return err
}

func (s *service) GetRolesForUser(subject string) ([]string, error) {
	return s.enforcer.GetRolesForUser(subject)
}

func (s *service) SetWatcher(w persist.Watcher) error {
	if err := s.enforcer.SetWatcher(w); err != nil {
		return err
	}
	return w.SetUpdateCallback(func(string) {
		_ = s.enforcer.LoadPolicy()
	})
}

func (s *service) Reload() error {
	return s.enforcer.LoadPolicy()
}
