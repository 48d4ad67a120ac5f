// Package authz provides authorization interfaces and implementations.
//
// Authorization follows authentication: once the subject is known, the
// request names a resource and an action, and an Authorizer decides whether
// the subject may perform it. The package ships an RBAC engine and a Casbin
// adapter behind the same interface, plus a decision cache.
//
//	authz := rbac.New()
//	authz.AddRole("kb_editor",
//	    authz.NewPermission("documents", "write"),
//	)
//	authz.AssignRole("user-123", "kb_editor")
//
//	allowed, err := authz.Authorize(ctx, "user-123", "documents", "write")
package authz

import (
	"context"
)

// Authorizer decides whether a subject may perform an action on a resource.
type Authorizer interface {
	// Authorize checks if the subject can perform the action on the
	// resource. Subject is typically a user ID, resource a noun such as
	// "documents", action a verb such as "write".
	Authorize(ctx context.Context, subject, resource, action string) (bool, error)

	// AuthorizeWithContext additionally passes request attributes, such as
	// the resource owner, into the decision.
	AuthorizeWithContext(ctx context.Context, subject, resource, action string, context map[string]interface{}) (bool, error)
}

// RoleManager manages roles and their assignment to subjects.
type RoleManager interface {
	AddRole(role string, permissions ...Permission) error
	RemoveRole(role string) error
	GetRole(role string) ([]Permission, error)
	AssignRole(subject, role string) error
	RevokeRole(subject, role string) error
	GetRoles(subject string) ([]string, error)
	HasRole(subject, role string) (bool, error)
}

// Permission grants or denies one action on one resource. Both fields
// accept the "*" wildcard.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`

	// Effect 默认 allow,deny 优先于任何 allow
	Effect Effect `json:"effect,omitempty"`

	// Conditions 预留的条件限制
	Conditions map[string]interface{} `json:"conditions,omitempty"`
}

// Effect represents the effect of a permission.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// NewPermission creates an allow permission for resource and action.
func NewPermission(resource, action string) Permission {
	return Permission{
		Resource: resource,
		Action:   action,
		Effect:   EffectAllow,
	}
}

// WithEffect returns a copy with the effect replaced.
func (p Permission) WithEffect(effect Effect) Permission {
	p.Effect = effect
	return p
}

// WithConditions returns a copy with conditions attached.
func (p Permission) WithConditions(conditions map[string]interface{}) Permission {
	p.Conditions = conditions
	return p
}

// Matches reports whether this permission covers the resource and action,
// honoring wildcards.
func (p Permission) Matches(resource, action string) bool {
	if p.Resource != "*" && p.Resource != resource {
		return false
	}
	return p.Action == "*" || p.Action == action
}

// PolicyLoader loads policies from an external source.
type PolicyLoader interface {
	Load(ctx context.Context) error
	Reload(ctx context.Context) error
}

// PolicyStore persists roles and role assignments.
type PolicyStore interface {
	SaveRole(ctx context.Context, role string, permissions []Permission) error
	DeleteRole(ctx context.Context, role string) error
	GetRole(ctx context.Context, role string) ([]Permission, error)
	ListRoles(ctx context.Context) ([]string, error)
	SaveRoleAssignment(ctx context.Context, subject, role string) error
	DeleteRoleAssignment(ctx context.Context, subject, role string) error
	GetRoleAssignments(ctx context.Context, subject string) ([]string, error)
}

// AuthorizationRequest bundles the inputs of one authorization check.
type AuthorizationRequest struct {
	Subject  string
	Resource string
	Action   string
	Context  map[string]interface{}
}

// AuthorizationResult is the detailed outcome of a check.
type AuthorizationResult struct {
	Allowed bool
	Reason  string

	// MatchedPermission 命中的权限条目,未命中时为空
	MatchedPermission *Permission
}

// Decision is the wire form of an authorization decision, used by the
// decision audit log.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
}
