package rbac

import (
	"time"

	"github.com/kart-io/logger"
)

// Audit event types emitted on permission changes.
const (
	AuditRoleAdded    = "role_added"
	AuditRoleRemoved  = "role_removed"
	AuditRoleAssigned = "role_assigned"
	AuditRoleRevoked  = "role_revoked"
)

// AuditEvent describes a single permission change.
type AuditEvent struct {
	// Type is one of the Audit* constants.
	Type string

	// Actor is the subject affected by the change, when applicable.
	Actor string

	// Target is the role involved in the change.
	Target string

	// Details carries event-specific attributes.
	Details map[string]interface{}

	// Timestamp is when the change happened.
	Timestamp time.Time
}

// AuditLogger receives audit events for permission changes.
// Implementations must be safe for concurrent use.
type AuditLogger interface {
	Log(event AuditEvent)
}

// WithAuditLogger enables audit logging of permission changes.
func WithAuditLogger(l AuditLogger) Option {
	return func(r *RBAC) {
		r.audit = l
	}
}

// defaultAuditLogger writes audit events through the global logger.
type defaultAuditLogger struct{}

// Log implements AuditLogger.
func (defaultAuditLogger) Log(event AuditEvent) {
	logger.Infow("rbac audit",
		"type", event.Type,
		"actor", event.Actor,
		"target", event.Target,
		"details", event.Details,
	)
}

// NewDefaultAuditLogger returns an AuditLogger backed by the global logger.
func NewDefaultAuditLogger() AuditLogger {
	return defaultAuditLogger{}
}

// emitAudit sends an event to the configured audit logger, if any.
func (r *RBAC) emitAudit(eventType, actor, target string, details map[string]interface{}) {
	if r.audit == nil {
		return
	}
	r.audit.Log(AuditEvent{
		Type:      eventType,
		Actor:     actor,
		Target:    target,
		Details:   details,
		Timestamp: time.Now(),
	})
}
