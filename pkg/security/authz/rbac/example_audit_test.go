package rbac_test

import (
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/security/authz"
	"github.com/kart-io/sentinel-kb/pkg/security/authz/rbac"
)

// printAuditLogger writes audit events to stdout.
type printAuditLogger struct{}

func (printAuditLogger) Log(event rbac.AuditEvent) {
	fmt.Printf("[AUDIT] %s | %s actor=%s target=%s\n",
		event.Timestamp.Format(time.RFC3339), event.Type, event.Actor, event.Target)
}

// Example_auditLogging shows how permission changes flow to an audit sink.
func Example_auditLogging() {
	r := rbac.New(rbac.WithAuditLogger(printAuditLogger{}))

	_ = r.AddRole("kb_editor", authz.NewPermission("drafts", "*"))
	_ = r.AssignRole("svc-gateway", "kb_editor")
	_ = r.RevokeRole("svc-gateway", "kb_editor")

	// Each of the three calls above produces one audit entry.
}

// Example_defaultAuditLogger routes audit events through the global logger.
func Example_defaultAuditLogger() {
	r := rbac.New(rbac.WithAuditLogger(rbac.NewDefaultAuditLogger()))

	_ = r.AddRole("kb_viewer", authz.NewPermission("knowledge-bases", "read"))
	_ = r.AssignRole("svc-search", "kb_viewer")
}
