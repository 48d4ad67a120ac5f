package casbin

import (
	"context"
	"os"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

func newTestService(t *testing.T) PermissionService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	tmpModel, err := os.CreateTemp("", "kb_authz_model.conf")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpModel.Name()) })

	_, err = tmpModel.WriteString(testModel)
	require.NoError(t, err)
	tmpModel.Close()

	svc, err := NewServiceWithGorm(db, tmpModel.Name())
	require.NoError(t, err)
	return svc
}

func TestGormServiceEnforcement(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Editors may update documents, viewers may only read them.
	assert.NoError(t, svc.AddPolicy("kb_editor", "documents", "update"))
	assert.NoError(t, svc.AddPolicy("kb_editor", "documents", "read"))
	assert.NoError(t, svc.AddPolicy("kb_viewer", "documents", "read"))

	assert.NoError(t, svc.AddRoleForUser("svc-ingest", "kb_editor"))
	assert.NoError(t, svc.AddRoleForUser("svc-search", "kb_viewer"))

	allowed, err := svc.Authorize(ctx, "svc-ingest", "documents", "update")
	assert.NoError(t, err)
	assert.True(t, allowed, "editor should update documents")

	allowed, err = svc.Authorize(ctx, "svc-search", "documents", "update")
	assert.NoError(t, err)
	assert.False(t, allowed, "viewer must not update documents")

	allowed, err = svc.Authorize(ctx, "svc-search", "documents", "read")
	assert.NoError(t, err)
	assert.True(t, allowed)

	// Unknown subjects get nothing.
	allowed, err = svc.Authorize(ctx, "anonymous", "documents", "read")
	assert.NoError(t, err)
	assert.False(t, allowed)
}

func TestGormServiceRoleManagement(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.AddPolicy("kb_admin", "drafts", "delete"))
	assert.NoError(t, svc.AddRoleForUser("ops-bot", "kb_admin"))

	roles, err := svc.GetRolesForUser("ops-bot")
	assert.NoError(t, err)
	assert.Equal(t, []string{"kb_admin"}, roles)

	allowed, err := svc.Authorize(ctx, "ops-bot", "drafts", "delete")
	assert.NoError(t, err)
	assert.True(t, allowed)

	// Revoking the role drops the inherited permission.
	assert.NoError(t, svc.DeleteRoleForUser("ops-bot", "kb_admin"))
	allowed, err = svc.Authorize(ctx, "ops-bot", "drafts", "delete")
	assert.NoError(t, err)
	assert.False(t, allowed)

	// Removing the policy affects remaining role holders.
	assert.NoError(t, svc.AddRoleForUser("ops-bot", "kb_admin"))
	assert.NoError(t, svc.RemovePolicy("kb_admin", "drafts", "delete"))
	allowed, err = svc.Authorize(ctx, "ops-bot", "drafts", "delete")
	assert.NoError(t, err)
	assert.False(t, allowed)
}
