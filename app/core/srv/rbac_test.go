package srv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRBACSrv_CheckPermission(t *testing.T) {
	rbac := SetupRBACSrv()

	assert.True(t, rbac.CheckPermission(RoleMember, PermissionEdit))
	assert.True(t, rbac.CheckPermission(RoleMember, PermissionView))
	assert.True(t, rbac.CheckPermission(RoleEditor, PermissionEdit))
	assert.True(t, rbac.CheckPermission(RoleAdmin, PermissionAdmin))
	assert.True(t, rbac.CheckPermission(RoleAdmin, PermissionEdit))

	// viewer 只读，不能透传任务更新
	assert.True(t, rbac.CheckPermission(RoleViewer, PermissionView))
	assert.False(t, rbac.CheckPermission(RoleViewer, PermissionEdit))
	assert.False(t, rbac.CheckPermission(RoleMember, PermissionAdmin))
}
