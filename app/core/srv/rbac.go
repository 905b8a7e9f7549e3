package srv

import (
	"github.com/mikespook/gorbac/v2"
)

const (
	// 定义角色ID
	RoleAdmin  = "role-admin"
	RoleEditor = "role-editor"
	RoleViewer = "role-viewer"
	RoleMember = "role-member"

	// 定义权限ID
	PermissionAdmin  = "admin"
	PermissionEdit   = "edit"
	PermissionView   = "view"
	PermissionMember = "member"
)

func SetupRBACSrv() *RBACSrv {
	// 创建一个新的RBAC实例
	rbac := gorbac.New()

	// 创建权限
	pAdmin := gorbac.NewStdPermission(PermissionAdmin)
	pEdit := gorbac.NewStdPermission(PermissionEdit)
	pView := gorbac.NewStdPermission(PermissionView)
	pMember := gorbac.NewStdPermission(PermissionMember)

	// 创建角色并分配权限
	roleAdmin := gorbac.NewStdRole(RoleAdmin)
	roleAdmin.Assign(pAdmin)

	roleEditor := gorbac.NewStdRole(RoleEditor)
	roleEditor.Assign(pEdit)

	roleViewer := gorbac.NewStdRole(RoleViewer)
	roleViewer.Assign(pView)

	roleMember := gorbac.NewStdRole(RoleMember)
	roleMember.Assign(pMember)
	// 普通成员可以查看并协作编辑任务，viewer 是唯一的只读角色
	roleMember.Assign(pView)
	roleMember.Assign(pEdit)

	// 将角色添加到RBAC实例
	rbac.Add(roleAdmin)
	rbac.Add(roleEditor)
	rbac.Add(roleViewer)
	rbac.Add(roleMember)

	// 设置角色继承关系，viewer 独立于继承链保持只读
	rbac.SetParent(RoleEditor, RoleMember) // 编辑者继承成员的权限
	rbac.SetParent(RoleAdmin, RoleEditor)  // 管理者继承编辑者的权限

	return &RBACSrv{
		rbac: rbac,
	}
}

type RBACSrv struct {
	rbac *gorbac.RBAC
}

// CheckPermission 检查角色是否有某权限
func (a *RBACSrv) CheckPermission(roleID, permissionID string) bool {
	return a.rbac.IsGranted(roleID, gorbac.NewStdPermission(permissionID), nil)
}
