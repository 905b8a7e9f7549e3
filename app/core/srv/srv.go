package srv

import (
	"github.com/teamloop/teamloop/pkg/realtime"
)

type Srv struct {
	rbac     *RBACSrv
	realtime *realtime.Gateway
}

type ApplyFunc func(*Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{
		rbac: SetupRBACSrv(), // 角色鉴权
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InstallRealtime 挂载实时网关。网关依赖的鉴权与消息落库实现由业务层提供，
// 因此在 core 构建完成后再注入。
func (s *Srv) InstallRealtime(gateway *realtime.Gateway) {
	s.realtime = gateway
}

func (s *Srv) Realtime() *realtime.Gateway {
	return s.realtime
}

func (s *Srv) RBAC() *RBACSrv {
	return s.rbac
}
