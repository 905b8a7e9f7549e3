package realtime

import (
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/samber/lo"

	"github.com/teamloop/teamloop/pkg/types"
)

// PresenceRecord 记录用户最近一次上线的连接及状态
type PresenceRecord struct {
	UserID       string
	ConnectionID string
	Status       types.PresenceStatus
}

// PresenceRegistry 以 userID 为键维护在线状态。
// 单活跃会话模型：重连直接覆盖旧记录，不合并，也不强制关闭旧连接。
type PresenceRegistry struct {
	records cmap.ConcurrentMap[string, PresenceRecord]
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		records: cmap.New[PresenceRecord](),
	}
}

func (p *PresenceRegistry) Connect(userID, connectionID string) {
	p.records.Set(userID, PresenceRecord{
		UserID:       userID,
		ConnectionID: connectionID,
		Status:       types.PRESENCE_ONLINE,
	})
}

func (p *PresenceRegistry) Disconnect(userID string) {
	p.records.Remove(userID)
}

// SetStatus 更新用户状态，用户不在线时返回 false
func (p *PresenceRegistry) SetStatus(userID string, status types.PresenceStatus) bool {
	record, ok := p.records.Get(userID)
	if !ok {
		return false
	}
	record.Status = status
	p.records.Set(userID, record)
	return true
}

func (p *PresenceRegistry) Get(userID string) (PresenceRecord, bool) {
	return p.records.Get(userID)
}

func (p *PresenceRegistry) IsOnline(userID string) bool {
	return p.records.Has(userID)
}

// OnlineUsers 返回当前在线的用户，filter 非空时仅返回其中在线的部分
func (p *PresenceRegistry) OnlineUsers(filter []string) []string {
	if len(filter) > 0 {
		return lo.Filter(filter, func(userID string, _ int) bool {
			return p.records.Has(userID)
		})
	}
	return p.records.Keys()
}
