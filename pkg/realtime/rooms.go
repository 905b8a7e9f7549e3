package realtime

import (
	"sync"
)

// RoomManager 维护连接与房间的双向索引。
// byRoom 用于广播时枚举房间成员，byConn 用于断连时枚举并清理该连接的全部房间。
type RoomManager struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]struct{}
	byConn map[string]map[string]struct{}
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		byRoom: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join 幂等，已在房间内时返回 false
func (r *RoomManager) Join(connectionID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.byRoom[roomID]
	if !ok {
		room = make(map[string]struct{})
		r.byRoom[roomID] = room
	}
	if _, ok = room[connectionID]; ok {
		return false
	}
	room[connectionID] = struct{}{}

	joined, ok := r.byConn[connectionID]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[connectionID] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

func (r *RoomManager) Leave(connectionID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.leaveLocked(connectionID, roomID)
}

func (r *RoomManager) leaveLocked(connectionID, roomID string) bool {
	room, ok := r.byRoom[roomID]
	if !ok {
		return false
	}
	if _, ok = room[connectionID]; !ok {
		return false
	}

	delete(room, connectionID)
	if len(room) == 0 {
		delete(r.byRoom, roomID)
	}

	if joined, ok := r.byConn[connectionID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.byConn, connectionID)
		}
	}
	return true
}

func (r *RoomManager) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.byRoom[roomID]
	result := make([]string, 0, len(room))
	for connectionID := range room {
		result = append(result, connectionID)
	}
	return result
}

func (r *RoomManager) Rooms(connectionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.byConn[connectionID]
	result := make([]string, 0, len(joined))
	for roomID := range joined {
		result = append(result, roomID)
	}
	return result
}

// DropConnection 移除连接的全部房间归属，返回被退出的房间列表。
// 断连清理主动枚举房间，不依赖传输层自行回收订阅。
func (r *RoomManager) DropConnection(connectionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.byConn[connectionID]
	result := make([]string, 0, len(joined))
	for roomID := range joined {
		result = append(result, roomID)
	}
	for _, roomID := range result {
		r.leaveLocked(connectionID, roomID)
	}
	return result
}
