package realtime

import (
	"sync"
)

// TypingTracker 维护每个会话当前正在输入的用户集合。
// 集合清空后整个 entry 随之删除，不会残留空集合。
type TypingTracker struct {
	mu      sync.Mutex
	typists map[string]map[string]struct{}
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		typists: make(map[string]map[string]struct{}),
	}
}

func (t *TypingTracker) Start(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.typists[conversationID]
	if !ok {
		set = make(map[string]struct{})
		t.typists[conversationID] = set
	}
	set[userID] = struct{}{}
}

// Remove 将用户移出指定会话的输入集合，返回集合是否因此发生变化。
// 用户本就不在集合中时为无害 no-op。
func (t *TypingTracker) Remove(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.removeLocked(conversationID, userID)
}

func (t *TypingTracker) removeLocked(conversationID, userID string) bool {
	set, ok := t.typists[conversationID]
	if !ok {
		return false
	}
	if _, ok = set[userID]; !ok {
		return false
	}

	delete(set, userID)
	if len(set) == 0 {
		delete(t.typists, conversationID)
	}
	return true
}

// Sweep 将用户从所有会话的输入集合中移除，返回发生变化的会话列表。
// 断连清理依赖该方法保证不留下孤儿 typing 状态。
func (t *TypingTracker) Sweep(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changed []string
	for conversationID := range t.typists {
		if t.removeLocked(conversationID, userID) {
			changed = append(changed, conversationID)
		}
	}
	return changed
}

// Entries 返回所有会话当前输入集合的快照
func (t *TypingTracker) Entries() map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[string][]string, len(t.typists))
	for conversationID, set := range t.typists {
		users := make([]string, 0, len(set))
		for userID := range set {
			users = append(users, userID)
		}
		snapshot[conversationID] = users
	}
	return snapshot
}

func (t *TypingTracker) Typists(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.typists[conversationID]
	result := make([]string, 0, len(set))
	for userID := range set {
		result = append(result, userID)
	}
	return result
}
