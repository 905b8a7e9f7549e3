package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
)

// TestCleanupQueue_SetupHandler 测试处理器注册与分发
func TestCleanupQueue_SetupHandler(t *testing.T) {
	queue := NewCleanupQueueWithClient("test", nil)

	var received ConversationCleanupTask
	testHandler := func(ctx context.Context, task *asynq.Task) error {
		if task.Type() != TaskTypeConversationCleanup {
			t.Errorf("Expected task type %q, got %q", TaskTypeConversationCleanup, task.Type())
		}

		if err := json.Unmarshal(task.Payload(), &received); err != nil {
			t.Errorf("Failed to unmarshal task payload: %v", err)
		}
		return nil
	}

	mux := queue.SetupHandler(testHandler)
	if mux == nil {
		t.Fatal("SetupHandler returned nil")
	}

	// 直接通过 mux 分发任务，不依赖 Redis
	payload, err := json.Marshal(&ConversationCleanupTask{ConversationID: "c-1"})
	if err != nil {
		t.Fatalf("Failed to marshal task: %v", err)
	}

	task := asynq.NewTask(TaskTypeConversationCleanup, payload)
	if err := mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	if received.ConversationID != "c-1" {
		t.Errorf("Handler received wrong conversation id: %q", received.ConversationID)
	}
}

// TestCleanupQueue_DefaultKeyPrefix 测试默认 keyPrefix 兜底
func TestCleanupQueue_DefaultKeyPrefix(t *testing.T) {
	queue := NewCleanupQueueWithClient("", nil)

	if queue.keyPrefix != "teamloop" {
		t.Errorf("Expected default keyPrefix %q, got %q", "teamloop", queue.keyPrefix)
	}
}
