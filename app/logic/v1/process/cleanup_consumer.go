package process

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/teamloop/teamloop/pkg/queue"
	"github.com/teamloop/teamloop/pkg/register"
)

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		startCleanupConsumer(p)

		slog.Info("Conversation cleanup consumer started")
	})
}

// startCleanupConsumer 注册会话清理任务的消费者
func startCleanupConsumer(p *Process) {
	core := p.Core()

	client := p.AsynqClient()
	if client == nil {
		slog.Error("Asynq client not initialized")
		return
	}

	cleanupQueue := queue.NewCleanupQueueWithClient(core.Cfg().Redis.KeyPrefix, client)
	p.SetCleanupQueue(cleanupQueue)

	mux := p.AsynqServerMux()
	mux.HandleFunc(queue.TaskTypeConversationCleanup, func(ctx context.Context, task *asynq.Task) error {
		var payload queue.ConversationCleanupTask
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("Failed to unmarshal task payload", slog.String("error", err.Error()))
			return err
		}

		slog.Info("Processing conversation cleanup task",
			slog.String("conversation_id", payload.ConversationID))

		if err := core.Store().ChatMessageStore().DeleteAll(ctx, payload.ConversationID); err != nil {
			slog.Error("Failed to purge conversation messages",
				slog.String("conversation_id", payload.ConversationID),
				slog.String("error", err.Error()))
			return err
		}

		slog.Info("Conversation cleanup task completed",
			slog.String("conversation_id", payload.ConversationID))

		return nil
	})
}
