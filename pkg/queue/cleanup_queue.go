package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// 任务类型
	TaskTypeConversationCleanup = "conversation:cleanup"

	// 清理队列名称
	CleanupQueueName = "cleanup"

	// 重试和超时配置
	MaxRetries  = 3
	TaskTimeout = 5 * time.Minute
)

// ConversationCleanupTask 会话删除后的异步清理任务
type ConversationCleanupTask struct {
	ConversationID string `json:"conversation_id"`
}

// CleanupQueue 基于 Asynq 的队列管理器。
// 消费端由 process 包的共享 Server 驱动，这里只负责入队与处理器装配。
type CleanupQueue struct {
	client    *asynq.Client
	keyPrefix string
}

// NewCleanupQueueWithClient 使用已存在的 Client 创建队列
// 适用于多个队列共享同一个 asynq 连接的场景
func NewCleanupQueueWithClient(keyPrefix string, client *asynq.Client) *CleanupQueue {
	if keyPrefix == "" {
		keyPrefix = "teamloop"
	}

	return &CleanupQueue{
		keyPrefix: keyPrefix,
		client:    client,
	}
}

// EnqueueTask 将清理任务加入队列
func (q *CleanupQueue) EnqueueTask(ctx context.Context, conversationID string) error {
	task := &ConversationCleanupTask{
		ConversationID: conversationID,
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeConversationCleanup, payload,
		asynq.MaxRetry(MaxRetries),
		asynq.Timeout(TaskTimeout),
		asynq.Unique(time.Hour), // 1小时内不重复
		asynq.Queue(CleanupQueueName),
	))

	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	slog.Info("Conversation cleanup task enqueued",
		slog.String("conversation_id", conversationID))

	return nil
}

// HandlerFunc Asynq 任务处理器函数类型
type HandlerFunc func(ctx context.Context, task *asynq.Task) error

// SetupHandler 设置任务处理器
func (q *CleanupQueue) SetupHandler(handler HandlerFunc) *asynq.ServeMux {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskTypeConversationCleanup, func(ctx context.Context, task *asynq.Task) error {
		return handler(ctx, task)
	})

	return mux
}

// asynqLogger 适配器，将 asynq 日志输出到项目的 slog
type asynqLogger struct{}

func NewAsynqLogger() *asynqLogger {
	return &asynqLogger{}
}

func (l *asynqLogger) Debug(args ...any) {
	slog.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...any) {
	slog.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...any) {
	slog.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...any) {
	slog.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...any) {
	slog.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Shutdown 优雅关闭队列资源
func (q *CleanupQueue) Shutdown() {
	slog.Info("Shutting down cleanup queue")

	if q.client != nil {
		if err := q.client.Close(); err != nil {
			slog.Error("Failed to close asynq client", slog.String("error", err.Error()))
		} else {
			slog.Info("Asynq client closed")
		}
	}
}
