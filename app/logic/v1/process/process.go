package process

import (
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/teamloop/teamloop/app/core"
	"github.com/teamloop/teamloop/pkg/queue"
	"github.com/teamloop/teamloop/pkg/register"
)

// CleanupQueue 暴露给逻辑层入队用，process 未启动时返回 nil
func CleanupQueue() *queue.CleanupQueue {
	if p == nil {
		return nil
	}
	return p.cleanupQueue
}

type Process struct {
	cron         *cron.Cron
	core         *core.Core
	asynqClient  *asynq.Client
	asynqServer  *asynq.Server
	asynqMux     *asynq.ServeMux
	cleanupQueue *queue.CleanupQueue
}

var p *Process

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p = &Process{
		cron: cron.New(),
		core: core,
	}

	// 创建共享的 asynq Client 和 Server（在注册处理器之前）
	cfg := core.Cfg().Redis

	var redisOpt asynq.RedisConnOpt
	if cfg.Cluster {
		redisOpt = asynq.RedisClusterClientOpt{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.Password,
		}
	} else {
		redisOpt = asynq.RedisClientOpt{
			Network:  "tcp",
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	p.asynqClient = asynq.NewClient(redisOpt)

	p.asynqServer = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    2,
		StrictPriority: false,
		Logger:         queue.NewAsynqLogger(),
		Queues: map[string]int{
			queue.CleanupQueueName: 1,
		},
	})

	p.asynqMux = asynq.NewServeMux()

	for _, h := range register.ResolveFuncHandlers[*Process](ProcessKey{}) {
		h(p)
	}

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) AsynqClient() *asynq.Client {
	return p.asynqClient
}

func (p *Process) AsynqServerMux() *asynq.ServeMux {
	return p.asynqMux
}

func (p *Process) SetCleanupQueue(cleanupQueue *queue.CleanupQueue) {
	p.cleanupQueue = cleanupQueue
}

func (p *Process) Start() {
	p.cron.Start()
	go p.asynqServer.Run(p.asynqMux)
}

func (p *Process) Stop() {
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}

	if p.cleanupQueue != nil {
		p.cleanupQueue.Shutdown()
	}

	if p.asynqServer != nil {
		p.asynqServer.Shutdown()
	}
}
