package core

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type LimitConfig struct {
	Limit int
	Every time.Duration
}

type LimitOption func(l *LimitConfig)

func WithLimit(limit int) LimitOption {
	return func(l *LimitConfig) {
		l.Limit = limit
	}
}

func WithRange(r time.Duration) LimitOption {
	return func(l *LimitConfig) {
		l.Every = r
	}
}

type Limiter interface {
	Allow() bool
}

var (
	limiterMu sync.Mutex
	limiters  = make(map[string]*rate.Limiter)
)

// UseLimiter 按 key 维护令牌桶，limit 代表每分钟允许的数量
func (s *Core) UseLimiter(key string, opts ...LimitOption) Limiter {
	cfg := &LimitConfig{
		Limit: 60,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiterMu.Lock()
	defer limiterMu.Unlock()

	l, exist := limiters[key]
	if !exist {
		every := cfg.Every
		if every == 0 {
			every = time.Minute
		}
		l = rate.NewLimiter(rate.Every(every/time.Duration(cfg.Limit)), cfg.Limit*2)
		limiters[key] = l
	}
	return l
}
