package process

import (
	"log/slog"

	"github.com/teamloop/teamloop/pkg/register"
)

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		interval := p.Core().Cfg().Realtime.StatsInterval
		if interval == "" {
			interval = "*/5 * * * *"
		}

		if _, err := p.Cron().AddFunc(interval, func() {
			reportPresenceStats(p)
		}); err != nil {
			slog.Error("Failed to schedule presence stats reporter", slog.String("error", err.Error()))
			return
		}

		slog.Info("Presence stats reporter scheduled", slog.String("interval", interval))
	})
}

// reportPresenceStats 周期性输出在线人数与连接数，并顺带巡检残留的输入状态。
// 网关未安装时跳过。
func reportPresenceStats(p *Process) {
	gateway := p.Core().Srv().Realtime()
	if gateway == nil {
		return
	}

	online := gateway.Presence().OnlineUsers(nil)
	connections := gateway.Hub().Len()

	slog.Info("Realtime presence stats",
		slog.Int("online_users", len(online)),
		slog.Int("connections", connections))

	if cleared := gateway.SweepStaleTyping(); cleared > 0 {
		slog.Warn("Stale typing audit cleared entries", slog.Int("cleared", cleared))
	}
}
