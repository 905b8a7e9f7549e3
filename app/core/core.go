package core

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/teamloop/teamloop/app/core/srv"
	"github.com/teamloop/teamloop/app/store/sqlstore"
	"github.com/teamloop/teamloop/pkg/types"
	"github.com/teamloop/teamloop/pkg/utils"
)

type Core struct {
	cfg CoreConfig
	srv *srv.Srv

	stores     func() *sqlstore.Provider
	httpClient *http.Client
	httpEngine *gin.Engine

	redis     redis.UniversalClient
	publicKey []byte

	metrics *Metrics
}

func MustSetupCore(cfg CoreConfig) *Core {
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	utils.SetupIDWorker(1)

	core := &Core{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Second * 3},
		metrics:    NewMetrics("teamloop", "core"),
		httpEngine: gin.New(),
	}

	// setup store
	setupSqlStore(core)
	setupRedis(core)

	if cfg.Security.PublicKeyPath != "" {
		raw, err := os.ReadFile(cfg.Security.PublicKeyPath)
		if err != nil {
			panic(err)
		}
		core.publicKey = raw
	}

	core.srv = srv.SetupSrvs()

	return core
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) PublicKey() []byte {
	return s.publicKey
}

func (s *Core) DefaultAppid() string {
	return types.DEFAULT_APPID
}

func setupSqlStore(core *Core) {
	core.stores = sqlstore.MustSetup(core.cfg.Postgres)
	// 执行数据库表初始化
	if err := core.stores().Install(); err != nil {
		panic(err)
	}
}

func setupRedis(core *Core) {
	cfg := core.cfg.Redis
	if cfg.Cluster {
		core.redis = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.ClusterAddrs,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
		})
		return
	}
	core.redis = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

func (s *Core) Cache() types.Cache {
	return &Cache{redis: s.redis}
}

func (s *Core) Store() *sqlstore.Provider {
	return s.stores()
}

func (s *Core) Srv() *srv.Srv {
	return s.srv
}
