package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr     string         `toml:"addr"`
	Log      Log            `toml:"log"`
	Postgres PGConfig       `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Realtime RealtimeConfig `toml:"realtime"`
	Security Security       `toml:"security"`
}

// RealtimeConfig 实时层运行参数
type RealtimeConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"` // 允许升级的 Origin 列表，为空表示不校验
	StoreTimeout   int      `toml:"store_timeout"`   // 消息落库调用超时(秒)，默认10
	StatsInterval  string   `toml:"stats_interval"`  // 在线统计任务 cron 表达式
}

type Security struct {
	PublicKeyPath string `toml:"public_key_path"` // 校验登录签发 JWT 的公钥
	TokenCacheTTL int    `toml:"token_cache_ttl"` // token 校验结果缓存时长(秒)
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("TEAMLOOP_API_SERVICE_ADDRESS")
	c.Security.PublicKeyPath = os.Getenv("TEAMLOOP_SECURITY_PUBLIC_KEY_PATH")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("TEAMLOOP_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	// 单机模式配置
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 集群模式配置
	Cluster      bool     `toml:"cluster"`       // 是否启用集群模式
	ClusterAddrs []string `toml:"cluster_addrs"` // 集群节点地址列表

	// 连接池配置
	PoolSize     int `toml:"pool_size"`      // 连接池大小，默认10
	MinIdleConns int `toml:"min_idle_conns"` // 最小空闲连接数，默认0

	// 队列配置
	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("TEAMLOOP_REDIS_ADDR")
	r.Password = os.Getenv("TEAMLOOP_REDIS_PASSWORD")
	if dbStr := os.Getenv("TEAMLOOP_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("TEAMLOOP_API_LOG_LEVEL")
	l.Path = os.Getenv("TEAMLOOP_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
