// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"time"

	"team_chat_server/pkg/constants"

	"github.com/BurntSushi/toml"
)

// MainConfig 主配置
type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Mode    string `toml:"mode"`    // dev / release，影响日志输出与 gin 模式
	Version string `toml:"version"` // 写入 hello 信封的 server_version
}

// DatabaseConfig 关系型数据库配置
// Driver 取值 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver          string `toml:"driver"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DatabaseName    string `toml:"databaseName"`
	SSLMode         string `toml:"sslMode"` // 仅 postgres
	DSN             string `toml:"dsn"`     // 非空时直接使用，sqlite 下为文件路径
	MaxOpenConns    int    `toml:"maxOpenConns"`
	MaxIdleConns    int    `toml:"maxIdleConns"`
	ConnMaxLifetime int    `toml:"connMaxLifetime"` // 秒
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Password   string `toml:"password"`
	Db         int    `toml:"db"`
	PoolSize   int    `toml:"poolSize"`
	WorkerNum  int    `toml:"workerNum"`  // 异步任务 worker 数
	TaskBuffer int    `toml:"taskBuffer"` // 异步任务缓冲区大小
	InMemory   bool   `toml:"inMemory"`   // 单进程开发模式，计数缓存放在进程内
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`
	FileName   string `toml:"fileName"`
	MaxSize    int    `toml:"maxSize"`    // MB
	MaxBackups int    `toml:"maxBackups"` // 个
	MaxAge     int    `toml:"maxAge"`     // 天
	Level      string `toml:"level"`
}

// JWTConfig JWT 校验配置
type JWTConfig struct {
	Secret            string `toml:"secret"`
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // 分钟
}

// HubConfig 实时连接相关配置
type HubConfig struct {
	MaxSessionsPerUser int           `toml:"maxSessionsPerUser"`
	OutboundQueueSize  int           `toml:"outboundQueueSize"`
	AuthTimeout        time.Duration `toml:"authTimeout"` // 秒
	WriteWait          time.Duration `toml:"writeWait"`   // 秒
	PongWait           time.Duration `toml:"pongWait"`    // 秒
	MaxMessageSize     int64         `toml:"maxMessageSize"`
	MaxParseErrors     int           `toml:"maxParseErrors"`
	AllowedOrigins     []string      `toml:"allowedOrigins"` // 为空时不校验 Origin
}

// KafkaConfig 事件导出配置
// 启用后每个分发的信封都会镜像写入 EventTopic，供审计/分析消费
type KafkaConfig struct {
	Enabled    bool          `toml:"enabled"`
	HostPort   string        `toml:"hostPort"`
	EventTopic string        `toml:"eventTopic"`
	Timeout    time.Duration `toml:"timeout"` // 秒
	BatchSize  int           `toml:"batchSize"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// TracingConfig OpenTelemetry 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Endpoint    string  `toml:"endpoint"` // OTLP gRPC 地址，如 "localhost:4317"
	SampleRatio float64 `toml:"sampleRatio"`
}

// JobConfig 定时任务配置
type JobConfig struct {
	PresenceSyncSpec string `toml:"presenceSyncSpec"` // cron 表达式，为空则不启动
}

// TLSConfig HTTPS 配置
type TLSConfig struct {
	Redirect bool   `toml:"redirect"` // 是否将 HTTP 请求重定向到 HTTPS
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	CertFile string `toml:"certFile"`
	KeyFile  string `toml:"keyFile"`
}

// Config 应用程序总配置
type Config struct {
	MainConfig     `toml:"mainConfig"`
	DatabaseConfig `toml:"databaseConfig"`
	RedisConfig    `toml:"redisConfig"`
	LogConfig      `toml:"logConfig"`
	JWTConfig      `toml:"jwtConfig"`
	HubConfig      `toml:"hubConfig"`
	KafkaConfig    `toml:"kafkaConfig"`
	MetricsConfig  `toml:"metricsConfig"`
	TracingConfig  `toml:"tracingConfig"`
	JobConfig      `toml:"jobConfig"`
	TLSConfig      `toml:"tlsConfig"`
}

var config *Config

// LoadConfig 从多个候选路径加载配置文件，找到第一个可用的即停止
func LoadConfig() error {
	paths := []string{
		"configs/config_local.toml",
		"configs/config.toml",
		"../../configs/config_local.toml",
		"../../configs/config.toml",
	}
	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}
	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例（单例）
// 首次调用时加载配置文件，找不到时使用默认值
func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig()
		config.ApplyDefaults()
	}
	return config
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "team_chat_server"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 50
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.RedisConfig.Port == 0 {
		c.RedisConfig.Port = 6379
	}
	if c.RedisConfig.Host == "" {
		c.RedisConfig.Host = "127.0.0.1"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 50
	}
	if c.WorkerNum == 0 {
		c.WorkerNum = 8
	}
	if c.TaskBuffer == 0 {
		c.TaskBuffer = 1000
	}
	if c.AccessTokenExpiry == 0 {
		c.AccessTokenExpiry = constants.ACCESS_TOKEN_EXPIRY_MIN
	}
	c.HubConfig.applyDefaults()
	if c.EventTopic == "" {
		c.EventTopic = "team_chat_events"
	}
	if c.KafkaConfig.Timeout == 0 {
		c.KafkaConfig.Timeout = 5
	}
	if c.MetricsConfig.Path == "" {
		c.MetricsConfig.Path = "/metrics"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
}

func (h *HubConfig) applyDefaults() {
	if h.MaxSessionsPerUser == 0 {
		h.MaxSessionsPerUser = constants.MAX_SESSIONS_PER_USER
	}
	if h.OutboundQueueSize == 0 {
		h.OutboundQueueSize = 100
	}
	if h.AuthTimeout == 0 {
		h.AuthTimeout = 10
	}
	if h.WriteWait == 0 {
		h.WriteWait = 10
	}
	if h.PongWait == 0 {
		h.PongWait = 60
	}
	if h.MaxMessageSize == 0 {
		h.MaxMessageSize = 64 * 1024
	}
	if h.MaxParseErrors == 0 {
		h.MaxParseErrors = 5
	}
}
