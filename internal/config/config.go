package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"taskpager/pkg/logger"
)

const (
	// EnvConfigPath 指定配置文件路径。
	EnvConfigPath = "TASKPAGER_CONFIG"
	// DefaultConfigPath 在未设置 EnvConfigPath 时尝试读取，不存在则只使用默认值。
	DefaultConfigPath = "configs/taskpager.yaml"
)

// Config 描述了服务启动阶段需要加载的全部配置。
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Events  EventsConfig  `json:"events" yaml:"events"`
	Log     logger.Config `json:"log" yaml:"log"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address                string `json:"address" yaml:"address"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// ShutdownTimeout 返回优雅退出的最长等待时间。
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// StorageConfig 选择任务存储的实现。
type StorageConfig struct {
	Driver string      `json:"driver" yaml:"driver"`
	MySQL  MySQLConfig `json:"mysql" yaml:"mysql"`
	Redis  RedisConfig `json:"redis" yaml:"redis"`
}

// MySQLConfig 描述 MySQL 连接池参数。
type MySQLConfig struct {
	DSN                    string `json:"dsn" yaml:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds" yaml:"conn_max_idle_time_seconds"`
}

// RedisConfig 描述 Redis 连接，同时被 Redis 存储和 Redis 事件发布使用。
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// EventsConfig 选择任务事件的投递方式。
type EventsConfig struct {
	Driver     string         `json:"driver" yaml:"driver"`
	BufferSize int            `json:"buffer_size" yaml:"buffer_size"`
	RedisKey   string         `json:"redis_key" yaml:"redis_key"`
	RabbitMQ   RabbitMQConfig `json:"rabbitmq" yaml:"rabbitmq"`
}

// RabbitMQConfig 描述 RabbitMQ 事件队列。
type RabbitMQConfig struct {
	URL        string `json:"url" yaml:"url"`
	Queue      string `json:"queue" yaml:"queue"`
	Durable    bool   `json:"durable" yaml:"durable"`
	AutoDelete bool   `json:"auto_delete" yaml:"auto_delete"`
}

// Load 解析指定路径的配置文件，.yaml/.yml 使用 YAML，其余按 JSON 处理。
// 文件内容之上依次叠加环境变量与默认值。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	default:
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return finish(&cfg)
}

// LoadFromEnv 先加载工作目录下的 .env，再读取 TASKPAGER_CONFIG 指向的文件。
// 未设置该变量且默认文件不存在时，仅使用环境变量和默认值。
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}

	path := strings.TrimSpace(os.Getenv(EnvConfigPath))
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return Load(DefaultConfigPath)
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖文件中的配置。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if port, ok := get("PORT"); ok {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return fmt.Errorf("PORT 不是合法端口: %q", port)
		}
		c.Server.Address = ":" + port
	}
	if driver, ok := get("STORE_DRIVER"); ok {
		c.Storage.Driver = driver
	}
	if dsn, ok := get("STORE_DSN"); ok {
		c.Storage.MySQL.DSN = dsn
	}
	if addr, ok := get("REDIS_ADDR"); ok {
		c.Storage.Redis.Address = addr
	}
	if password, ok := get("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = password
	}
	if driver, ok := get("EVENTS_DRIVER"); ok {
		c.Events.Driver = driver
	}
	if url, ok := get("RABBITMQ_URL"); ok {
		c.Events.RabbitMQ.URL = url
	}
	if level, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = level
	}
	if format, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = format
	}
	return nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":4000"
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 5
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "taskpager"
	}

	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	if c.Events.Driver == "" {
		c.Events.Driver = "memory"
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 1024
	}
	if c.Events.RedisKey == "" {
		c.Events.RedisKey = c.Storage.Redis.KeyPrefix + ":events"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "taskpager.events"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate 检查驱动选择与其必需参数是否匹配。
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "mysql":
		if strings.TrimSpace(c.Storage.MySQL.DSN) == "" {
			return errors.New("mysql 存储需要配置 storage.mysql.dsn 或 STORE_DSN")
		}
	case "redis":
		if c.Storage.Redis.Address == "" {
			return errors.New("redis 存储需要配置 storage.redis.address 或 REDIS_ADDR")
		}
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Storage.Driver)
	}

	switch c.Events.Driver {
	case "none", "memory":
	case "redis":
		if c.Storage.Redis.Address == "" {
			return errors.New("redis 事件需要配置 storage.redis.address 或 REDIS_ADDR")
		}
	case "rabbitmq":
		if c.Events.RabbitMQ.URL == "" {
			return errors.New("rabbitmq 事件需要配置 events.rabbitmq.url 或 RABBITMQ_URL")
		}
	default:
		return fmt.Errorf("未知的事件驱动: %s", c.Events.Driver)
	}
	return nil
}
