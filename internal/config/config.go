package config

import (
	"errors"
	"time"

	pkgconfig "github.com/Shepherdphiri/z-radio/pkg/config"
	"github.com/Shepherdphiri/z-radio/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Registry  RegistryConfig
	Cache     CacheConfig
	Events    EventsConfig
	Stats     StatsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

// RegistryConfig selects the broadcast store: memory, postgres, mysql or sqlite.
type RegistryConfig struct {
	Driver       string
	Database     DatabaseConfig
	WriteBehind  bool          `mapstructure:"write_behind"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	TimeZone        string `mapstructure:"timezone"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Verbose         bool
}

type CacheConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
	Redis   pubsub.RedisConfig
}

type EventsConfig struct {
	Driver    string
	QueueSize int `mapstructure:"queue_size"`
	Redis     pubsub.RedisConfig
	Kafka     pubsub.KafkaConfig
}

// PubSub returns the publisher configuration for the events section.
func (c EventsConfig) PubSub() pubsub.Config {
	return pubsub.Config{
		Driver: c.Driver,
		Redis:  c.Redis,
		Kafka:  c.Kafka,
	}
}

type StatsConfig struct {
	ConnectionQuality string `mapstructure:"connection_quality"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// IsDurable reports whether the registry lives outside the process.
func (c RegistryConfig) IsDurable() bool {
	return c.Driver != "" && c.Driver != "memory"
}

// ErrInlineRemoteWrites rejects synchronous count writes to a store that
// lives across the network.
var ErrInlineRemoteWrites = errors.New("registry.write_behind must stay enabled with a durable or cached registry")

func (c *Config) validate() error {
	if !c.Registry.WriteBehind && (c.Registry.IsDurable() || c.Cache.Enabled) {
		return ErrInlineRemoteWrites
	}
	return nil
}

func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads config.yaml from dir, then applies defaults and environment overrides.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("registry.driver", "memory")
	v.SetDefault("registry.write_behind", true)
	v.SetDefault("registry.write_timeout", "5s")
	v.SetDefault("registry.database.host", "localhost")
	v.SetDefault("registry.database.port", 5432)
	v.SetDefault("registry.database.user", "postgres")
	v.SetDefault("registry.database.password", "postgres")
	v.SetDefault("registry.database.dbname", "zradio")
	v.SetDefault("registry.database.sslmode", "disable")
	v.SetDefault("registry.database.timezone", "UTC")
	v.SetDefault("registry.database.file_path", "./data/zradio.db")
	v.SetDefault("registry.database.max_idle_conns", 10)
	v.SetDefault("registry.database.max_open_conns", 50)
	v.SetDefault("registry.database.conn_max_lifetime", 60)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "zradio:broadcast")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.queue_size", 1024)
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("stats.connection_quality", "good")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                 "PORT",
		"registry.driver":             "REGISTRY_DRIVER",
		"registry.database.host":      "DB_HOST",
		"registry.database.port":      "DB_PORT",
		"registry.database.user":      "DB_USER",
		"registry.database.password":  "DB_PASSWORD",
		"registry.database.dbname":    "DB_NAME",
		"registry.database.sslmode":   "DB_SSLMODE",
		"registry.database.file_path": "DB_FILE_PATH",
		"cache.enabled":               "CACHE_ENABLED",
		"cache.redis.address":         "REDIS_ADDRESS",
		"cache.redis.password":        "REDIS_PASSWORD",
		"events.driver":               "EVENTS_DRIVER",
		"events.redis.address":        "REDIS_ADDRESS",
		"events.redis.password":       "REDIS_PASSWORD",
		"events.kafka.brokers":        "KAFKA_BROKERS",
		"log.level":                   "LOG_LEVEL",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Registry.WriteTimeout = pkgconfig.Duration(v, "registry.write_timeout", 5*time.Second)
	cfg.Cache.TTL = pkgconfig.Duration(v, "cache.ttl", 30*time.Second)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
