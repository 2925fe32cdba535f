package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"3000"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"attendance-bot"`
	BotName     string `env:"BOT_NAME" envDefault:"Attendance Bot"`

	// Slack 配置
	SlackBotToken       string `env:"SLACK_BOT_TOKEN"`
	SlackSigningSecret  string `env:"SLACK_SIGNING_SECRET"`
	SlackVerifyDisabled bool   `env:"SLACK_VERIFY_DISABLED" envDefault:"false"`
	SlackAPIURL         string `env:"SLACK_API_URL"` // 留空使用 slack-go 默认地址
	SlashCommand        string `env:"SLASH_COMMAND" envDefault:"/leave-summary"`

	// 考勤来源与输出
	SourceChannel string   `env:"SOURCE_CHANNEL" envDefault:"attendance"`
	TargetChannel string   `env:"TARGET_CHANNEL" envDefault:"ops"`
	Timezone      string   `env:"TIMEZONE" envDefault:"Asia/Manila"`
	ExcludedUsers []string `env:"EXCLUDED_USERS" envSeparator:","`
	CheckInMode   string   `env:"CHECKIN_MODE" envDefault:"strict"` // strict, substring, leave

	// 调度配置（HH:MM:SS，按 TIMEZONE 解释）
	DailyReportAt  string `env:"DAILY_REPORT_AT" envDefault:"10:00:00"`
	WeeklyReportAt string `env:"WEEKLY_REPORT_AT" envDefault:"17:00:00"`

	// 报表流水线
	ProfileLookupConcurrency int           `env:"PROFILE_LOOKUP_CONCURRENCY" envDefault:"1"`
	CommandTimeout           time.Duration `env:"COMMAND_TIMEOUT" envDefault:"2m"`
	HistoryMaxPages          int           `env:"HISTORY_MAX_PAGES" envDefault:"20"`

	// 请假台账存储：memory, postgres
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"memory"`

	// PostgreSQL 配置
	PostgreSQLHost         string   `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort         string   `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser         string   `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword     string   `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase     string   `env:"POSTGRESQL_DATABASE" envDefault:"attendance"`
	PostgreSQLSchema       string   `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode      string   `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle      int      `env:"POSTGRESQL_MAX_IDLE" envDefault:"5"`
	PostgreSQLMaxOpen      int      `env:"POSTGRESQL_MAX_OPEN" envDefault:"20"`
	PostgreSQLReplicaHosts []string `env:"POSTGRESQL_REPLICA_HOSTS" envSeparator:","`

	// Redis 配置
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"atb"`

	// 缓存 TTL
	ChannelCacheTTL time.Duration `env:"CHANNEL_CACHE_TTL" envDefault:"1h"`
	ProfileCacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"6h"`

	// RabbitMQ 配置
	QueueEnabled     bool   `env:"QUEUE_ENABLED" envDefault:"false"`
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪与指标
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"dev"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitWindow  int  `env:"RATE_LIMIT_WINDOW" envDefault:"60"`
	RateLimitMax     int  `env:"RATE_LIMIT_MAX" envDefault:"10"` // 每个 Slack 用户窗口内最多命令数
}

// Load 读取 .env 与环境变量并校验。
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	Cfg = cfg
	return nil
}

// MustLoad 是 Load 的 cmd 入口版本，失败直接退出。
func MustLoad() {
	if err := Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func (c *Config) Validate() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	if c.SlackSigningSecret == "" && !c.SlackVerifyDisabled {
		return fmt.Errorf("SLACK_SIGNING_SECRET is required unless SLACK_VERIFY_DISABLED=true")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Timezone, err)
	}

	switch strings.ToLower(c.CheckInMode) {
	case "strict", "substring", "leave":
	default:
		return fmt.Errorf("CHECKIN_MODE must be one of strict, substring, leave; got %q", c.CheckInMode)
	}

	switch strings.ToLower(c.LedgerBackend) {
	case "memory", "postgres":
	default:
		return fmt.Errorf("LEDGER_BACKEND must be memory or postgres; got %q", c.LedgerBackend)
	}

	if c.SourceChannel == "" || c.TargetChannel == "" {
		return fmt.Errorf("SOURCE_CHANNEL and TARGET_CHANNEL are required")
	}

	if c.SlackVerifyDisabled {
		log.Printf("WARN: SLACK_VERIFY_DISABLED is set, slash command signatures will not be checked")
	}

	if c.QueueEnabled && !c.RedisEnabled {
		log.Printf("WARN: QUEUE_ENABLED without REDIS_ENABLED, consumer idempotency is disabled")
	}

	return nil
}

// Location 返回报表统一使用的时区，Validate 之后不会失败。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetDSN() string {
	return c.dsnForHost(c.PostgreSQLHost)
}

// GetReplicaDSNs 为每个只读副本生成 DSN，其余参数与主库一致。
func (c *Config) GetReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.PostgreSQLReplicaHosts))
	for _, host := range c.PostgreSQLReplicaHosts {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		dsns = append(dsns, c.dsnForHost(host))
	}
	return dsns
}

func (c *Config) dsnForHost(host string) string {
	return "host=" + host +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
