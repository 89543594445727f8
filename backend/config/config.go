package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
	Workflow    WorkflowConfig    `mapstructure:"workflow"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
	RateLimit    RateLimit  `mapstructure:"rate_limit"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// RateLimit 写接口限流配置（依赖 Redis，未连接时降级放行）
type RateLimit struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// Token 由外部身份服务签发，本服务只负责校验
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkflowConfig 编码申请与盘点流程配置
type WorkflowConfig struct {
	CodeLength     int           `mapstructure:"code_length"`
	MaxCountPasses int           `mapstructure:"max_count_passes"`
	ClaimTTL       time.Duration `mapstructure:"claim_ttl"`      // 0 表示认领永不过期
	SweepInterval  time.Duration `mapstructure:"sweep_interval"` // 过期认领扫描周期
}

// PermissionsConfig 动作 → 允许的角色列表
type PermissionsConfig struct {
	Approve      []string `mapstructure:"approve"`
	Reject       []string `mapstructure:"reject"`
	Override     []string `mapstructure:"override"`
	Adjust       []string `mapstructure:"adjust"`
	Delete       []string `mapstructure:"delete"`
	ForceRelease []string `mapstructure:"force_release"`
	Catalog      []string `mapstructure:"catalog"`
}

// NotifyConfig 变更通知配置
type NotifyConfig struct {
	Channel string `mapstructure:"channel"`
	Buffer  int    `mapstructure:"buffer"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.limit", 60)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "valve_vault")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Sao_Paulo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "valve-vault")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("workflow.code_length", 6)
	v.SetDefault("workflow.max_count_passes", 3)
	v.SetDefault("workflow.claim_ttl", "0s")
	v.SetDefault("workflow.sweep_interval", "1m")

	v.SetDefault("permissions.approve", []string{"admin", "approver"})
	v.SetDefault("permissions.reject", []string{"admin", "approver"})
	v.SetDefault("permissions.override", []string{"admin", "code_editor"})
	v.SetDefault("permissions.adjust", []string{"admin", "supervisor"})
	v.SetDefault("permissions.delete", []string{"admin"})
	v.SetDefault("permissions.force_release", []string{"admin"})
	v.SetDefault("permissions.catalog", []string{"admin"})

	v.SetDefault("notify.channel", "valve-vault:changes")
	v.SetDefault("notify.buffer", 32)

	v.SetDefault("metrics.enabled", true)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MaxCodeLength 物料编码列宽（code / proposed_code 均为 VARCHAR(16)）
const MaxCodeLength = 16

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Workflow.CodeLength <= 0 {
		return fmt.Errorf("配置校验失败: workflow.code_length 必须大于 0")
	}
	if c.Workflow.CodeLength > MaxCodeLength {
		return fmt.Errorf("配置校验失败: workflow.code_length 不能超过 %d", MaxCodeLength)
	}
	if c.Workflow.MaxCountPasses <= 0 {
		return fmt.Errorf("配置校验失败: workflow.max_count_passes 必须大于 0")
	}
	if c.Workflow.ClaimTTL < 0 {
		return fmt.Errorf("配置校验失败: workflow.claim_ttl 不能为负数")
	}
	return nil
}
