package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name    string
	Env     string
	BaseURL string // 拼接确认邮件链接
	HTTP    HTTP
	Admin   AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	ConfirmTTLMin     int // 邮箱确认链接有效期
}

type Session struct {
	CookieName string
	Secure     bool
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Limits 中间件限流/超时参数
type Limits struct {
	RPS         float64
	Burst       int
	AuthRPS     float64 // 登录/注册按 IP 限速
	AuthBurst   int
	Concurrency int64
	TimeoutSec  int
	MaxBodyMB   int64
}

type Market struct {
	RelatedLimit   int
	RelatedTTLSec  int
	BrowsePageSize int
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	Session Session
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Limits  Limits
	Market  Market
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "marketplace")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.baseURL", "http://127.0.0.1:8080")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "marketplace")
	v.SetDefault("jwt.accessTokenTTLMin", 60*24)
	v.SetDefault("jwt.confirmTTLMin", 60*24)

	v.SetDefault("session.cookieName", "mkt_session")
	v.SetDefault("session.secure", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:marketplace.db?_foreign_keys=on")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.authRPS", 1)
	v.SetDefault("limits.authBurst", 10)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.timeoutSec", 10)
	v.SetDefault("limits.maxBodyMB", 16)

	v.SetDefault("market.relatedLimit", 4)
	v.SetDefault("market.relatedTTLSec", 300)
	v.SetDefault("market.browsePageSize", 20)
}

// Load 读取 yaml 配置；APP_ 前缀环境变量覆盖（APP_DB_DSN -> db.dsn）
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < 16 {
		return fmt.Errorf("jwt.secret must be at least 16 bytes")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	if c.Market.RelatedLimit <= 0 {
		c.Market.RelatedLimit = 4
	}
	if c.Market.BrowsePageSize <= 0 || c.Market.BrowsePageSize > 100 {
		c.Market.BrowsePageSize = 20
	}
	return nil
}
