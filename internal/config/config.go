package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, read from .env and the environment.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	DatabaseDSN string `mapstructure:"DATABASE_DSN"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// AI categorization collaborator
	AIEndpoint string        `mapstructure:"AI_ENDPOINT"`
	AIAPIKey   string        `mapstructure:"AI_API_KEY"`
	AITimeout  time.Duration `mapstructure:"AI_TIMEOUT"`

	// SMTP
	SMTPHost          string `mapstructure:"SMTP_HOST"`
	SMTPPort          int    `mapstructure:"SMTP_PORT"`
	SMTPUser          string `mapstructure:"SMTP_USER"`
	SMTPPass          string `mapstructure:"SMTP_PASS"`
	SMTPFrom          string `mapstructure:"SMTP_FROM"`
	SMTPSkipTLSVerify bool   `mapstructure:"SMTP_SKIP_TLS_VERIFY"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// R2 / S3 attachment hosting
	R2AccountID       string `mapstructure:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `mapstructure:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `mapstructure:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `mapstructure:"R2_BUCKET_NAME"`
	R2PublicURL       string `mapstructure:"R2_PUBLIC_URL"`

	// Comma separated lists: "a@x,b@x" and "Hostel=hostel@x,IT=it@x".
	AdminEmails        string `mapstructure:"ADMIN_EMAILS"`
	DeptMailboxes      string `mapstructure:"DEPT_MAILBOXES"`
	DeptTelegramChats  string `mapstructure:"DEPT_TELEGRAM_CHATS"`
	AdminTelegramChats string `mapstructure:"ADMIN_TELEGRAM_CHATS"`
	CORSOrigins        string `mapstructure:"CORS_ORIGINS"`
}

// Load reads the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_DSN", "host=localhost user=user password=password dbname=kiitcms port=5432 sslmode=disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("AI_TIMEOUT", DefaultAITimeout)
	v.SetDefault("SMTP_PORT", 587)

	// AutomaticEnv only answers keys viper already knows about; bind the rest explicitly.
	for _, key := range []string{
		"JWT_SECRET", "REDIS_PASSWORD", "AI_ENDPOINT", "AI_API_KEY", "SMTP_HOST", "SMTP_USER",
		"SMTP_PASS", "SMTP_FROM", "SMTP_SKIP_TLS_VERIFY", "TELEGRAM_BOT_TOKEN", "R2_ACCOUNT_ID",
		"R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_URL",
		"ADMIN_EMAILS", "DEPT_MAILBOXES", "DEPT_TELEGRAM_CHATS", "ADMIN_TELEGRAM_CHATS", "CORS_ORIGINS",
	} {
		_ = v.BindEnv(key)
	}

	// No .env file: rely on environment variables.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AdminEmailList splits ADMIN_EMAILS.
func (c *Config) AdminEmailList() []string {
	return splitList(c.AdminEmails)
}

// CORSOriginList splits CORS_ORIGINS.
func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

func splitList(raw string) []string {
	var out []string
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// DeptMailboxMap parses DEPT_MAILBOXES into department -> address.
func (c *Config) DeptMailboxMap() map[string]string {
	return parsePairs(c.DeptMailboxes)
}

// DeptTelegramChatMap parses DEPT_TELEGRAM_CHATS into department -> chat id.
func (c *Config) DeptTelegramChatMap() map[string]int64 {
	out := make(map[string]int64)
	for dept, raw := range parsePairs(c.DeptTelegramChats) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[dept] = id
	}
	return out
}

// AdminTelegramChatList parses ADMIN_TELEGRAM_CHATS, skipping malformed ids.
func (c *Config) AdminTelegramChatList() []int64 {
	var out []int64
	for _, raw := range strings.Split(c.AdminTelegramChats, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}

func parsePairs(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
