// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile は起動時に読み込む.envファイルのパス。
const DefaultEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Token
	SecretKey string
	TokenTTL  time.Duration // 0の場合はexpクレームを付与しない

	// Credential Store
	DBConnectionString string
	DBName             string // MongoDBのデータベース名

	// Password
	BcryptCost int

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	OAuthTimeout       time.Duration

	// Rate Limit (req/min)
	RateLimitAuth    int
	RateLimitGeneral int

	// Server
	Port        string
	BaseURL     string
	TLSCertFile string
	TLSKeyFile  string
	TrustProxy  bool // X-Forwarded-ForからクライアントIPを取得する

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// GoogleOAuthEnabled はGoogleの認可コードフローに必要な設定が揃っているかを返す。
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// TLSEnabled は証明書と秘密鍵の両方が指定されているかを返す。
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 既に設定済みの環境変数は.envの値で上書きしない。
func Load() (*Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom は指定された.envファイルを読み込んだうえでConfigを構築する。
// ファイルが存在しない場合は環境変数のみを使用する。
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SecretKey = os.Getenv("SECRET_KEY")
	if cfg.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}

	cfg.DBConnectionString = os.Getenv("DB_CONNECTION_STRING")
	if cfg.DBConnectionString == "" {
		missing = append(missing, "DB_CONNECTION_STRING")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 0)
	cfg.DBName = getEnvString("DB_NAME", "task-manager-db")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	cfg.OAuthTimeout = getEnvDuration("OAUTH_TIMEOUT", 10*time.Second)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.Port = getEnvString("PORT", "5000")
	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", "http://localhost:3000"), "/")
	cfg.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	cfg.TrustProxy = getEnvBool("TRUST_PROXY", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
