package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string
	LogLevel   string

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only set it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	JWTSecret string

	AccessTokenMaxAge   int
	RefreshTokenMaxAge  int
	PasswordResetMaxAge int

	RedisURL string

	AIGatewayURL    string
	AIGatewayAPIKey string
	AIModel         string

	ChatRateLimit  int
	ChatRateWindow time.Duration

	FCMProjectID   string
	FCMClientEmail string
	FCMPrivateKey  string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	PartnerDomain        string
	PartnerDefaultRegion string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	PostmarkServerToken string
	PostmarkFrom        string
	AppBaseURL          string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getenv("DB_SSLMODE", "require"),

		ServerPort: getenv("SERVER_PORT", "8080"),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		TrustProxyHeaders: getenvBool("TRUST_PROXY_HEADERS"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AccessTokenMaxAge:   getenvInt("ACCESS_TOKEN_MAX_AGE", 3600),
		RefreshTokenMaxAge:  getenvInt("REFRESH_TOKEN_MAX_AGE", 2592000),
		PasswordResetMaxAge: getenvInt("PASSWORD_RESET_MAX_AGE", 3600),

		RedisURL: os.Getenv("REDIS_URL"),

		AIGatewayURL:    getenv("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		AIGatewayAPIKey: os.Getenv("AI_GATEWAY_API_KEY"),
		AIModel:         getenv("AI_MODEL", "google/gemini-2.5-flash"),

		ChatRateLimit:  getenvInt("CHAT_RATE_LIMIT", 20),
		ChatRateWindow: getenvDuration("CHAT_RATE_WINDOW", time.Minute),

		FCMProjectID:   os.Getenv("FCM_PROJECT_ID"),
		FCMClientEmail: os.Getenv("FCM_CLIENT_EMAIL"),
		FCMPrivateKey:  os.Getenv("FCM_PRIVATE_KEY"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getenv("VAPID_SUBJECT", "mailto:service@teslabooking.app"),

		PartnerDomain:        os.Getenv("PARTNER_DOMAIN"),
		PartnerDefaultRegion: getenv("PARTNER_DEFAULT_REGION", "eu"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),

		PostmarkServerToken: os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkFrom:        getenv("POSTMARK_FROM", "no-reply@teslabooking.app"),
		AppBaseURL:          getenv("APP_BASE_URL", "http://localhost:5173"),
	}, nil
}

// FCMConfigured reports whether all Firebase service-account fields are set.
func (c *Config) FCMConfigured() bool {
	return c.FCMProjectID != "" && c.FCMClientEmail != "" && c.FCMPrivateKey != ""
}

// WebPushConfigured reports whether a VAPID key pair is available.
func (c *Config) WebPushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// StorageConfigured reports whether photo uploads to R2 can be enabled.
func (c *Config) StorageConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
