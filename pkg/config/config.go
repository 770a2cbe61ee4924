package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	AppName   string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Payment    PaymentConfig
	Mail       MailConfig
	Media      MediaConfig
	Auth       AuthFlowConfig
	CourseData CourseDataConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentConfig holds the payment processor credentials and webhook verification settings.
type PaymentConfig struct {
	KeyID           string
	KeySecret       string
	WebhookSecret   string
	SignatureHeader string
	Currency        string
	Timeout         time.Duration
	MaxWebhookBytes int64
}

// MailConfig selects the email transport and its delivery queue tuning.
type MailConfig struct {
	Provider       string
	SendgridAPIKey string
	FromName       string
	FromAddress    string
	FrontendURL    string
	Timeout        time.Duration
	Workers        int
	Retries        int
	RetryDelay     time.Duration
}

// MediaConfig controls where uploaded thumbnails, avatars and lesson videos live.
type MediaConfig struct {
	StorageDir      string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
}

// AuthFlowConfig tunes OTP and password reset lifetimes.
type AuthFlowConfig struct {
	OTPTTL        time.Duration
	ResetTokenTTL time.Duration
}

// CourseDataConfig governs caching of course structure lookups.
type CourseDataConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.AppName = v.GetString("APP_NAME")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxWebhook := v.GetInt64("PAYMENT_WEBHOOK_MAX_BYTES")
	if maxWebhook <= 0 {
		maxWebhook = 1 << 20
	}
	cfg.Payment = PaymentConfig{
		KeyID:           v.GetString("RAZORPAY_KEY"),
		KeySecret:       v.GetString("RAZORPAY_SECRET"),
		WebhookSecret:   v.GetString("RAZORPAY_WEBHOOK_SECRET"),
		SignatureHeader: v.GetString("PAYMENT_SIGNATURE_HEADER"),
		Currency:        strings.ToUpper(v.GetString("PAYMENT_CURRENCY")),
		Timeout:         parseDuration(v.GetString("PAYMENT_TIMEOUT"), 10*time.Second),
		MaxWebhookBytes: maxWebhook,
	}

	cfg.Mail = MailConfig{
		Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SendgridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		FrontendURL:    strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		Timeout:        parseDuration(v.GetString("MAIL_TIMEOUT"), 10*time.Second),
		Workers:        v.GetInt("MAIL_WORKERS"),
		Retries:        v.GetInt("MAIL_RETRIES"),
		RetryDelay:     parseDuration(v.GetString("MAIL_RETRY_DELAY"), 30*time.Second),
	}

	maxUpload := v.GetInt64("MEDIA_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 200 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:      v.GetString("MEDIA_STORAGE_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("MEDIA_PUBLIC_BASE_URL"), "/"),
		SignedURLSecret: v.GetString("MEDIA_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("MEDIA_SIGNED_URL_TTL"), 5*365*24*time.Hour),
		MaxUploadBytes:  maxUpload,
	}

	cfg.Auth = AuthFlowConfig{
		OTPTTL:        parseDuration(v.GetString("OTP_TTL"), 5*time.Minute),
		ResetTokenTTL: parseDuration(v.GetString("RESET_TOKEN_TTL"), 5*time.Minute),
	}

	cfg.CourseData = CourseDataConfig{
		CacheEnabled: v.GetBool("ENABLE_COURSE_CACHE"),
		CacheTTL:     parseDuration(v.GetString("COURSE_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("APP_NAME", "StudyNotion")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studynotion")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "studynotion-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RAZORPAY_KEY", "")
	v.SetDefault("RAZORPAY_SECRET", "")
	v.SetDefault("RAZORPAY_WEBHOOK_SECRET", "dev_webhook_secret")
	v.SetDefault("PAYMENT_SIGNATURE_HEADER", "X-Razorpay-Signature")
	v.SetDefault("PAYMENT_CURRENCY", "INR")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("PAYMENT_WEBHOOK_MAX_BYTES", 1<<20)

	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "StudyNotion")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@studynotion.local")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("MAIL_TIMEOUT", "10s")
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_RETRIES", 3)
	v.SetDefault("MAIL_RETRY_DELAY", "30s")

	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("MEDIA_SIGNED_URL_SECRET", "dev_media_secret")
	v.SetDefault("MEDIA_SIGNED_URL_TTL", "43800h")
	v.SetDefault("MEDIA_MAX_UPLOAD_BYTES", 200*1024*1024)

	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("RESET_TOKEN_TTL", "5m")

	v.SetDefault("ENABLE_COURSE_CACHE", true)
	v.SetDefault("COURSE_CACHE_TTL", "10m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
