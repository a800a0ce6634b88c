package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseDriver      string // "postgres" (default) or "sqlite" for local runs
	DatabaseURL         string
	AutoMigrate         bool
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	CronSecret          string // X-Cron-Key for the serverless sweep trigger
	CookieDomain        string
	FrontendURL         string // checked by /health/json when set
	RunSweeper          bool   // false on serverless, where the cron endpoint drives sweeps
	RateLimitPerSecond  float64
	RateLimitBurst      int

	AttachmentBackend  string // "supabase" (default) or "s3"
	SupabaseURL        string // storage sign URLs
	SupabaseSecretKey  string // must be service_role key
	AttachmentBucket   string
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSS3Endpoint      string

	SendinblueAPIKey string // SENDINBLUE_API_KEY for partnership notification emails (Brevo)
	MailFrom         string

	DefaultCommissionRate decimal.Decimal
	CandidatureExpiry     time.Duration
	SweepInterval         time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("ATTACHMENT_BACKEND", "supabase")
	viper.SetDefault("ATTACHMENT_BUCKET", "payment-attachments")
	viper.SetDefault("DEFAULT_COMMISSION_RATE", "30")
	viper.SetDefault("CANDIDATURE_EXPIRY_DAYS", 30)
	viper.SetDefault("SWEEP_INTERVAL", "10m")
	viper.SetDefault("RUN_SWEEPER", true)
	viper.SetDefault("RATE_LIMIT_PER_SECOND", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 20)

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	rate, err := decimal.NewFromString(viper.GetString("DEFAULT_COMMISSION_RATE"))
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(viper.GetString("DATABASE_DRIVER"))

	return &Config{
		Env:                   env,
		Port:                  viper.GetString("PORT"),
		LogLevel:              viper.GetString("LOG_LEVEL"),
		SessionSecret:         viper.GetString("SESSION_SECRET"),
		DatabaseDriver:        driver,
		DatabaseURL:           dbURL,
		AutoMigrate:           viper.GetBool("DB_AUTO_MIGRATE") || driver == "sqlite",
		RedisURL:              viper.GetString("REDIS_URL"),
		FrontendURLEndsWith:   viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:           viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:     strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:        viper.GetString("HEALTH_ADMIN_KEY"),
		CronSecret:            viper.GetString("CRON_SECRET"),
		CookieDomain:          viper.GetString("COOKIE_DOMAIN"),
		FrontendURL:           viper.GetString("FRONTEND_URL"),
		RunSweeper:            viper.GetBool("RUN_SWEEPER"),
		RateLimitPerSecond:    viper.GetFloat64("RATE_LIMIT_PER_SECOND"),
		RateLimitBurst:        viper.GetInt("RATE_LIMIT_BURST"),
		AttachmentBackend:     strings.ToLower(viper.GetString("ATTACHMENT_BACKEND")),
		SupabaseURL:           viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:     viper.GetString("SUPABASE_SECRET_KEY"),
		AttachmentBucket:      viper.GetString("ATTACHMENT_BUCKET"),
		AWSRegion:             viper.GetString("AWS_REGION"),
		AWSS3Bucket:           viper.GetString("AWS_S3_BUCKET"),
		AWSAccessKeyID:        viper.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:    viper.GetString("AWS_SECRET_ACCESS_KEY"),
		AWSS3Endpoint:         viper.GetString("AWS_S3_ENDPOINT"),
		SendinblueAPIKey:      viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:              viper.GetString("MAIL_FROM"),
		DefaultCommissionRate: rate,
		CandidatureExpiry:     time.Duration(viper.GetInt("CANDIDATURE_EXPIRY_DAYS")) * 24 * time.Hour,
		SweepInterval:         viper.GetDuration("SWEEP_INTERVAL"),
	}, nil
}
