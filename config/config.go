package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server           Server
	Database         Database
	Redis            Redis
	MinIO            MinIO
	AMQP             AMQP
	Evaluation       Evaluation
	Session          Session
	Log              Log
	GeminiApiKey     string
	GeminiModel      string
	OpenRouterApiKey string
	OpenRouterModel  string
	OpenRouterURL    string
	CatalogDir       string
}

type Server struct {
	Port string
}
type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Enabled reports whether a Postgres database was configured. Without one the service
// runs on in-memory repositories.
func (d Database) Enabled() bool { return d.Host != "" }

type Redis struct {
	Addr     string
	Password string
	DB       int
	LeaseTTL time.Duration
}

type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	URLExpiry time.Duration
}

type AMQP struct {
	URI      string
	Exchange string
	Queue    string
}

type Evaluation struct {
	Concurrency int
	UnitTimeout time.Duration
	MaxRetries  int
	StaleAfter  time.Duration
	Backend     string // "gemini" or "openrouter"
}

type Session struct {
	SingleActive  bool
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	SubmitTimeout time.Duration
}

type Log struct {
	Level string
	Env   string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_LEASE_TTL", "2h")
	viper.SetDefault("MINIO_BUCKET", "recordings")
	viper.SetDefault("MINIO_URL_EXPIRY", "24h")
	viper.SetDefault("AMQP_EXCHANGE", "examflow.events")
	viper.SetDefault("AMQP_QUEUE", "examflow.evaluation")
	viper.SetDefault("EVALUATION_CONCURRENCY", 4)
	viper.SetDefault("EVALUATION_UNIT_TIMEOUT", "60s")
	viper.SetDefault("EVALUATION_MAX_RETRIES", 3)
	viper.SetDefault("EVALUATION_STALE_AFTER", "10m")
	viper.SetDefault("EVALUATION_BACKEND", "gemini")
	viper.SetDefault("SESSION_SINGLE_ACTIVE", true)
	viper.SetDefault("SESSION_IDLE_TIMEOUT", "2h")
	viper.SetDefault("SESSION_SWEEP_INTERVAL", "1m")
	viper.SetDefault("SESSION_SUBMIT_TIMEOUT", "30s")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("OPENROUTER_URL", "https://openrouter.ai/api/v1")
	viper.SetDefault("OPENROUTER_MODEL", "google/gemini-2.0-flash-001")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", "development")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Redis.LeaseTTL = viper.GetDuration("REDIS_LEASE_TTL")

	config.MinIO.Endpoint = viper.GetString("MINIO_ENDPOINT")
	config.MinIO.AccessKey = viper.GetString("MINIO_ACCESS_KEY")
	config.MinIO.SecretKey = viper.GetString("MINIO_SECRET_KEY")
	config.MinIO.Bucket = viper.GetString("MINIO_BUCKET")
	config.MinIO.Region = viper.GetString("MINIO_REGION")
	config.MinIO.UseSSL = viper.GetBool("MINIO_USE_SSL")
	config.MinIO.URLExpiry = viper.GetDuration("MINIO_URL_EXPIRY")

	config.AMQP.URI = viper.GetString("AMQP_URI")
	config.AMQP.Exchange = viper.GetString("AMQP_EXCHANGE")
	config.AMQP.Queue = viper.GetString("AMQP_QUEUE")

	config.Evaluation.Concurrency = viper.GetInt("EVALUATION_CONCURRENCY")
	config.Evaluation.UnitTimeout = viper.GetDuration("EVALUATION_UNIT_TIMEOUT")
	config.Evaluation.MaxRetries = viper.GetInt("EVALUATION_MAX_RETRIES")
	config.Evaluation.StaleAfter = viper.GetDuration("EVALUATION_STALE_AFTER")
	config.Evaluation.Backend = viper.GetString("EVALUATION_BACKEND")

	config.Session.SingleActive = viper.GetBool("SESSION_SINGLE_ACTIVE")
	config.Session.IdleTimeout = viper.GetDuration("SESSION_IDLE_TIMEOUT")
	config.Session.SweepInterval = viper.GetDuration("SESSION_SWEEP_INTERVAL")
	config.Session.SubmitTimeout = viper.GetDuration("SESSION_SUBMIT_TIMEOUT")

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.Env = viper.GetString("APP_ENV")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")
	config.GeminiModel = viper.GetString("GEMINI_MODEL")
	config.OpenRouterApiKey = viper.GetString("OPENROUTER_API_KEY")
	config.OpenRouterModel = viper.GetString("OPENROUTER_MODEL")
	config.OpenRouterURL = viper.GetString("OPENROUTER_URL")
	config.CatalogDir = viper.GetString("CATALOG_DIR")

	log.Info().
		Str("port", config.Server.Port).
		Str("dbHost", config.Database.Host).
		Str("redis", config.Redis.Addr).
		Str("minio", config.MinIO.Endpoint).
		Bool("amqp", config.AMQP.URI != "").
		Str("evaluator", config.Evaluation.Backend).
		Msg("Config loaded")
	return &config, nil

}
