package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	RankingCacheTTL        time.Duration
	UploadMaxBytes         int64
	BlobDriver             string
	S3Bucket               string
	S3Region               string
	S3Endpoint             string
	S3AccessKeyID          string
	S3SecretAccessKey      string
	S3PathStyle            bool
	NATSURL                string
	RendererSubject        string
	RendererTimeout        time.Duration
	AllowOrigins           string
	UploadsPerMinute       int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("KSICHT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "KSICHT API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "ksicht/rocniky/zadani")
	v.SetDefault("ranking.cache_ttl", "10m")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("blob.driver", "memory")
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("renderer.subject", "ksicht.renderer.submission")
	v.SetDefault("renderer.timeout", "30s")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("upload.per_minute", 10)

	ttl, err := parseDuration(v.GetString("ranking.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ranking cache ttl: %w", err)
	}

	rendererTimeout, err := parseDuration(v.GetString("renderer.timeout"), 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid renderer timeout: %w", err)
	}

	uploadMB := v.GetInt64("upload.max_mb")
	if uploadMB <= 0 {
		uploadMB = 10
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		RankingCacheTTL:        ttl,
		UploadMaxBytes:         uploadMB << 20,
		BlobDriver:             strings.ToLower(v.GetString("blob.driver")),
		S3Bucket:               v.GetString("s3.bucket"),
		S3Region:               v.GetString("s3.region"),
		S3Endpoint:             v.GetString("s3.endpoint"),
		S3AccessKeyID:          v.GetString("s3.access_key_id"),
		S3SecretAccessKey:      v.GetString("s3.secret_access_key"),
		S3PathStyle:            v.GetBool("s3.path_style"),
		NATSURL:                v.GetString("nats.url"),
		RendererSubject:        v.GetString("renderer.subject"),
		RendererTimeout:        rendererTimeout,
		AllowOrigins:           v.GetString("cors.allow_origins"),
		UploadsPerMinute:       v.GetInt("upload.per_minute"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.BlobDriver {
	case "memory":
	case "s3":
		if cfg.S3Bucket == "" {
			return Config{}, fmt.Errorf("s3 bucket must be provided for the s3 blob driver")
		}
	default:
		return Config{}, fmt.Errorf("unsupported blob driver %q", cfg.BlobDriver)
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
