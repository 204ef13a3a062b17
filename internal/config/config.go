package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"InvisiFeed"`
		Port int    `envconfig:"PORT" default:"8080"`
		// BaseURL is the public origin used to build feedback links.
		BaseURL        string   `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`
		AllowedOrigins []string `envconfig:"APP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"invisifeed"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"60s"`
	}

	Auth struct {
		Secret   string        `envconfig:"AUTH_SECRET" default:"change-me"`
		Issuer   string        `envconfig:"AUTH_ISSUER" default:"invisifeed"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	}

	Redis struct {
		Addr       string        `envconfig:"REDIS_ADDR"`
		Password   string        `envconfig:"REDIS_PASSWORD"`
		DB         int           `envconfig:"REDIS_DB" default:"0"`
		MetricsTTL time.Duration `envconfig:"REDIS_METRICS_TTL" default:"10m"`
	}

	Storage struct {
		Endpoint     string `envconfig:"STORAGE_ENDPOINT"`
		Region       string `envconfig:"STORAGE_REGION" default:"us-east-1"`
		Bucket       string `envconfig:"STORAGE_BUCKET" default:"invisifeed"`
		AccessKey    string `envconfig:"STORAGE_ACCESS_KEY"`
		SecretKey    string `envconfig:"STORAGE_SECRET_KEY"`
		UsePathStyle bool   `envconfig:"STORAGE_USE_PATH_STYLE" default:"true"`
		// PublicURL prefixes object keys in the URLs handed to clients.
		PublicURL string `envconfig:"STORAGE_PUBLIC_URL"`
	}

	SendGrid struct {
		APIKey   string `envconfig:"SENDGRID_API_KEY"`
		From     string `envconfig:"SENDGRID_FROM" default:"no-reply@invisifeed.app"`
		FromName string `envconfig:"SENDGRID_FROM_NAME" default:"InvisiFeed"`
	}

	DocumentAI struct {
		ProjectID   string `envconfig:"DOCUMENT_AI_PROJECT_ID"`
		Location    string `envconfig:"DOCUMENT_AI_LOCATION" default:"us"`
		ProcessorID string `envconfig:"DOCUMENT_AI_PROCESSOR_ID"`
		// CredentialsFile falls back to application default credentials.
		CredentialsFile string        `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
		Timeout         time.Duration `envconfig:"DOCUMENT_AI_TIMEOUT" default:"30s"`
	}

	OpenAI struct {
		APIKey string `envconfig:"OPENAI_API_KEY"`
		Model  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	}

	Chrome struct {
		RemoteURL string        `envconfig:"CHROME_REMOTE_URL"`
		Timeout   time.Duration `envconfig:"CHROME_TIMEOUT" default:"30s"`
		NoSandbox bool          `envconfig:"CHROME_NO_SANDBOX" default:"false"`
	}

	GSTIN struct {
		Endpoint string `envconfig:"GSTIN_ENDPOINT"`
		APIKey   string `envconfig:"GSTIN_API_KEY"`
	}

	// Client configures the terminal client.
	Client struct {
		APIURL string `envconfig:"INVISIFEED_API_URL" default:"http://localhost:8080"`
	}

	Limits struct {
		MaxUploadBytes int64         `envconfig:"LIMIT_MAX_UPLOAD_BYTES" default:"3145728"`
		FreeDaily      int           `envconfig:"LIMIT_FREE_DAILY" default:"3"`
		ProDaily       int           `envconfig:"LIMIT_PRO_DAILY" default:"10"`
		Window         time.Duration `envconfig:"LIMIT_WINDOW" default:"24h"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
