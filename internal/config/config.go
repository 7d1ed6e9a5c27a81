package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Optional S3-compatible source for tenant knowledge documents
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"councilkb-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Brevo transactional email (contact form + structured council requests)
	BrevoAPIKey    string `envconfig:"BREVO_API_KEY"`
	SenderEmail    string `envconfig:"SENDER_EMAIL"`
	SenderName     string `envconfig:"SENDER_NAME" default:"Aspire AI"`
	RecipientEmail string `envconfig:"RECIPIENT_EMAIL"`

	// Shared secret required on tool-call webhook routes when set
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`

	// Static assistant-identifier to tenant mapping ("asst_1:moreton,asst_2:hinchinbrook")
	AssistantTenants map[string]string `envconfig:"ASSISTANT_TENANTS"`

	// Retrieval
	SearchTopK     int           `envconfig:"SEARCH_TOP_K" default:"5"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	// Conversational memory: writes are off by default and fail-open when on
	MemoryWrites     bool `envconfig:"MEMORY_WRITES" default:"false"`
	MemoryFailClosed bool `envconfig:"MEMORY_FAIL_CLOSED" default:"false"`
	MemoryMaxChars   int  `envconfig:"MEMORY_MAX_CHARS" default:"600"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("COUNCILKB", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasBrevo() bool {
	return c.BrevoAPIKey != "" && c.SenderEmail != ""
}
