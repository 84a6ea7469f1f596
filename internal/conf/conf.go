package conf

import (
	"os"
	"strconv"
	"time"

	"github.com/ponxai/credits-bridge/internal/biz/usecase"
	"github.com/ponxai/credits-bridge/internal/service"
)

// Config represents application configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Document store configuration
	Store StoreConfig

	// Debounce configuration
	Debounce DebounceConfig

	// Messaging platform (Twilio) configuration
	Twilio TwilioConfig

	// Agent platform (B2Chat) configuration
	B2Chat B2ChatConfig

	// OpenAI configuration
	OpenAI OpenAIConfig

	// Back-office (CRM) configuration
	CRM CRMConfig

	// Object storage configuration for media re-hosting
	Storage StorageConfig

	// Hand-over configuration
	Handover HandoverConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Debug mode
	Debug bool
}

// ServerConfig contains HTTP server configuration. PublicURL is the
// externally visible base URL webhook signatures are computed against.
type ServerConfig struct {
	Port      int
	PublicURL string
}

// StoreConfig contains document store configuration. Driver is "mongo" or
// "sqlite"; sqlite is meant for local development.
type StoreConfig struct {
	Driver     string
	MongoURI   string
	MongoDB    string
	SQLitePath string
}

// DebounceConfig contains debounce coordinator configuration
type DebounceConfig struct {
	WindowSeconds      int
	TurnTimeoutSeconds int
}

// TwilioConfig contains messaging platform credentials
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
}

// B2ChatConfig contains agent platform credentials
type B2ChatConfig struct {
	Username string
	Password string
}

// OpenAIConfig contains OpenAI configuration
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// CRMConfig contains back-office API configuration
type CRMConfig struct {
	APIKey string
}

// StorageConfig contains object storage configuration
type StorageConfig struct {
	URL        string
	ServiceKey string
}

// HandoverConfig contains hand-over configuration values
type HandoverConfig struct {
	FallbackCallingCode int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	port := 8000
	if val := os.Getenv("PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = "mongo"
	}

	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "chat_history"
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "./credits-bridge.db"
	}

	windowSeconds := 16
	if val := os.Getenv("DEBOUNCE_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			windowSeconds = parsed
		}
	}

	turnTimeoutSeconds := 120
	if val := os.Getenv("TURN_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			turnTimeoutSeconds = parsed
		}
	}

	fallbackCallingCode := 57
	if val := os.Getenv("FALLBACK_CALLING_CODE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			fallbackCallingCode = parsed
		}
	}

	promptsConfig, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Server: ServerConfig{
			Port:      port,
			PublicURL: os.Getenv("PUBLIC_URL"),
		},
		Store: StoreConfig{
			Driver:     driver,
			MongoURI:   os.Getenv("MONGO_URI"),
			MongoDB:    mongoDB,
			SQLitePath: sqlitePath,
		},
		Debounce: DebounceConfig{
			WindowSeconds:      windowSeconds,
			TurnTimeoutSeconds: turnTimeoutSeconds,
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		},
		B2Chat: B2ChatConfig{
			Username: os.Getenv("B2C_USER"),
			Password: os.Getenv("B2C_PASS"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("OPENAI_MODEL"),
		},
		CRM: CRMConfig{
			APIKey: os.Getenv("CRM_API_KEY"),
		},
		Storage: StorageConfig{
			URL:        os.Getenv("STORAGE_URL"),
			ServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),
		},
		Handover: HandoverConfig{FallbackCallingCode: fallbackCallingCode},
		Prompts:  promptsConfig,
		Debug:    os.Getenv("DEBUG") == "true",
	}
}

// ToCoordinatorConfig converts to debounce coordinator configuration
func (c *DebounceConfig) ToCoordinatorConfig() service.CoordinatorConfig {
	return service.CoordinatorConfig{
		Window:      time.Duration(c.WindowSeconds) * time.Second,
		TurnTimeout: time.Duration(c.TurnTimeoutSeconds) * time.Second,
	}
}

// ToHandoverConfig converts to hand-over configuration
func (c *HandoverConfig) ToHandoverConfig() usecase.HandoverConfig {
	return usecase.HandoverConfig{FallbackCallingCode: c.FallbackCallingCode}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.PublicURL == "" {
		return &ConfigError{Field: "PUBLIC_URL", Message: "required for webhook signature validation"}
	}
	if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
		return &ConfigError{Field: "TWILIO_ACCOUNT_SID/TWILIO_AUTH_TOKEN", Message: "required"}
	}
	if c.B2Chat.Username == "" || c.B2Chat.Password == "" {
		return &ConfigError{Field: "B2C_USER/B2C_PASS", Message: "required"}
	}
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	if c.Store.Driver == "mongo" && c.Store.MongoURI == "" {
		return &ConfigError{Field: "MONGO_URI", Message: "required for the mongo store driver"}
	}
	if c.Store.Driver != "mongo" && c.Store.Driver != "sqlite" {
		return &ConfigError{Field: "STORE_DRIVER", Message: "must be mongo or sqlite"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
