package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Google    GoogleConfig
	Captcha   CaptchaConfig
	Providers ProvidersConfig
	History   HistoryConfig
	Worker    WorkerConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	APIKey          string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// GoogleConfig contains the Drive/Tasks credential and namespace settings
type GoogleConfig struct {
	CredentialsPath string
	TokenPath       string
	RootFolder      string
	ReminderList    string
}

// CaptchaConfig contains the CAPTCHA solver settings
type CaptchaConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ProviderCredentials holds one portal's login data
type ProviderCredentials struct {
	Username    string
	Password    string
	ClientCodes []string
}

// ProvidersConfig groups per-portal credentials
type ProvidersConfig struct {
	Fastweb        ProviderCredentials
	FastwebEnergia ProviderCredentials
	Eni            ProviderCredentials
	UmbraAcque     ProviderCredentials
}

// HistoryConfig contains the sync-run history settings
type HistoryConfig struct {
	Path string
}

// WorkerConfig contains the scheduled sync settings
type WorkerConfig struct {
	// Cron expression; empty disables the scheduler
	Schedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			APIKey:          getEnv("API_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Google: GoogleConfig{
			CredentialsPath: getEnv("GOOGLE_CREDENTIALS_PATH", "credentials.json"),
			TokenPath:       getEnv("GOOGLE_TOKEN_PATH", "token.json"),
			RootFolder:      getEnv("DRIVE_ROOT_FOLDER", "Bollette"),
			ReminderList:    getEnv("TASKS_LIST_NAME", "Bills"),
		},
		Captcha: CaptchaConfig{
			APIKey:  getEnv("CAPTCHA_API_KEY", ""),
			BaseURL: getEnv("CAPTCHA_BASE_URL", "https://2captcha.com"),
			Timeout: getEnvAsDuration("CAPTCHA_TIMEOUT", 3*time.Minute),
		},
		Providers: ProvidersConfig{
			Fastweb: ProviderCredentials{
				Username:    getEnv("FASTWEB_USERNAME", ""),
				Password:    getEnv("FASTWEB_PASSWORD", ""),
				ClientCodes: getEnvAsList("FASTWEB_CLIENT_CODE"),
			},
			FastwebEnergia: ProviderCredentials{
				Username: getEnv("FASTWEB_ENERGIA_USERNAME", ""),
				Password: getEnv("FASTWEB_ENERGIA_PASSWORD", ""),
			},
			Eni: ProviderCredentials{
				Username: getEnv("ENI_USERNAME", ""),
				Password: getEnv("ENI_PASSWORD", ""),
			},
			UmbraAcque: ProviderCredentials{
				Username: getEnv("UMBRA_ACQUE_USERNAME", ""),
				Password: getEnv("UMBRA_ACQUE_PASSWORD", ""),
			},
		},
		History: HistoryConfig{
			Path: getEnv("HISTORY_DB_PATH", "bolletta.db"),
		},
		Worker: WorkerConfig{
			Schedule: getEnv("SYNC_SCHEDULE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Google.RootFolder == "" {
		return fmt.Errorf("DRIVE_ROOT_FOLDER must not be empty")
	}
	if c.Google.ReminderList == "" {
		return fmt.Errorf("TASKS_LIST_NAME must not be empty")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
