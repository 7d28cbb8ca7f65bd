package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultModel             = "azure:gpt-5.2"
	DefaultAzureAPIVersion   = "2024-12-01-preview"
	DefaultMistralDeployment = "mistral-document-ai-2505"
	DefaultRequestTimeout    = 2 * time.Minute
)

// ErrNotConfigured is returned when the credentials for a selected provider are missing.
var ErrNotConfigured = errors.New("provider not configured")

// AzureAuth selects how requests to Azure OpenAI are authenticated.
type AzureAuth string

const (
	AzureAuthKey   AzureAuth = "key"
	AzureAuthEntra AzureAuth = "entra"
)

// Azure holds Azure OpenAI and Azure AI Foundry settings.
type Azure struct {
	Endpoint          string
	APIKey            string
	APIVersion        string
	Auth              AzureAuth
	MistralDeployment string
}

// Provider holds credentials for a directly hosted model vendor.
type Provider struct {
	APIKey  string
	BaseURL string
}

// Config is the server configuration. It is built once by Load and never mutated.
type Config struct {
	DefaultModel   string
	Azure          Azure
	OpenAI         Provider
	Anthropic      Provider
	Debug          bool
	BaseDir        string
	RequestTimeout time.Duration
	ValidateURLs   bool
}

// Load reads the configuration from the environment.
//
// If envFile is non-empty it is loaded first; a missing file is not an error.
// Variables already present in the environment take precedence over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("MODEL", DefaultModel)
	v.SetDefault("AZURE_OPENAI_API_VERSION", DefaultAzureAPIVersion)
	v.SetDefault("AZURE_OPENAI_AUTH", string(AzureAuthKey))
	v.SetDefault("AZURE_MISTRAL_DEPLOYMENT", DefaultMistralDeployment)
	v.SetDefault("REQUEST_TIMEOUT", DefaultRequestTimeout.String())
	v.SetDefault("VALIDATE_URLS", "true")

	baseDir := v.GetString("IMAGE_BASE_DIR")
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("failed to determine working directory: %w", err)
		}
		baseDir = wd
	}
	baseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return Config{}, fmt.Errorf("invalid IMAGE_BASE_DIR: %w", err)
	}

	timeout, err := time.ParseDuration(v.GetString("REQUEST_TIMEOUT"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("invalid REQUEST_TIMEOUT: must be positive, got %s", timeout)
	}

	auth := AzureAuth(strings.ToLower(strings.TrimSpace(v.GetString("AZURE_OPENAI_AUTH"))))
	switch auth {
	case AzureAuthKey, AzureAuthEntra:
	default:
		return Config{}, fmt.Errorf("invalid AZURE_OPENAI_AUTH %q: must be %q or %q", auth, AzureAuthKey, AzureAuthEntra)
	}

	model := strings.TrimSpace(v.GetString("MODEL"))
	if model == "" {
		model = DefaultModel
	}

	return Config{
		DefaultModel: model,
		Azure: Azure{
			Endpoint:          strings.TrimSpace(v.GetString("AZURE_OPENAI_ENDPOINT")),
			APIKey:            strings.TrimSpace(v.GetString("AZURE_OPENAI_API_KEY")),
			APIVersion:        v.GetString("AZURE_OPENAI_API_VERSION"),
			Auth:              auth,
			MistralDeployment: v.GetString("AZURE_MISTRAL_DEPLOYMENT"),
		},
		OpenAI: Provider{
			APIKey:  strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
			BaseURL: v.GetString("OPENAI_BASE_URL"),
		},
		Anthropic: Provider{
			APIKey:  strings.TrimSpace(v.GetString("ANTHROPIC_API_KEY")),
			BaseURL: v.GetString("ANTHROPIC_BASE_URL"),
		},
		Debug:          truthy(v.GetString("MCP_DEBUG")),
		BaseDir:        baseDir,
		RequestTimeout: timeout,
		ValidateURLs:   truthy(v.GetString("VALIDATE_URLS")),
	}, nil
}

// RequireAzure reports whether Azure OpenAI can be called.
// Entra authentication needs only the endpoint.
func (c Config) RequireAzure() error {
	if c.Azure.Endpoint == "" {
		return fmt.Errorf("%w: Azure OpenAI not configured. Please set AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY in .env file or use a different model provider (e.g., 'openai:gpt-4o', 'anthropic:claude-sonnet-4')", ErrNotConfigured)
	}
	if c.Azure.Auth == AzureAuthKey && c.Azure.APIKey == "" {
		return fmt.Errorf("%w: Azure OpenAI not configured. Please set AZURE_OPENAI_API_KEY in .env file, set AZURE_OPENAI_AUTH=entra, or use a different model provider (e.g., 'openai:gpt-4o', 'anthropic:claude-sonnet-4')", ErrNotConfigured)
	}
	return nil
}

// RequireDocumentAI reports whether the Mistral document AI endpoint can be called.
// The OCR endpoint only accepts key authentication.
func (c Config) RequireDocumentAI() error {
	if c.Azure.Endpoint == "" || c.Azure.APIKey == "" {
		return fmt.Errorf("%w: Azure configuration required for Mistral Document AI. Please set AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY in .env file", ErrNotConfigured)
	}
	return nil
}

// RequireOpenAI reports whether OpenAI can be called.
func (c Config) RequireOpenAI() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: OpenAI not configured. Please set OPENAI_API_KEY in .env file or use a different model provider", ErrNotConfigured)
	}
	return nil
}

// RequireAnthropic reports whether Anthropic can be called.
func (c Config) RequireAnthropic() error {
	if c.Anthropic.APIKey == "" {
		return fmt.Errorf("%w: Anthropic not configured. Please set ANTHROPIC_API_KEY in .env file or use a different model provider", ErrNotConfigured)
	}
	return nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
