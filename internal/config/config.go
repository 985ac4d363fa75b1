package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	General struct {
		Provider string `koanf:"provider"`
		AI       string `koanf:"ai"`
	} `koanf:"general"`

	Review struct {
		// File name suffixes that mark a step-definition file, combined
		// with StepExtension. E.g. "LoginSteps" + ".java".
		StepSuffixes   []string `koanf:"step_suffixes"`
		StepExtension  string   `koanf:"step_extension"`
		FeatureGlobs   []string `koanf:"feature_globs"`
		StepGlobs      []string `koanf:"step_globs"`
		TimeoutSeconds int      `koanf:"timeout_seconds"`
	} `koanf:"review"`

	Providers map[string]map[string]interface{} `koanf:"providers"`
	AI        map[string]map[string]interface{} `koanf:"ai"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"general.provider":       "github",
		"general.ai":             "openai",
		"review.step_suffixes":   []string{"Steps", "StepDefinitions", "StepsImpl", "StepDefs"},
		"review.step_extension":  ".java",
		"review.feature_globs":   []string{"*.feature"},
		"review.step_globs":      []string{"steps/*.java"},
		"review.timeout_seconds": 600,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./stepreview.toml", "$HOME/.stepreview.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix STEPREVIEW_
	k.Load(env.Provider("STEPREVIEW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "STEPREVIEW_")), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# StepReview Configuration

[general]
provider = "github"
ai = "openai"

[review]
step_suffixes = ["Steps", "StepDefinitions", "StepsImpl", "StepDefs"]
step_extension = ".java"
feature_globs = ["*.feature"]
step_globs = ["steps/*.java"]
timeout_seconds = 600

[providers.github]
token = "your-github-token"

[ai.openai]
api_key = "your-openai-api-key"
model = "gpt-4o-mini"
temperature = 0.0
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.General.Provider == "" {
		return fmt.Errorf("provider is required")
	}

	if config.General.AI == "" {
		return fmt.Errorf("AI provider is required")
	}

	if len(config.Review.StepSuffixes) == 0 {
		return fmt.Errorf("at least one step-definition suffix is required")
	}

	providerConfig, ok := config.Providers[config.General.Provider]
	if !ok {
		return fmt.Errorf("configuration for provider %s not found", config.General.Provider)
	}

	// Validate provider config
	switch config.General.Provider {
	case "github":
		if _, ok := providerConfig["token"]; !ok {
			return fmt.Errorf("github token is required")
		}
	}

	// Validate AI config
	aiConfig, ok := config.AI[config.General.AI]
	if !ok {
		return fmt.Errorf("configuration for AI provider %s not found", config.General.AI)
	}

	switch config.General.AI {
	case "openai", "gemini":
		if _, ok := aiConfig["api_key"]; !ok {
			return fmt.Errorf("%s api_key is required", config.General.AI)
		}
	}

	return nil
}

// StringOption reads a string value from a provider/AI option map.
func StringOption(options map[string]interface{}, key, fallback string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// FloatOption reads a float value from a provider/AI option map. TOML
// integers decode as int64, so both numeric shapes are accepted.
func FloatOption(options map[string]interface{}, key string, fallback float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return fallback
}
