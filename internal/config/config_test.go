package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent-but-unset"))
	// An explicit path that does not exist is an error.
	require.Error(t, err)
	require.Nil(t, cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stepreview.toml")
	content := `
[general]
provider = "github"
ai = "openai"

[review]
step_extension = ".kt"
timeout_seconds = 120

[providers.github]
token = "tok"

[ai.openai]
api_key = "key"
model = "gpt-4o-mini"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "github", cfg.General.Provider)
	assert.Equal(t, "openai", cfg.General.AI)
	assert.Equal(t, ".kt", cfg.Review.StepExtension)
	assert.Equal(t, 120, cfg.Review.TimeoutSeconds)
	// Defaults survive a partial file.
	assert.Equal(t, []string{"Steps", "StepDefinitions", "StepsImpl", "StepDefs"}, cfg.Review.StepSuffixes)
	assert.Equal(t, []string{"*.feature"}, cfg.Review.FeatureGlobs)
	assert.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.General.Provider = "github"
		cfg.General.AI = "openai"
		cfg.Review.StepSuffixes = []string{"Steps"}
		cfg.Providers = map[string]map[string]interface{}{
			"github": {"token": "tok"},
		}
		cfg.AI = map[string]map[string]interface{}{
			"openai": {"api_key": "key"},
		}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Validate(base()))
	})

	t.Run("missing provider config", func(t *testing.T) {
		cfg := base()
		delete(cfg.Providers, "github")
		assert.Error(t, Validate(cfg))
	})

	t.Run("missing github token", func(t *testing.T) {
		cfg := base()
		cfg.Providers["github"] = map[string]interface{}{}
		assert.Error(t, Validate(cfg))
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base()
		cfg.AI["openai"] = map[string]interface{}{}
		assert.Error(t, Validate(cfg))
	})

	t.Run("empty suffix set", func(t *testing.T) {
		cfg := base()
		cfg.Review.StepSuffixes = nil
		assert.Error(t, Validate(cfg))
	})
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepreview.toml")

	require.NoError(t, InitConfig(path))
	// Writing over an existing file is refused.
	require.Error(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "github", cfg.General.Provider)
	assert.NoError(t, Validate(cfg))
}

func TestOptionHelpers(t *testing.T) {
	options := map[string]interface{}{
		"model":       "gpt-4o-mini",
		"temperature": 0.2,
		"max_tokens":  int64(4096),
	}

	assert.Equal(t, "gpt-4o-mini", StringOption(options, "model", "fallback"))
	assert.Equal(t, "fallback", StringOption(options, "missing", "fallback"))
	assert.Equal(t, 0.2, FloatOption(options, "temperature", 1.0))
	assert.Equal(t, 4096.0, FloatOption(options, "max_tokens", 0))
	assert.Equal(t, 1.0, FloatOption(options, "missing", 1.0))
}
