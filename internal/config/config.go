// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-driven settings.
type Config struct {
	OAuthClientID     string `envconfig:"OAUTH_GOOGLE_CLIENT_ID" required:"true"`
	OAuthClientSecret string `envconfig:"OAUTH_GOOGLE_CLIENT_SECRET" required:"true"`
	OAuthRedirectURL  string `envconfig:"OAUTH_REDIRECT_URL"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	RealtimeModel string `envconfig:"REALTIME_MODEL" default:"gpt-4o-mini-realtime-preview-2024-12-17"`
	RealtimeVoice string `envconfig:"REALTIME_VOICE" default:"verse"`
	ProfileModel  string `envconfig:"PROFILE_MODEL" default:"gpt-4o-mini"`

	LogDebug  bool `envconfig:"LOG_DEBUG" split_words:"true" default:"false"`
	LogPretty bool `envconfig:"LOG_PRETTY" split_words:"true" default:"false"`
}

// Load reads the optional env file, then populates Config from the
// environment. A missing envFile is an error; an empty path skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("envconfig.Process failed: %w", err)
	}

	return &cfg, nil
}
