package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SessionSecret string       `mapstructure:"session_secret"`
	CallbackURL   string       `mapstructure:"callback_url"`
	Google        GoogleConfig `mapstructure:"google"`
}

// Google OAuth credentials. Empty values disable the Google sign-in routes'
// usefulness but the server still runs with local accounts.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.BindEnv("auth.google.client_id", "GOOGLE_CLIENT_ID")
	viper.BindEnv("auth.google.client_secret", "GOOGLE_CLIENT_SECRET")
	viper.BindEnv("auth.session_secret", "SESSION_SECRET")
	viper.BindEnv("auth.callback_url", "CALLBACK_URL")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.path", "./goalquest.db")
	viper.SetDefault("auth.session_secret", "your-secret-key-change-this-in-production")
	viper.SetDefault("auth.callback_url", "http://localhost:8080/auth/google/callback")
	viper.SetDefault("log.level", "info")

	// Allow environment variables
	viper.SetEnvPrefix("GOALQUEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
