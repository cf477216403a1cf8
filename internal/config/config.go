// Package config loads and validates application configuration from
// config.yaml and CHATCSV_* environment variables, with defaults for every
// optional field.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration. Values can be set through
// config.yaml or environment variables prefixed with CHATCSV_
// (e.g. CHATCSV_TELEGRAM_TOKEN).
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Data     DataConfig     `mapstructure:"data"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// TelegramConfig holds the event source credentials. The token is only
// required by the serve command; offline commands run without it.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// DataConfig locates the data root. Chat files live under
// <dir>/plugin_data/chatcsv.
type DataConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// ArchiveConfig controls the archive coordinator. OnRecord fires a rebuild
// trigger after every append; Schedule is a cron expression for periodic
// rebuilds and may be empty to disable them.
type ArchiveConfig struct {
	OnRecord bool   `mapstructure:"on_record"`
	Schedule string `mapstructure:"schedule"`
}

// Load reads configuration from defaults, an optional config.yaml, and the
// environment, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHATCSV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv resolves only keys viper already knows. The token has no
	// default, so it needs an explicit binding for CHATCSV_TELEGRAM_TOKEN.
	v.MustBindEnv("telegram.token")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine, defaults and env apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("data.dir", "./data")

	v.SetDefault("archive.on_record", true)
	v.SetDefault("archive.schedule", "0 */6 * * *")
}
