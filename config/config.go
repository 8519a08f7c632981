package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/s0up4200/cip/cip"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CIP_CIP_PASSWORD
const EnvPrefix = "CIP"

// Load loads the configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".cip"))
		}

		v.AddConfigPath("/etc/cip/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("cip.url", "")
	v.SetDefault("cip.username", "")
	v.SetDefault("cip.password", "")
	v.SetDefault("cip.api_version", 4)
	v.SetDefault("cip.server_address", "localhost")
	v.SetDefault("cip.trust_self_signed", false)
	v.SetDefault("cip.timeout", cip.DefaultTimeout)

	v.SetDefault("search.table", cip.DefaultTable)
	v.SetDefault("search.page_size", cip.DefaultPageSize)
	v.SetDefault("search.concurrency", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.CIP.URL == "" {
		return fmt.Errorf("cip.url is required")
	}
	if cfg.CIP.Timeout < 0 {
		return fmt.Errorf("cip.timeout must not be negative")
	}

	if cfg.Constants.CatchAllAlias == "" {
		return fmt.Errorf("constants.catch_all_alias is required")
	}
	if cfg.Constants.LayoutAlias == "" {
		return fmt.Errorf("constants.layout_alias is required")
	}

	if len(cfg.Catalogs) == 0 {
		return fmt.Errorf("at least one catalog must be configured")
	}
	aliases := make(map[string]string, len(cfg.Catalogs))
	for i, cat := range cfg.Catalogs {
		if cat.Name == "" || cat.Alias == "" {
			return fmt.Errorf("catalogs[%d] needs both name and alias", i)
		}
		if other, ok := aliases[cat.Alias]; ok {
			return fmt.Errorf("catalog alias %q is used by both %q and %q", cat.Alias, other, cat.Name)
		}
		aliases[cat.Alias] = cat.Name
	}

	if cfg.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be positive, got %d", cfg.Search.PageSize)
	}
	if cfg.Search.Concurrency <= 0 {
		return fmt.Errorf("search.concurrency must be positive, got %d", cfg.Search.Concurrency)
	}

	for name, expression := range cfg.Filter.Presets {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter preset %q is empty", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// ClientConfig converts the file settings into a cip.Config
func (c *Config) ClientConfig() cip.Config {
	aliases := make(map[string]string, len(c.Catalogs))
	for _, cat := range c.Catalogs {
		aliases[cat.Name] = cat.Alias
	}

	return cip.Config{
		Endpoint:        c.CIP.URL,
		APIVersion:      c.CIP.APIVersion,
		ServerAddress:   c.CIP.ServerAddress,
		TrustSelfSigned: c.CIP.TrustSelfSigned,
		CatalogAliases:  aliases,
		Constants: cip.Constants{
			CatchAllAlias: c.Constants.CatchAllAlias,
			LayoutAlias:   c.Constants.LayoutAlias,
		},
	}
}

// Preset returns the filter expression stored under name
func (c *Config) Preset(name string) (string, error) {
	expression, ok := c.Filter.Presets[name]
	if !ok {
		return "", fmt.Errorf("unknown filter preset %q", name)
	}
	return expression, nil
}
