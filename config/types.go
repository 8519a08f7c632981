package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	CIP       CIPConfig       `mapstructure:"cip"`
	Constants ConstantsConfig `mapstructure:"constants"`
	Catalogs  []CatalogConfig `mapstructure:"catalogs"`
	Search    SearchConfig    `mapstructure:"search"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CIPConfig holds the CIP endpoint and credentials
type CIPConfig struct {
	URL             string        `mapstructure:"url"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	APIVersion      int           `mapstructure:"api_version"`
	ServerAddress   string        `mapstructure:"server_address"`
	TrustSelfSigned bool          `mapstructure:"trust_self_signed"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ConstantsConfig holds the fixed aliases of the CIP installation
type ConstantsConfig struct {
	CatchAllAlias string `mapstructure:"catch_all_alias"`
	LayoutAlias   string `mapstructure:"layout_alias"`
}

// CatalogConfig maps a catalog name to its alias
type CatalogConfig struct {
	Name  string `mapstructure:"name"`
	Alias string `mapstructure:"alias"`
}

// SearchConfig contains defaults for the search command
type SearchConfig struct {
	Table       string `mapstructure:"table"`
	PageSize    int    `mapstructure:"page_size"`
	Concurrency int    `mapstructure:"concurrency"`
}

// FilterConfig contains named filter expressions
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`

	// File, when set, receives the log as well, rotated by size
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}
