// Package config loads and validates the plexsweep configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config holds the configuration for the plexsweep server and its dependencies.
type Config struct {
	// Listen is the address the plexsweep server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// LogLevel sets the log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// DryRun disables all destructive calls to Radarr and Sonarr.
	DryRun bool `yaml:"dry_run" mapstructure:"dry_run"`
	// DatabasePath is the path of the sqlite database file.
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
	// Scan holds the scan execution settings.
	Scan ScanConfig `yaml:"scan" mapstructure:"scan"`
	// Tautulli holds the configuration for the Tautulli catalog source.
	Tautulli *TautulliConfig `yaml:"tautulli" mapstructure:"tautulli"`
	// Radarr holds the configuration for the Radarr server.
	Radarr *RadarrConfig `yaml:"radarr" mapstructure:"radarr"`
	// Sonarr holds the configuration for the Sonarr server.
	Sonarr *SonarrConfig `yaml:"sonarr" mapstructure:"sonarr"`
	// Cache holds the cache backend configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Email holds the scan summary notification configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
}

// ScanConfig holds the execution settings for maintenance scans.
type ScanConfig struct {
	// PageSize is the number of catalog items fetched per page.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
	// Parallelism bounds the per-item evaluation worker pool.
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism"`
	// DeadlineMinutes is the overall deadline for a single scan. A scan
	// exceeding it is marked failed instead of hanging in running state.
	DeadlineMinutes int `yaml:"deadline_minutes" mapstructure:"deadline_minutes"`
	// DeleteParallelism bounds concurrent deletion calls to Radarr/Sonarr.
	DeleteParallelism int `yaml:"delete_parallelism" mapstructure:"delete_parallelism"`
	// DeleteTimeoutSeconds is the per-call timeout for a single deletion.
	DeleteTimeoutSeconds int `yaml:"delete_timeout_seconds" mapstructure:"delete_timeout_seconds"`
}

// TautulliConfig holds the configuration for the Tautulli server that
// provides the media catalog and watch statistics.
type TautulliConfig struct {
	// URL is the Tautulli server URL.
	URL string `yaml:"url" mapstructure:"url"`
	// APIKey is the Tautulli API key.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// RadarrConfig holds the configuration for the Radarr server.
type RadarrConfig struct {
	// URL is the Radarr server URL.
	URL string `yaml:"url" mapstructure:"url"`
	// APIKey is the Radarr API key.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// AddImportExclusion prevents deleted movies from being re-imported.
	AddImportExclusion bool `yaml:"add_import_exclusion" mapstructure:"add_import_exclusion"`
}

// SonarrConfig holds the configuration for the Sonarr server.
type SonarrConfig struct {
	// URL is the Sonarr server URL.
	URL string `yaml:"url" mapstructure:"url"`
	// APIKey is the Sonarr API key.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// AddImportExclusion prevents deleted series from being re-imported.
	AddImportExclusion bool `yaml:"add_import_exclusion" mapstructure:"add_import_exclusion"`
}

// CacheConfig holds the cache backend configuration. When RedisURL is empty
// an in-memory cache is used.
type CacheConfig struct {
	// RedisURL is the address of an optional redis server.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
}

// EmailConfig holds the scan summary notification configuration.
type EmailConfig struct {
	// Enabled indicates whether email notifications are enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SMTPHost is the SMTP server host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// FromEmail is the email address from which notifications are sent.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the name from which notifications are sent.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// Recipients are the admin addresses that receive scan summaries.
	Recipients []string `yaml:"recipients" mapstructure:"recipients"`
	// UseTLS indicates whether to use STARTTLS for the SMTP connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// UseSSL indicates whether to use implicit SSL for the SMTP connection.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`
	// InsecureSkipVerify indicates whether to skip TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// Load reads the configuration from the given path, or from the default
// search locations when path is empty. Environment variables with the
// PLEXSWEEP_ prefix override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLEXSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.plexsweep")
		v.AddConfigPath("/etc/plexsweep")
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults plus env vars may suffice.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3003")
	v.SetDefault("log_level", "info")
	v.SetDefault("dry_run", false)
	v.SetDefault("database_path", "./data/plexsweep.db")

	v.SetDefault("scan.page_size", 200)
	v.SetDefault("scan.parallelism", 4)
	v.SetDefault("scan.deadline_minutes", 30)
	v.SetDefault("scan.delete_parallelism", 3)
	v.SetDefault("scan.delete_timeout_seconds", 30)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_name", "plexsweep")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("email.insecure_skip_verify", false)
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c.Tautulli == nil {
		return fmt.Errorf("missing tautulli config")
	}
	if c.Tautulli.URL == "" {
		return fmt.Errorf("tautulli URL is required")
	}
	if c.Tautulli.APIKey == "" {
		return fmt.Errorf("tautulli API key is required")
	}

	if c.Sonarr == nil && c.Radarr == nil {
		return fmt.Errorf("either sonarr or radarr config must be provided")
	}

	if c.Sonarr != nil {
		if c.Sonarr.URL == "" {
			return fmt.Errorf("sonarr URL is required when sonarr is configured")
		}
		if c.Sonarr.APIKey == "" {
			return fmt.Errorf("sonarr API key is required when sonarr is configured")
		}
	}

	if c.Radarr != nil {
		if c.Radarr.URL == "" {
			return fmt.Errorf("radarr URL is required when radarr is configured")
		}
		if c.Radarr.APIKey == "" {
			return fmt.Errorf("radarr API key is required when radarr is configured")
		}
	}

	if c.Email != nil && c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("email SMTP host is required when email is enabled")
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("email from address is required when email is enabled")
		}
		if len(c.Email.Recipients) == 0 {
			return fmt.Errorf("at least one email recipient is required when email is enabled")
		}
	}

	if c.Scan.PageSize <= 0 {
		return fmt.Errorf("scan page size must be positive")
	}
	if c.Scan.Parallelism <= 0 {
		return fmt.Errorf("scan parallelism must be positive")
	}
	if c.Scan.DeadlineMinutes <= 0 {
		return fmt.Errorf("scan deadline must be positive")
	}
	if c.Scan.DeleteParallelism <= 0 {
		return fmt.Errorf("scan delete parallelism must be positive")
	}
	if c.Scan.DeleteTimeoutSeconds <= 0 {
		return fmt.Errorf("scan delete timeout must be positive")
	}

	return nil
}
