package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geocoder  GeocoderConfig  `yaml:"geocoder" mapstructure:"geocoder"`
	Isochrone IsochroneConfig `yaml:"isochrone" mapstructure:"isochrone"`
	Local     LocalConfig     `yaml:"local" mapstructure:"local"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	CentersTable    string `yaml:"centers_table" mapstructure:"centers_table"`
	LocationsTable  string `yaml:"locations_table" mapstructure:"locations_table"`
	IsochronesTable string `yaml:"isochrones_table" mapstructure:"isochrones_table"`
}

// GeocodableTables returns the tables whose rows carry street addresses.
func (s StoreConfig) GeocodableTables() []string {
	return []string{s.CentersTable, s.LocationsTable}
}

// GeocoderConfig holds geocoding service client settings.
type GeocoderConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Timeout returns the request timeout as a duration.
func (g GeocoderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// IsochroneConfig configures isochrone generation.
type IsochroneConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	Profile      string  `yaml:"profile" mapstructure:"profile"`
	Ranges       []int   `yaml:"ranges" mapstructure:"ranges"`
	Smoothing    float64 `yaml:"smoothing" mapstructure:"smoothing"`
	Workers      int     `yaml:"workers" mapstructure:"workers"`
	CooldownMsec int     `yaml:"cooldown_msec" mapstructure:"cooldown_msec"`
}

// Cooldown returns the post-call delay as a duration.
func (i IsochroneConfig) Cooldown() time.Duration {
	return time.Duration(i.CooldownMsec) * time.Millisecond
}

// LocalConfig configures the file-based data layout used when no database
// is available.
type LocalConfig struct {
	LocationsDir  string `yaml:"locations_dir" mapstructure:"locations_dir"`
	IsochronesDir string `yaml:"isochrones_dir" mapstructure:"isochrones_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the settings a command mode depends on are present
// and in range. Mode is the command name: "geocode", "isochrones", or
// "migrate".
func (c *Config) Validate(mode string) error {
	var missing []string

	needsDB := func() {
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for the postgres driver")
		}
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "geocode":
		needsDB()
		if c.Geocoder.BaseURL == "" {
			missing = append(missing, "geocoder.base_url is required")
		}
		if c.Geocoder.RateLimit <= 0 {
			missing = append(missing, "geocoder.rate_limit must be > 0")
		}
	case "isochrones":
		needsDB()
		if c.Isochrone.APIKey == "" {
			missing = append(missing, "isochrone.api_key is required")
		}
		if c.Isochrone.Workers < 1 || c.Isochrone.Workers > 10 {
			missing = append(missing, "isochrone.workers must be between 1 and 10")
		}
		if len(c.Isochrone.Ranges) == 0 {
			missing = append(missing, "isochrone.ranges must not be empty")
		}
		for _, r := range c.Isochrone.Ranges {
			if r <= 0 {
				missing = append(missing, "isochrone.ranges values must be > 0")
				break
			}
		}
	case "migrate":
		needsDB()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: %s", strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.centers_table", "city_centers")
	v.SetDefault("store.locations_table", "locations")
	v.SetDefault("store.isochrones_table", "isochrones")
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "reach-cli")
	v.SetDefault("geocoder.timeout_secs", 10)
	v.SetDefault("geocoder.rate_limit", 1)
	v.SetDefault("isochrone.base_url", "https://api.openrouteservice.org")
	v.SetDefault("isochrone.profile", "driving-car")
	v.SetDefault("isochrone.ranges", []int{3600, 1800})
	v.SetDefault("isochrone.smoothing", 25)
	v.SetDefault("isochrone.workers", 2)
	v.SetDefault("isochrone.cooldown_msec", 1500)
	v.SetDefault("local.locations_dir", "data/locations")
	v.SetDefault("local.isochrones_dir", "data/isochrones")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
