package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geocoding GeocodingConfig `yaml:"geocoding" mapstructure:"geocoding"`
	Datasets  DatasetsConfig  `yaml:"datasets" mapstructure:"datasets"`
	Merge     MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Score     ScoreConfig     `yaml:"score" mapstructure:"score"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the geocode cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TTLDays     int    `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// GeocodingConfig holds the external geocoding provider settings.
type GeocodingConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	CityHint          string  `yaml:"city_hint" mapstructure:"city_hint"`
}

// DatasetsConfig names the CSV exports on disk.
type DatasetsConfig struct {
	Dir           string `yaml:"dir" mapstructure:"dir"`
	Infractions   string `yaml:"infractions" mapstructure:"infractions"`
	StreetParking string `yaml:"street_parking" mapstructure:"street_parking"`
	Lots          string `yaml:"lots" mapstructure:"lots"`
}

// MergeConfig tunes clustering.
type MergeConfig struct {
	RadiusM float64 `yaml:"radius_m" mapstructure:"radius_m"`
}

// ScoreConfig tunes the safety scorer weights.
type ScoreConfig struct {
	InfractionWeight   float64 `yaml:"infraction_weight" mapstructure:"infraction_weight"`
	StreetParkingBonus float64 `yaml:"street_parking_bonus" mapstructure:"street_parking_bonus"`
	LotBonus           float64 `yaml:"lot_bonus" mapstructure:"lot_bonus"`
}

// RunConfig configures batch geocoding runs.
type RunConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given run mode ("run", "serve",
// "export"). Problems are joined into one error so operators see everything
// at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Store.TTLDays < 0 {
		problems = append(problems, "store.ttl_days must be >= 0")
	}
	if c.Geocoding.RequestsPerSecond <= 0 {
		problems = append(problems, "geocoding.requests_per_second must be > 0")
	}
	if c.Geocoding.MaxAttempts < 1 {
		problems = append(problems, "geocoding.max_attempts must be >= 1")
	}
	if c.Merge.RadiusM < 0 {
		problems = append(problems, "merge.radius_m must be >= 0")
	}
	if c.Run.Workers < 1 || c.Run.Workers > 64 {
		problems = append(problems, "run.workers must be between 1 and 64")
	}

	switch mode {
	case "run", "export":
		// Datasets must be readable for a batch run; the server can start
		// without them and serve cached markers.
		if c.Datasets.Dir == "" {
			problems = append(problems, "datasets.dir is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
	v.SetEnvPrefix("PARKSAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "geocode_cache.db")
	v.SetDefault("store.ttl_days", 0)
	v.SetDefault("geocoding.requests_per_second", 10)
	v.SetDefault("geocoding.max_attempts", 3)
	v.SetDefault("geocoding.city_hint", "Waterloo, ON, Canada")
	v.SetDefault("datasets.dir", "sample_data")
	v.SetDefault("datasets.infractions", "City_of_Waterloo_Bylaw_Parking_Infractions.csv")
	v.SetDefault("datasets.street_parking", "Parking_On_Street.csv")
	v.SetDefault("datasets.lots", "ParkingLots.csv")
	v.SetDefault("merge.radius_m", 0)
	v.SetDefault("score.infraction_weight", 0.6)
	v.SetDefault("score.street_parking_bonus", 0.1)
	v.SetDefault("score.lot_bonus", 0.1)
	v.SetDefault("run.workers", 8)
	v.SetDefault("server.port", 8080)
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
