package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	EvictionGrace     time.Duration `mapstructure:"eviction_grace"`
	JoinAnnounceDelay time.Duration `mapstructure:"join_announce_delay"`
	StoreTimeout      time.Duration `mapstructure:"store_timeout"`
	SoundRateLimit    int           `mapstructure:"sound_rate_limit"`
	SoundRateInterval time.Duration `mapstructure:"sound_rate_interval"`

	Store      StoreConfig `mapstructure:"store"`
	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	PoolSize int    `mapstructure:"pool_size"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults when
// the file is missing. A .env file, if present, is loaded into the
// environment first, and SOUNDROOM_* variables override file values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "config").Msg("no .env file")
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("SOUNDROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("eviction_grace", "3s")
	v.SetDefault("join_announce_delay", "50ms")
	v.SetDefault("store_timeout", "5s")
	v.SetDefault("sound_rate_limit", 10)
	v.SetDefault("sound_rate_interval", "5s")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "soundroom.db")
	v.SetDefault("store.pool_size", 4)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.PingPeriod <= 0 {
		return fmt.Errorf("ping_period must be positive, got %s", c.PingPeriod)
	}
	if c.EvictionGrace < 0 {
		return fmt.Errorf("eviction_grace must not be negative, got %s", c.EvictionGrace)
	}
	return nil
}
