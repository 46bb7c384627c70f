package depot

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the tunables of a World.
type Config struct {
	// PageSize is the byte budget of one entity page.
	PageSize int           `toml:"page_size"`
	Logging  LoggingConfig `toml:"logging"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // zap level name, or "off"
	Format string `toml:"format"` // "json" or "console"
}

func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
		Logging: LoggingConfig{
			Level:  "off",
			Format: "console",
		},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return cfg, nil
}
