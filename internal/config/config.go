// Package config loads the homework bot configuration on top of the core one.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/homeworkbot/core/config"
	coredatabase "github.com/m3rciful/homeworkbot/core/database"
)

const (
	// BackendSQL keeps homework in SQLite or PostgreSQL.
	BackendSQL = "sql"
	// BackendJSON keeps homework in a single JSON document.
	BackendJSON = "json"
)

// StorageConfig selects and configures the homework store.
type StorageConfig struct {
	Backend  string `yaml:"backend" envconfig:"STORAGE_BACKEND" validate:"omitempty,oneof=sql json"`
	JSONPath string `yaml:"json_path" envconfig:"STORAGE_JSON_PATH"`
	// ImportJSON names a legacy JSON document copied into the SQL store once.
	ImportJSON string `yaml:"import_json" envconfig:"STORAGE_IMPORT_JSON"`
}

// HomeworkConfig tunes bot behaviour.
type HomeworkConfig struct {
	// SharedList makes every user read and write one common list.
	SharedList bool `yaml:"shared_list" envconfig:"HOMEWORK_SHARED_LIST"`
	// SessionTTL expires unfinished dialogs; 0 keeps them until the next message.
	SessionTTL time.Duration `yaml:"session_ttl" envconfig:"HOMEWORK_SESSION_TTL" validate:"gte=0"`
	// SweepInterval controls how often expired dialogs are dropped.
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Homework HomeworkConfig      `yaml:"homework"`
}

// CoreConfig exposes the embedded core section to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and applies defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.Homework.SessionTTL = 24 * time.Hour
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills storage defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQL
	}
	if err := coreconfig.Validate(cfg); err != nil {
		return err
	}

	if cfg.Storage.Backend == BackendJSON {
		if strings.TrimSpace(cfg.Storage.JSONPath) == "" {
			cfg.Storage.JSONPath = "data/homework.json"
		}
		if cfg.Storage.ImportJSON != "" {
			return fmt.Errorf("storage.import_json requires storage.backend %q", BackendSQL)
		}
	}
	cfg.Database = cfg.Database.WithDefaults()

	if cfg.Homework.SessionTTL > 0 && cfg.Homework.SweepInterval == 0 {
		cfg.Homework.SweepInterval = time.Minute
	}
	return nil
}
