package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aluiziolira/go-scrape-pets/parser"
)

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFile overlays the config file at path (yaml, toml, json, ...) on top
// of cfg. Keys absent from the file keep their current values. Vocabulary
// lists in the file replace only the lists they name.
func LoadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	base := cfg.Vocabulary
	cfg.Vocabulary = parser.Vocabulary{}
	if err := v.Unmarshal(cfg); err != nil {
		cfg.Vocabulary = base
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.Vocabulary = base.Merge(cfg.Vocabulary)
	return nil
}
