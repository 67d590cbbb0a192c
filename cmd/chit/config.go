package main

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Dir         string `yaml:"dir"`
	Index       string `yaml:"index"`
	LogLevel    string `yaml:"log_level"`
	Metrics     string `yaml:"metrics"`
	Quarantine  bool   `yaml:"quarantine"`
	LoadWorkers int    `yaml:"load_workers"`
}

func defaultConfig() Config {
	return Config{Dir: ".", LogLevel: "warn"}
}

// LoadConfig reads a YAML file over the defaults. An empty path gives the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// override applies the flags the user set explicitly.
func (cfg *Config) override(flags *pflag.FlagSet) {
	if flags.Changed("dir") {
		cfg.Dir, _ = flags.GetString("dir")
	}
	if flags.Changed("index") {
		cfg.Index, _ = flags.GetString("index")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("metrics") {
		cfg.Metrics, _ = flags.GetString("metrics")
	}
	if flags.Changed("quarantine") {
		cfg.Quarantine, _ = flags.GetBool("quarantine")
	}
	if flags.Changed("workers") {
		cfg.LoadWorkers, _ = flags.GetInt("workers")
	}
}
