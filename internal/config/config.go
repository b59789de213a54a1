// Package config loads the process-wide configuration described in spec
// §6: a flat set of environment variables with documented defaults, plus
// an optional YAML override file for values a deployment wants to pin
// without touching its process environment.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config mirrors spec §6's "Configuration (process-wide)" list, one field
// per entry. ThreadExit is intentionally not here: it is the one value that
// must be a shared atomic reachable from a signal handler without a
// context pointer (spec §9), so it lives on its own as a package-level
// atomic in this package rather than as a Config field.
type Config struct {
	Debug        bool `yaml:"debug"`
	Verbose      bool `yaml:"verbose"`
	ForceLocal   bool `yaml:"forceLocal"`
	WithPrologue bool `yaml:"withPrologue"`

	RedisHost   string `yaml:"redisHost"`
	RedisPort   int    `yaml:"redisPort"`
	RedisPrefix string `yaml:"redisPrefix"`

	QueueSleepMicros  int `yaml:"queueSleepMicros"`
	LockSleepMicros   int `yaml:"lockSleepMicros"`
	LockMaxRetries    int `yaml:"lockMaxRetries"`
	WaiterSleepMicros int `yaml:"waiterSleepMicros"`

	EnumerationUnrollingLimit int `yaml:"enumerationUnrollingLimit"`

	// QueueFilters is this process's worker filter map, matched against a
	// job's filters during work_once (spec §4.10).
	QueueFilters map[string]string `yaml:"queueFilters"`

	MaxThreads int `yaml:"maxThreads"`
}

// Default returns the configuration spec §6 specifies when no environment
// variable or override file is present.
func Default() *Config {
	return &Config{
		RedisHost:                 "localhost",
		RedisPort:                 6379,
		RedisPrefix:               "swarm_",
		QueueSleepMicros:          50_000,
		LockSleepMicros:           5_000,
		LockMaxRetries:            200,
		WaiterSleepMicros:         10_000,
		EnumerationUnrollingLimit: 10_000,
		MaxThreads:                1,
		QueueFilters:              map[string]string{},
	}
}

// Load builds a Config from Default(), then environment variables, then
// (if overridePath is non-empty) a YAML file, in that order of
// precedence — each later source wins over the former for the fields it
// sets.
func Load(overridePath string) (*Config, error) {
	cfg := Default()
	applyEnv(cfg)
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("DEBUG"); ok {
		cfg.Debug = envBool(v)
	}
	if v, ok := os.LookupEnv("VERBOSE"); ok {
		cfg.Verbose = envBool(v)
	}
	if v, ok := os.LookupEnv("FORCE_LOCAL"); ok {
		cfg.ForceLocal = envBool(v)
	}
	if v, ok := os.LookupEnv("WITH_PROLOGUE"); ok {
		cfg.WithPrologue = envBool(v)
	}
	if v, ok := os.LookupEnv("REDIS_HOST"); ok {
		cfg.RedisHost = v
	}
	if v, ok := os.LookupEnv("REDIS_PORT"); ok {
		cfg.RedisPort = envInt(v, cfg.RedisPort)
	}
	if v, ok := os.LookupEnv("REDIS_PREFIX"); ok {
		cfg.RedisPrefix = v
	}
	if v, ok := os.LookupEnv("QUEUE_SLEEP_uS"); ok {
		cfg.QueueSleepMicros = envInt(v, cfg.QueueSleepMicros)
	}
	if v, ok := os.LookupEnv("LOCK_SLEEP_uS"); ok {
		cfg.LockSleepMicros = envInt(v, cfg.LockSleepMicros)
	}
	if v, ok := os.LookupEnv("LOCK_MAX_RETRIES"); ok {
		cfg.LockMaxRetries = envInt(v, cfg.LockMaxRetries)
	}
	if v, ok := os.LookupEnv("WAITER_SLEEP_uS"); ok {
		cfg.WaiterSleepMicros = envInt(v, cfg.WaiterSleepMicros)
	}
	if v, ok := os.LookupEnv("ENUMERATION_UNROLLING_LIMIT"); ok {
		cfg.EnumerationUnrollingLimit = envInt(v, cfg.EnumerationUnrollingLimit)
	}
	if v, ok := os.LookupEnv("MAX_THREADS"); ok {
		cfg.MaxThreads = envInt(v, cfg.MaxThreads)
	}
}

func envBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func envInt(v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
