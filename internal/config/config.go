// Package config loads CLI settings from flags, environment, .env files and
// an optional config file, then validates them against an embedded CUE schema.
//
// Precedence, highest first: flags, FINANCE_* environment, .env, config file,
// defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kolpmikel/FinanceApp/internal/remote"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes every environment variable, e.g. FINANCE_API_URL.
const EnvPrefix = "FINANCE"

// Keys shared by viper, the config file and flag bindings.
const (
	KeyAPIURL   = "api_url"
	KeyToken    = "token"
	KeyDB       = "db"
	KeyTimeout  = "timeout"
	KeySchedule = "schedule"
	KeyLogFile  = "log_file"
	KeyFormat   = "format"
	KeyVerbose  = "verbose"
)

// Defaults for keys that are never empty. CLI flags reuse them so --help
// shows the effective value.
const (
	DefaultDB       = "finance.db"
	DefaultTimeout  = 15 * time.Second
	DefaultSchedule = "@every 1m"
	DefaultFormat   = "text"
)

// Config is the resolved CLI configuration.
type Config struct {
	APIURL   string        `mapstructure:"api_url"`
	Token    string        `mapstructure:"token"`
	DBPath   string        `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Schedule string        `mapstructure:"schedule"`
	LogFile  string        `mapstructure:"log_file"`
	Format   string        `mapstructure:"format"`
	Verbose  bool          `mapstructure:"verbose"`
}

// SetDefaults registers the default for every key. Keys without a default
// are invisible to Unmarshal, so env overrides rely on this.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIURL, remote.DefaultBaseURL)
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyDB, DefaultDB)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeySchedule, DefaultSchedule)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyFormat, DefaultFormat)
	v.SetDefault(KeyVerbose, false)
}

// LoadDotEnv exports the variables of a .env file into the process
// environment without overriding ones already set. A missing file is fine.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load resolves the configuration held by v. Flags must already be bound.
// configFile may be empty.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	val := ctx.Encode(map[string]any{
		"api_url":    cfg.APIURL,
		"token":      cfg.Token,
		"db":         cfg.DBPath,
		"timeout_ms": cfg.Timeout.Milliseconds(),
		"schedule":   cfg.Schedule,
		"log_file":   cfg.LogFile,
		"format":     cfg.Format,
		"verbose":    cfg.Verbose,
	})
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
