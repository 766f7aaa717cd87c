package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolpmikel/FinanceApp/internal/remote"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, remote.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, "finance.db", cfg.DBPath)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "@every 1m", cfg.Schedule)
	assert.Equal(t, "text", cfg.Format)
	assert.False(t, cfg.Verbose)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example/api/\ntoken: from-file\ntimeout: 3s\n"), 0o600))
	t.Setenv("FINANCE_TOKEN", "from-env")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example/api/", cfg.APIURL)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("FINANCE_DB", "env.db")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "")
	require.NoError(t, flags.Parse([]string{"--db", "flag.db"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag(KeyDB, flags.Lookup("db")))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.DBPath)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	// register cleanup for the variable the file exports
	t.Setenv("FINANCE_TOKEN", "")
	require.NoError(t, os.Unsetenv("FINANCE_TOKEN"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINANCE_TOKEN=dotenv-token\n"), 0o600))
	require.NoError(t, LoadDotEnv(path))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Token)
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestValidate(t *testing.T) {
	valid := Config{
		APIURL:   "https://example.com/api/v1/",
		DBPath:   "finance.db",
		Timeout:  time.Second,
		Schedule: "@every 30s",
		Format:   "json",
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.APIURL = "example.com" }},
		{"empty db", func(c *Config) { c.DBPath = "" }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"empty schedule", func(c *Config) { c.Schedule = "" }},
		{"unknown format", func(c *Config) { c.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
