// Package config resolves runtime options from flags, SLEEPCLOCK_*
// environment variables and an optional .sleepclock.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sadopc/sleepclock/internal/schedule"
	"github.com/sadopc/sleepclock/internal/store"
)

const (
	KeyDB      = "db"
	KeyProfile = "profile"
	KeyAt      = "at"
	KeyPoll    = "poll"
	KeyLog     = "log"

	DefaultProfile = "Kid"
	DefaultPoll    = 60 * time.Second

	envPrefix  = "SLEEPCLOCK"
	configName = ".sleepclock"
)

type Config struct {
	DBPath  string
	Profile string
	// At overrides the time of day for testing, HH:mm or empty.
	At      string
	Poll    time.Duration
	LogPath string
	// File is the config file that was read, if any.
	File string
}

// Load merges, highest first: flags set on the command line, environment,
// config file, defaults.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return Config{}, fmt.Errorf("default db path: %w", err)
	}
	v.SetDefault(KeyDB, dbPath)
	v.SetDefault(KeyProfile, DefaultProfile)
	v.SetDefault(KeyAt, "")
	v.SetDefault(KeyPoll, DefaultPoll)
	v.SetDefault(KeyLog, filepath.Join(filepath.Dir(dbPath), "sleepclock.log"))

	v.SetConfigName(configName) // .yaml is implicit
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if override := os.Getenv(envPrefix + "_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if flags != nil {
		for _, key := range []string{KeyDB, KeyProfile, KeyAt, KeyPoll, KeyLog} {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	cfg := Config{
		Profile: v.GetString(KeyProfile),
		At:      v.GetString(KeyAt),
		Poll:    v.GetDuration(KeyPoll),
		File:    v.ConfigFileUsed(),
	}
	if cfg.DBPath, err = homedir.Expand(v.GetString(KeyDB)); err != nil {
		return Config{}, fmt.Errorf("expand db path: %w", err)
	}
	if cfg.LogPath, err = homedir.Expand(v.GetString(KeyLog)); err != nil {
		return Config{}, fmt.Errorf("expand log path: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Profile == "" {
		return errors.New("config: profile must not be empty")
	}
	if c.At != "" && !schedule.ValidTime(c.At) {
		return fmt.Errorf("config: at: %w", &schedule.FormatError{Value: c.At})
	}
	if c.Poll <= 0 {
		return fmt.Errorf("config: poll must be positive, got %s", c.Poll)
	}
	return nil
}

// Flags registers the options shared by every command.
func Flags(fs *pflag.FlagSet) {
	fs.String(KeyDB, "", "path to the SQLite database")
	fs.String(KeyProfile, "", "profile name (default \""+DefaultProfile+"\")")
	fs.String(KeyAt, "", "pretend the time of day is HH:mm")
	fs.Duration(KeyPoll, 0, "schedule poll interval (default 1m)")
	fs.String(KeyLog, "", "log file path")
}
