package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// CLIFlags holds command-line overrides. A nil field was not given on the
// command line and leaves the loaded value alone.
type CLIFlags struct {
	ConfigPath    *string
	Port          *string
	LogLevel      *string
	DSN           *string
	NatsURL       *string
	StorageDriver *string
}

// BindFlags registers the configuration flags on fs. The returned function
// reports the flags that were actually set once fs has been parsed.
func BindFlags(fs *pflag.FlagSet) func() CLIFlags {
	configPath := fs.StringP("config", "c", DefaultConfigFile, "path to YAML config file")
	port := fs.StringP("port", "p", "", "HTTP listen port")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	dsn := fs.String("dsn", "", "PostgreSQL connection string")
	natsURL := fs.String("nats-url", "", "NATS server URL")
	storage := fs.String("storage", "", "storage driver (postgres, memory)")

	return func() CLIFlags {
		var f CLIFlags
		pick := func(name string, v *string) *string {
			if fs.Changed(name) {
				return v
			}
			return nil
		}
		f.ConfigPath = pick("config", configPath)
		f.Port = pick("port", port)
		f.LogLevel = pick("log-level", logLevel)
		f.DSN = pick("dsn", dsn)
		f.NatsURL = pick("nats-url", natsURL)
		f.StorageDriver = pick("storage", storage)
		return f
	}
}

// ParseFlags parses args into CLIFlags.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := pflag.NewFlagSet("rentledger", pflag.ContinueOnError)
	collect := BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, fmt.Errorf("parse flags: %w", err)
	}
	return collect(), nil
}

// LoadWithCLI loads configuration with the hierarchy
// defaults < YAML < ENV < CLI flags and returns the YAML path that was used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if p := envOr("RENTLEDGER_CONFIG", ""); p != "" {
		path = p
	}
	if flags.ConfigPath != nil {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

func applyCLI(cfg *Config, f CLIFlags) {
	if f.Port != nil {
		cfg.Server.Port = *f.Port
	}
	if f.LogLevel != nil {
		cfg.Logging.Level = *f.LogLevel
	}
	if f.DSN != nil {
		cfg.Postgres.DSN = *f.DSN
	}
	if f.NatsURL != nil {
		cfg.NATS.URL = *f.NatsURL
	}
	if f.StorageDriver != nil {
		cfg.Storage.Driver = *f.StorageDriver
	}
}
