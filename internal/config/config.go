package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"
)

const envPrefix = "FORMHTTPD_"

type Config struct {
	Addr           string
	AllowedOrigin  string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   uint64
	MaxConns       int64
	DBPath         string
	LogLevel       string
	LogFormat      string
}

func Default() Config {
	return Config{
		Addr:           "127.0.0.1:5000",
		AllowedOrigin:  "https://my-cool-site.com",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxHeaderBytes: 8 << 10,
		MaxBodyBytes:   1 << 20,
		MaxConns:       256,
		DBPath:         "inventory.db",
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load starts from Default, applies FORMHTTPD_* variables from getenv and
// then the command line flags in args. Flags win. Usage and flag errors go
// to out; -h returns flag.ErrHelp.
func Load(args []string, getenv func(string) string, out io.Writer) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("httpserver", flag.ContinueOnError)
	if out == nil {
		out = io.Discard
	}
	fs.SetOutput(out)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP address to listen on")
	fs.StringVar(&cfg.AllowedOrigin, "origin", cfg.AllowedOrigin, "value of Access-Control-Allow-Origin")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "deadline for reading a request")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for writing a response")
	fs.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", cfg.MaxHeaderBytes, "largest accepted request head")
	fs.Uint64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "largest accepted request body")
	fs.Int64Var(&cfg.MaxConns, "max-conns", cfg.MaxConns, "connections served at once")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("ORIGIN", &c.AllowedOrigin)
	str("DB", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v := getenv(envPrefix + "READ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREAD_TIMEOUT: %w", envPrefix, err)
		}
		c.ReadTimeout = d
	}
	if v := getenv(envPrefix + "WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sWRITE_TIMEOUT: %w", envPrefix, err)
		}
		c.WriteTimeout = d
	}
	if v := getenv(envPrefix + "MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_CONNS: %w", envPrefix, err)
		}
		c.MaxConns = n
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("config: empty listen address")
	case c.MaxConns < 1:
		return fmt.Errorf("config: max-conns must be at least 1, got %d", c.MaxConns)
	case c.MaxHeaderBytes < 64:
		return fmt.Errorf("config: max-header-bytes too small: %d", c.MaxHeaderBytes)
	case c.ReadTimeout < 0 || c.WriteTimeout < 0:
		return fmt.Errorf("config: negative timeout")
	case c.LogFormat != "console" && c.LogFormat != "json":
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}
