// Package config loads the gateway configuration: defaults, then an
// optional TOML file, then command-line overrides, in that order.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConfigFile is looked up in the working directory when no -config
// flag is given.
const DefaultConfigFile = "homegate.toml"

// Config is the whole application configuration.
type Config struct {
	Debug bool `toml:"debug"`
	Log   struct {
		Filename string `toml:"filename"`
	} `toml:"log"`
	Socket struct {
		Path string `toml:"path"`
		// RequestTimeout bounds each request's wait on the graph-owner
		// loop, so a hung device call becomes a client-visible error
		// instead of stalling everything queued behind it. "0" disables.
		RequestTimeout string `toml:"request_timeout"`
	} `toml:"socket"`
	Data struct {
		Dir string `toml:"dir"`
	} `toml:"data"`
	Cache struct {
		Staleness    string `toml:"staleness"`
		WarmInterval string `toml:"warm_interval"`
	} `toml:"cache"`
	WebSocket struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"websocket"`
	Subsystem struct {
		Driver  string `toml:"driver"`
		Fixture string `toml:"fixture"`
	} `toml:"subsystem"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.Socket.Path = ""
	cfg.Socket.RequestTimeout = "30s"
	cfg.Cache.Staleness = "5m"
	cfg.Cache.WarmInterval = "5m"
	cfg.WebSocket.Addr = "localhost:8420"
	cfg.Subsystem.Driver = "simulator"
	return cfg
}

// LoadConfig loads the configuration with the following precedence:
// the file at configPath when given, else the default file when present,
// else pure defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := NewConfig()

	filePath := configPath
	if filePath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			filePath = DefaultConfigFile
		} else {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(filePath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequestTimeout parses the socket request timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	return parseDuration(c.Socket.RequestTimeout, "socket.request_timeout")
}

// Staleness parses the cache staleness window.
func (c *Config) Staleness() (time.Duration, error) {
	return parseDuration(c.Cache.Staleness, "cache.staleness")
}

// WarmInterval parses the background warm period.
func (c *Config) WarmInterval() (time.Duration, error) {
	return parseDuration(c.Cache.WarmInterval, "cache.warm_interval")
}

func parseDuration(s, key string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

// CommandLineArgs holds flag values plus whether each flag was actually
// given, so unset flags never clobber file-configured values.
type CommandLineArgs struct {
	ConfigFile string

	Debug          bool
	DebugSpecified bool

	LogFilename          string
	LogFilenameSpecified bool

	SocketPath          string
	SocketPathSpecified bool

	DataDir          string
	DataDirSpecified bool

	Fixture          string
	FixtureSpecified bool

	WebSocketEnabled          bool
	WebSocketEnabledSpecified bool
	WebSocketAddr             string
	WebSocketAddrSpecified    bool
}

// ParseCommandLineArgs parses the process flags.
func ParseCommandLineArgs() CommandLineArgs {
	var args CommandLineArgs

	configFlag := flag.String("config", "", "path to the TOML config file")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	logFlag := flag.String("log", "", "log file path (default stderr)")
	socketFlag := flag.String("socket", "", "command socket path")
	dataDirFlag := flag.String("data-dir", "", "directory for persisted cache and filter config")
	fixtureFlag := flag.String("fixture", "", "simulator fixture file (simulator driver)")
	wsFlag := flag.Bool("websocket", false, "enable the WebSocket bridge")
	wsAddrFlag := flag.String("ws-addr", "", "WebSocket bridge listen address")

	flag.Parse()

	specified := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { specified[f.Name] = true })

	args.ConfigFile = *configFlag
	args.Debug, args.DebugSpecified = *debugFlag, specified["debug"]
	args.LogFilename, args.LogFilenameSpecified = *logFlag, specified["log"]
	args.SocketPath, args.SocketPathSpecified = *socketFlag, specified["socket"]
	args.DataDir, args.DataDirSpecified = *dataDirFlag, specified["data-dir"]
	args.Fixture, args.FixtureSpecified = *fixtureFlag, specified["fixture"]
	args.WebSocketEnabled, args.WebSocketEnabledSpecified = *wsFlag, specified["websocket"]
	args.WebSocketAddr, args.WebSocketAddrSpecified = *wsAddrFlag, specified["ws-addr"]

	return args
}

// ApplyCommandLineArgs overrides file-configured values with flags the user
// actually passed.
func (c *Config) ApplyCommandLineArgs(args CommandLineArgs) {
	if args.DebugSpecified {
		c.Debug = args.Debug
	}
	if args.LogFilenameSpecified {
		c.Log.Filename = args.LogFilename
	}
	if args.SocketPathSpecified {
		c.Socket.Path = args.SocketPath
	}
	if args.DataDirSpecified {
		c.Data.Dir = args.DataDir
	}
	if args.FixtureSpecified {
		c.Subsystem.Fixture = args.Fixture
	}
	if args.WebSocketEnabledSpecified {
		c.WebSocket.Enabled = args.WebSocketEnabled
	}
	if args.WebSocketAddrSpecified {
		c.WebSocket.Addr = args.WebSocketAddr
	}
}
