// Package config loads the openvis configuration file.
//
// The file is TOML, found at $XDG_CONFIG_HOME/openvis/config.toml (or
// ~/.config/openvis/config.toml) unless a path is given. Every field has a
// default, so a missing default file is not an error and an empty file is a
// valid configuration:
//
//	[server]
//	addr = "127.0.0.1:8080"
//
//	[source]
//	kind = "floodlight"   # or "file" to replay snapshots from replay_dir
//
//	[connection]
//	probe_timeout = "5s"
//	retry_period = "30s"
//	default_interval = "5s"
//
//	[[connection.controllers]]
//	url = "http://10.0.0.1:8080"
//	interval = "2s"
//
//	[reconcile]
//	fade_window = "2.5s"
//	disconnect_policy = "immediate"   # or "fade"
//
//	[layout]
//	frame_rate = 60
//	drop_behavior = "release"   # or "pin"
//	[layout.params]
//	repel_force = 300.0
//
//	[persistence]
//	backend = "file"   # file, redis, mongo or none
package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/4ry1337/openvis/pkg/connection"
	"github.com/4ry1337/openvis/pkg/engine"
	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/layout"
	"github.com/4ry1337/openvis/pkg/reconcile"
	"github.com/4ry1337/openvis/pkg/source"
	"github.com/4ry1337/openvis/pkg/store"
)

const appName = "openvis"

// Source kinds.
const (
	SourceFloodlight = "floodlight"
	SourceFile       = "file"
)

// Duration is a time.Duration written as a string such as "2.5s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

// D returns the duration as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

// Config is the whole configuration file.
type Config struct {
	Server      Server       `toml:"server"`
	Source      Source       `toml:"source"`
	Connection  Connection   `toml:"connection"`
	Reconcile   Reconcile    `toml:"reconcile"`
	Layout      Layout       `toml:"layout"`
	Persistence store.Config `toml:"persistence"`
}

// Server configures the HTTP API.
type Server struct {
	Addr    string `toml:"addr"`
	Metrics bool   `toml:"metrics"` // serve /metrics
}

// Source selects where snapshots come from.
type Source struct {
	Kind           string   `toml:"kind"`
	ReplayDir      string   `toml:"replay_dir"`      // for kind "file"
	RequestTimeout Duration `toml:"request_timeout"` // per Floodlight request
	MaxErrors      int      `toml:"max_errors"`      // consecutive failures before a stream gives up
}

// Controller is a controller to connect on startup.
type Controller struct {
	URL      string   `toml:"url"`
	Interval Duration `toml:"interval"`
}

// Connection configures the connection manager.
type Connection struct {
	ProbeTimeout    Duration     `toml:"probe_timeout"`
	RetryPeriod     Duration     `toml:"retry_period"`
	DefaultInterval Duration     `toml:"default_interval"`
	Controllers     []Controller `toml:"controllers"`
}

// Reconcile configures removal of nodes.
type Reconcile struct {
	FadeWindow       Duration `toml:"fade_window"`
	DisconnectPolicy string   `toml:"disconnect_policy"`
}

// Layout configures the simulation.
type Layout struct {
	Width        float64       `toml:"width"`
	Height       float64       `toml:"height"`
	FrameRate    int           `toml:"frame_rate"`
	DropBehavior string        `toml:"drop_behavior"`
	Params       layout.Params `toml:"params"`
	Filter       layout.Filter `toml:"filter"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Server: Server{Addr: "127.0.0.1:8080", Metrics: true},
		Source: Source{
			Kind:           SourceFloodlight,
			RequestTimeout: Duration(5 * time.Second),
			MaxErrors:      source.DefaultMaxErrors,
		},
		Connection: Connection{
			ProbeTimeout:    Duration(connection.DefaultProbeTimeout),
			RetryPeriod:     Duration(connection.DefaultRetryPeriod),
			DefaultInterval: Duration(source.DefaultInterval),
		},
		Reconcile: Reconcile{
			FadeWindow:       Duration(reconcile.DefaultFadeWindow),
			DisconnectPolicy: string(engine.PurgeImmediately),
		},
		Layout: Layout{
			Width:        800,
			Height:       600,
			FrameRate:    engine.DefaultFrameRate,
			DropBehavior: string(layout.ReleaseOnDrop),
			Params:       layout.DefaultParams(),
			Filter:       layout.DefaultFilter(),
		},
		Persistence: store.Config{
			Backend: store.BackendFile,
			Dir:     dataDir(),
			Prefix:  store.DefaultPrefix,
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(configHome(), appName, "config.toml")
}

// Load reads the file at path over the defaults. An empty path loads
// DefaultPath and tolerates it not existing.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && stderrors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks every value the components would reject later.
func (c Config) Validate() error {
	var errs []error
	switch c.Source.Kind {
	case SourceFloodlight:
	case SourceFile:
		if c.Source.ReplayDir == "" {
			errs = append(errs, fmt.Errorf("source.replay_dir is required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind: unknown source %q", c.Source.Kind))
	}
	for i, ctrl := range c.Connection.Controllers {
		if err := errors.ValidateURL(ctrl.URL); err != nil {
			errs = append(errs, fmt.Errorf("connection.controllers[%d]: %w", i, err))
		}
		if ctrl.Interval != 0 {
			if err := errors.ValidateInterval(int(ctrl.Interval.D().Milliseconds())); err != nil {
				errs = append(errs, fmt.Errorf("connection.controllers[%d]: %w", i, err))
			}
		}
	}
	if _, err := engine.ParseDisconnectPolicy(c.Reconcile.DisconnectPolicy); err != nil {
		errs = append(errs, fmt.Errorf("reconcile.disconnect_policy: %w", err))
	}
	if _, err := layout.ParseDropBehavior(c.Layout.DropBehavior); err != nil {
		errs = append(errs, fmt.Errorf("layout.drop_behavior: %w", err))
	}
	if err := c.Layout.Params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout.params: %w", err))
	}
	if c.Layout.FrameRate < 0 || c.Layout.FrameRate > 240 {
		errs = append(errs, fmt.Errorf("layout.frame_rate: %d out of range [0, 240]", c.Layout.FrameRate))
	}
	switch c.Persistence.Backend {
	case store.BackendFile, store.BackendNone, "":
	case store.BackendRedis:
		if c.Persistence.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("persistence.redis_addr is required for the redis backend"))
		}
	case store.BackendMongo:
		if c.Persistence.MongoURI == "" {
			errs = append(errs, fmt.Errorf("persistence.mongo_uri is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("persistence.backend: unknown backend %q", c.Persistence.Backend))
	}
	return stderrors.Join(errs...)
}

// Encode writes c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return "."
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return filepath.Join(".", "."+appName)
}
