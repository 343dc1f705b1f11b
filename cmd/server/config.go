package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MegaGrindStone/playground-web-ui/internal/models"
	"gopkg.in/yaml.v3"
)

type generationMode string

const (
	generationChannel generationMode = "channel"
	generationHTTP    generationMode = "http"
)

type config struct {
	Port              string
	APIBaseURL        string
	ChannelURL        string
	Generation        generationMode
	StorePath         string
	ReconnectInterval time.Duration
	Log               logConfig
	Settings          models.SamplingSettings
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	envAPIBaseURL = "PLAYGROUND_API_BASE_URL"
	envChannelURL = "PLAYGROUND_CHANNEL_URL"
	envPort       = "PLAYGROUND_PORT"

	configDirName = "playgroundui"
)

func defaultConfig(cfgDir string) config {
	return config{
		Port:              "8080",
		APIBaseURL:        "http://localhost:8081/api",
		Generation:        generationChannel,
		StorePath:         filepath.Join(cfgDir, "store.db"),
		ReconnectInterval: time.Second,
		Log: logConfig{
			Level:  "info",
			Format: "text",
		},
		Settings: models.DefaultSettings(),
	}
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port              string                  `yaml:"port"`
		APIBaseURL        string                  `yaml:"apiBaseURL"`
		ChannelURL        string                  `yaml:"channelURL"`
		Generation        string                  `yaml:"generation"`
		StorePath         string                  `yaml:"storePath"`
		ReconnectInterval string                  `yaml:"reconnectInterval"`
		Log               logConfig               `yaml:"log"`
		Settings          models.SamplingSettings `yaml:"settings"`
	}
	// Nested sections decode on top of the current values, so a partial section keeps the other fields.
	rawConfig.Log = c.Log
	rawConfig.Settings = c.Settings

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	// Only the fields present in the file override the defaults already in c.
	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	if rawConfig.APIBaseURL != "" {
		c.APIBaseURL = rawConfig.APIBaseURL
	}
	if rawConfig.ChannelURL != "" {
		c.ChannelURL = rawConfig.ChannelURL
	}
	if rawConfig.StorePath != "" {
		c.StorePath = rawConfig.StorePath
	}

	switch mode := generationMode(rawConfig.Generation); mode {
	case "":
	case generationChannel, generationHTTP:
		c.Generation = mode
	default:
		return fmt.Errorf("unknown generation mode: %s", rawConfig.Generation)
	}

	if rawConfig.ReconnectInterval != "" {
		d, err := time.ParseDuration(rawConfig.ReconnectInterval)
		if err != nil {
			return fmt.Errorf("invalid reconnectInterval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("reconnectInterval must be positive")
		}
		c.ReconnectInterval = d
	}

	c.Log = rawConfig.Log
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}

	c.Settings = rawConfig.Settings

	return nil
}

// loadConfig reads the YAML file at path on top of the defaults. A missing file means defaults.
func loadConfig(path string, defaults config) (config, error) {
	cfg := defaults

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides the file values with the environment.
func (c *config) applyEnv(getenv func(string) string) {
	if v := getenv(envAPIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := getenv(envChannelURL); v != "" {
		c.ChannelURL = v
	}
	if v := getenv(envPort); v != "" {
		c.Port = v
	}
}

// channelURL returns the websocket endpoint of the backend. Unless configured, it is the API base URL with
// its scheme switched to ws or wss and "/ws" appended.
func (c config) channelURL() (string, error) {
	if c.ChannelURL != "" {
		return c.ChannelURL, nil
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid apiBaseURL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("apiBaseURL must be http or https, got %q", c.APIBaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawPath = ""

	return u.String(), nil
}

func (l logConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

func (l logConfig) logger() *slog.Logger {
	level, _ := l.level()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
