package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources    Sources    `yaml:"sources"`
	Summarizer Summarizer `yaml:"summarizer"`
	Edition    Edition    `yaml:"edition"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
}

type Sources struct {
	Feeds         []string `yaml:"feeds"`
	FetchSnippets bool     `yaml:"fetch_snippets"`
}

type Summarizer struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

type Edition struct {
	GreetingName string `yaml:"greeting_name"`
	Location     string `yaml:"location"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for readr.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "readr")
}

// DataDir returns the XDG data directory for readr.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "readr")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/readr/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'readr init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Summarizer: Summarizer{
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Server: Server{Port: 3001},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// FeedURLs returns the configured feed list. The RSS_FEEDS environment
// variable (comma-separated URLs) overrides the file when set.
func (c *Config) FeedURLs() []string {
	if raw := os.Getenv("RSS_FEEDS"); raw != "" {
		var urls []string
		for _, part := range strings.Split(raw, ",") {
			if u := strings.TrimSpace(part); u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	}
	return c.Sources.Feeds
}

// APIKey resolves the summarizer credential from the configured env var.
func (c *Config) APIKey() string {
	return os.Getenv(c.Summarizer.APIKeyEnv)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
