package ori

import (
	"errors"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when no config file exists in the directory
// or any of its ancestors.
var ErrConfigNotFound = errors.New("no .ori.yaml found")

// Config represents the .ori.yaml configuration file.
type Config struct {
	// Exclude lists glob patterns for entry names that are never offered as
	// completions, e.g. ".git" or "node_modules".
	Exclude []string `yaml:"exclude,omitempty"`

	// Builtins are extra completion labels, such as builtin namespaces
	// ("tree:", "js:"), offered after the project scope entries.
	Builtins []string `yaml:"builtins,omitempty"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".ori.yaml", ".ori.yml", "ori.yaml", "ori.yml"}

// LoadConfig finds and loads the nearest config walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Excluded reports whether an entry name matches one of the exclude
// patterns. A trailing folder slash is ignored when matching.
func (c *Config) Excluded(name string) bool {
	if c == nil {
		return false
	}

	name = trimSlash(name)

	for _, pattern := range c.Exclude {
		if matched, _ := path.Match(trimSlash(pattern), name); matched {
			return true
		}
	}

	return false
}

// BuiltinNames returns the configured builtin labels. It is nil-safe.
func (c *Config) BuiltinNames() []string {
	if c == nil {
		return nil
	}

	return c.Builtins
}

func trimSlash(s string) string {
	if len(s) > 1 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}

	return s
}
