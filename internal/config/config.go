package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment variables (ATLAS_MAX_WORKERS...)
	EnvPrefix = "ATLAS"

	defaultConfigName = ".atlas-report.yaml"
	dotenvName        = ".env"
)

// Defaults match the original command-line tool
var Defaults = map[string]any{
	"base-url":            "https://cloud.mongodb.com/api/atlas/v1.0",
	"public-key":          "",
	"private-key":         "",
	"items-per-page":      500,
	"max-attempts":        5,
	"max-workers":         20,
	"timeout":             30,
	"timeout-total":       0,
	"rate-limit":          10.0,
	"burst":               10,
	"project":             []string{},
	"exclude-project":     []string{},
	"sort-by":             "project",
	"highlight-threshold": 30,
	"output":              "",
	"output-format":       "",
	"metrics-file":        "",
	"no-color":            false,
	"force-color":         false,
	"quiet":               false,
	"verbose":             false,
	"log-format":          "text",
}

// Manager resolves configuration from flags, environment, files and defaults
type Manager struct {
	configPath string
	workDir    string
	homeDir    string
	viper      *viper.Viper
	files      []string
}

// NewManager creates a manager reading through v. Flags bound to v take
// precedence over ATLAS_* variables, which take precedence over files.
// A nil v gets a fresh instance.
func NewManager(configPath string, v *viper.Viper) *Manager {
	if v == nil {
		v = viper.New()
	}
	home, _ := os.UserHomeDir()
	wd, _ := os.Getwd()
	return &Manager{
		configPath: configPath,
		workDir:    wd,
		homeDir:    home,
		viper:      v,
	}
}

// WithSearchDirs overrides where the implicit .env and home config are looked up
func (m *Manager) WithSearchDirs(workDir, homeDir string) *Manager {
	m.workDir = workDir
	m.homeDir = homeDir
	return m
}

// Load resolves the configuration. It does not validate it.
func (m *Manager) Load() (*Config, error) {
	for key, value := range Defaults {
		m.viper.SetDefault(key, value)
	}

	// Set environment variable support
	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.viper.AutomaticEnv()

	if err := m.readFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := m.viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FilesUsed lists the config files merged by Load, lowest precedence first
func (m *Manager) FilesUsed() []string {
	return m.files
}

// readFiles merges the explicit config file, or else the home YAML file and
// a .env in the working directory, the latter winning
func (m *Manager) readFiles() error {
	if m.configPath != "" {
		return m.mergeFile(m.configPath, true)
	}

	if m.homeDir != "" {
		if err := m.mergeFile(filepath.Join(m.homeDir, defaultConfigName), false); err != nil {
			return err
		}
	}
	if m.workDir != "" {
		if err := m.mergeFile(filepath.Join(m.workDir, dotenvName), false); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) mergeFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	values, err := readFile(path)
	if err != nil {
		return err
	}
	if err := m.viper.MergeConfigMap(values); err != nil {
		return fmt.Errorf("failed to merge config file %s: %w", path, err)
	}
	m.files = append(m.files, path)
	return nil
}

// readFile parses one config file into flag-named keys. Dotenv files use the
// environment spelling (ATLAS_MAX_WORKERS=10), everything else the flag
// spelling (max-workers: 10).
func readFile(path string) (map[string]any, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if isDotenv(path) {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if !isDotenv(path) {
		return v.AllSettings(), nil
	}

	prefix := strings.ToLower(EnvPrefix) + "_"
	values := make(map[string]any)
	for _, key := range v.AllKeys() {
		name, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		values[strings.ReplaceAll(name, "_", "-")] = v.Get(key)
	}
	return values, nil
}

func isDotenv(path string) bool {
	base := filepath.Base(path)
	return base == dotenvName || filepath.Ext(base) == ".env"
}
