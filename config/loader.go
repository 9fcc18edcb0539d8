package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/restkit/logger"
)

const defaultEnvPrefix = "RESTKIT"

// FileSystem abstracts file access so loaders can be tested.
type FileSystem interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the OS.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// LoadEnv loads a .env file without overriding variables already set.
func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver finds settings and env files for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given, otherwise the first
// existing candidate in the standard locations.
func (r *Resolver) ResolveFiles(serviceName string, lc LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(configCandidates(serviceName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(envCandidates(serviceName))
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

func configCandidates(serviceName string) []string {
	var paths []string
	if serviceName != "" {
		for _, dir := range []string{"./cmd/" + serviceName, "./config/" + serviceName} {
			paths = append(paths, dir+"/config.yml", dir+"/config.yaml")
		}
	}
	return append(paths, "./config/config.yml", "./config.yml", "./config.yaml")
}

func envCandidates(serviceName string) []string {
	var paths []string
	if serviceName != "" {
		paths = append(paths, "./.env."+serviceName, "./cmd/"+serviceName+"/.env")
	}
	return append(paths, "./.env", "./config/.env")
}

// LoaderConfig holds loader dependencies and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // explicit settings or properties file
	EnvFile    string // explicit .env file
	EnvPrefix  string // settings env prefix, default RESTKIT
	EnvKeys    []string
}

// LoaderOption is a functional option for LoadConfig and LoadProperties.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the environment prefix used by LoadConfig.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// WithEnvKeys makes LoadProperties read the given keys from the
// environment even when no file declares them.
func WithEnvKeys(keys ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvKeys = append(lc.EnvKeys, keys...) }
}

func newLoaderConfig(opts []LoaderOption) LoaderConfig {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = RealFileSystem{}
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = defaultEnvPrefix
	}
	return lc
}

// LoadConfig loads settings for a service into cfg. The settings file is
// read first, then the .env file, then <PREFIX>_* environment variables
// override file values. A missing settings file is not an error.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := newLoaderConfig(opts)
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)
	log := logger.WithComponent("restkit.config")

	loadEnvFile(lc.FileSystem, files.EnvFile, log)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		if err := readInto(v, lc.FileSystem, files.ConfigFile); err != nil {
			return err
		}
	}
	bindPrefixedEnv(v, lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	log.Debug("settings loaded", logger.Fields("service", serviceName, "file", files.ConfigFile))
	return nil
}

func loadEnvFile(fs FileSystem, path string, log *logger.Logger) {
	if path == "" || !fs.Exists(path) {
		return
	}
	if err := fs.LoadEnv(path); err != nil {
		log.WithError(err).Warn("failed to load env file", logger.Fields("file", path))
	}
}

func readInto(v *viper.Viper, fs FileSystem, path string) error {
	data, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "properties", "props", "prop":
		if err := setProperties(v, data); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		return nil
	case "yml":
		ext = "yaml"
	}
	v.SetConfigType(ext)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// bindPrefixedEnv copies <PREFIX>_A_B_C variables into v under every
// plausible nesting of a.b.c, so nested struct fields whose names contain
// underscores are reachable.
func bindPrefixedEnv(v *viper.Viper, prefix string) {
	p := strings.ToUpper(prefix) + "_"
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, p) {
			continue
		}
		for _, key := range envKeyVariants(strings.TrimPrefix(name, p)) {
			v.Set(key, value)
		}
	}
}

// envKeyVariants maps HTTP_DIAL_TIMEOUT to http_dial_timeout,
// http.dial_timeout, http.dial.timeout and http_dial.timeout.
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	add(strings.Join(parts, "_"))
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "."))
	}
	return out
}
