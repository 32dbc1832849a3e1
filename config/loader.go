package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/loop/errors"
	"github.com/kbukum/loop/logger"
)

// FileSystem abstracts the file operations Load performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem is the FileSystem backed by the operating system.
type OSFileSystem struct{}

// Exists reports whether path can be stat'ed.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set.
func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

type loaderConfig struct {
	fs         FileSystem
	configFile string
	envFile    string
	envPrefix  string
}

// Option configures Load.
type Option func(*loaderConfig)

// WithFileSystem replaces the file system used to find and read files.
func WithFileSystem(fs FileSystem) Option {
	return func(lc *loaderConfig) { lc.fs = fs }
}

// WithConfigFile loads path instead of searching for config.yml.
func WithConfigFile(path string) Option {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads path instead of searching for a .env file.
func WithEnvFile(path string) Option {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// WithEnvPrefix only binds environment variables starting with prefix
// followed by an underscore, with the prefix removed: LOOP_POOL_WORKERS
// sets pool.workers.
func WithEnvPrefix(prefix string) Option {
	return func(lc *loaderConfig) { lc.envPrefix = strings.ToUpper(prefix) + "_" }
}

// Load reads configuration for the named program into cfg.
func Load(name string, cfg any, opts ...Option) error {
	if name == "" {
		return errors.MissingField("name")
	}
	lc := loaderConfig{fs: OSFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	configFile := lc.configFile
	if configFile == "" {
		configFile = findFile(lc.fs, configSearchPaths(name))
	} else if !lc.fs.Exists(configFile) {
		return fmt.Errorf("config file %s not found", configFile)
	}
	envFile := lc.envFile
	if envFile == "" {
		envFile = findFile(lc.fs, envSearchPaths(name))
	}

	log := logger.Get("config")
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
		log.Debug("config file loaded", logger.Fields("path", configFile))
	}

	if envFile != "" {
		if err := lc.fs.LoadEnv(envFile); err != nil {
			log.Warn("failed to load .env file", logger.Fields("path", envFile, logger.FieldError, err.Error()))
		} else {
			log.Debug("env file loaded", logger.Fields("path", envFile))
		}
	}
	bindEnv(v, os.Environ(), lc.envPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshalling config for %s: %w", name, err)
	}
	return nil
}

func findFile(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

func configSearchPaths(name string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", name),
		fmt.Sprintf("../cmd/%s/config.yml", name),
		fmt.Sprintf("../../cmd/%s/config.yml", name),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}
}

func envSearchPaths(name string) []string {
	var paths []string
	for _, file := range []string{".env." + name, ".env"} {
		for _, dir := range []string{"./cmd/" + name, "./config", ".", "..", "../.."} {
			paths = append(paths, dir+"/"+file)
		}
	}
	return paths
}

// bindEnv sets every key variant of each environment variable on v.
func bindEnv(v *viper.Viper, environ []string, prefix string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || key == "" {
			continue
		}
		if prefix != "" {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			key = strings.TrimPrefix(key, prefix)
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants lists the config keys an environment variable may name.
//
//	POOL_WORKERS          -> [pool_workers, pool.workers]
//	TELEMETRY_SAMPLE_RATE -> [telemetry_sample_rate, telemetry.sample.rate, telemetry.sample_rate, telemetry_sample.rate]
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	variants := []string{lower, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants,
			strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"),
			strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "."),
		)
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
