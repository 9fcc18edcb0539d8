package config

import (
	"fmt"
	"strings"

	"github.com/magiconair/properties"
	"github.com/spf13/viper"

	"github.com/kbukum/restkit/logger"
)

// LoadProperties reads a properties source into a flat map of dotted keys.
// YAML, JSON and TOML files are flattened by viper; .properties files use
// the key=value line format. Keys are lower-cased. Environment variables
// override values for keys the file declares and for WithEnvKeys keys.
func LoadProperties(opts ...LoaderOption) (map[string]string, error) {
	lc := newLoaderConfig(opts)
	log := logger.WithComponent("restkit.config")

	loadEnvFile(lc.FileSystem, lc.EnvFile, log)

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if lc.ConfigFile != "" {
		if !lc.FileSystem.Exists(lc.ConfigFile) {
			return nil, fmt.Errorf("config: properties file %s not found", lc.ConfigFile)
		}
		if err := readInto(v, lc.FileSystem, lc.ConfigFile); err != nil {
			return nil, err
		}
	}
	for _, k := range lc.EnvKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	out := make(map[string]string)
	for _, k := range v.AllKeys() {
		if s := v.GetString(k); s != "" {
			out[k] = s
		}
	}
	log.Debug("properties loaded", logger.Fields("file", lc.ConfigFile, "keys", len(out)))
	return out, nil
}

// setProperties loads a .properties file into v as defaults, so that
// environment variables still override it. Escapes and line continuations
// follow the java.util.Properties format; ${} references are kept literal
// because method patterns are regular expressions.
func setProperties(v *viper.Viper, data []byte) error {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return err
	}
	for _, k := range p.Keys() {
		value, _ := p.Get(k)
		v.SetDefault(k, value)
	}
	return nil
}
