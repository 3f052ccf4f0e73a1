// Package config loads flatbundle's project configuration file,
// `.flatbundle.yaml`, grounded on ludo-technologies-jscan's
// viper+yaml.v3 configuration setup.
package config

import (
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk `.flatbundle.yaml` shape.
type Config struct {
	// Entry is the entry module's path, relative to the config file.
	Entry string `mapstructure:"entry" yaml:"entry"`

	// Out is the output file path for the flattened bundle.
	Out string `mapstructure:"out" yaml:"out"`

	// External lists doublestar glob patterns treated as external
	// regardless of whether a same-named local file exists.
	External []string `mapstructure:"external" yaml:"external"`

	// Globals maps an external module specifier to the global variable
	// name an external consumer is assumed to already provide it under —
	// e.g. {"react": "React"} for a script-tag React.
	Globals map[string]string `mapstructure:"globals" yaml:"globals"`

	// Ignore is the path to a gitignore-syntax file whose patterns
	// loader.Preload consults to skip preloading matching files; Resolve and
	// Load do not consult it, and watch mode runs no Preload pass. Defaults
	// to ".flatbundleignore".
	Ignore string `mapstructure:"ignore" yaml:"ignore"`
}

// Default returns the configuration flatbundle falls back to when no
// `.flatbundle.yaml` is present.
func Default() Config {
	return Config{
		Entry:  "./index.js",
		Out:    "./dist/bundle.js",
		Ignore: ".flatbundleignore",
	}
}

// Load reads `.flatbundle.yaml` (or the file at path, if non-empty) from
// dir, falling back to Default() for any field the file omits and
// returning Default() unchanged if no config file exists at all.
func Load(dir, path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".flatbundle")
		v.AddConfigPath(dir)
	}

	v.SetDefault("entry", cfg.Entry)
	v.SetDefault("out", cfg.Out)
	v.SetDefault("ignore", cfg.Ignore)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return cfg, nil
		}
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteDefault writes a starter `.flatbundle.yaml` to path, for the CLI's
// `init` flow. Marshalled with yaml.v3 directly rather than through viper,
// which has no corresponding "write config" API of its own.
func WriteDefault(path string) error {
	return WriteConfig(path, Default())
}

// WriteConfig marshals cfg with yaml.v3 and writes it to path, for the
// `init --interactive` flow that collects fields other than the defaults.
func WriteConfig(path string, cfg Config) error {
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
