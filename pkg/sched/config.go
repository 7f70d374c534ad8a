package sched

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config selects and configures the scheduler validator. It lives in its
// own file-or-env config (rather than the gateway's envconfig) because
// operators tune scheduler endpoints per cluster, often from a mounted
// config file.
type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`

	v *viper.Viper
}

const (
	EnvPrefix  = "HIVEGATE_SCHED"
	ConfigName = "scheduler"

	EnabledKey  = "enabled"
	EndpointKey = "endpoint"
	TimeoutKey  = "timeout"
)

// LoadConfig creates a Config with its own viper instance (no global
// state). cfgFile may be empty, in which case scheduler.yaml in the
// working directory is used when present, plus HIVEGATE_SCHED_* env
// overrides.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		for _, name := range []string{"scheduler.yaml", "scheduler.yml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling scheduler config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(EnabledKey, false)
	v.SetDefault(EndpointKey, "http://localhost:30096/v2/validate")
	v.SetDefault(TimeoutKey, 30*time.Second)
}

// Validator builds the Validator this config describes.
func (c *Config) Validator(client Client) Validator {
	if !c.Enabled {
		return Passthrough{}
	}
	return NewHTTPValidator(c.Endpoint, client)
}
