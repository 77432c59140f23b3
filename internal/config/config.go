package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
	"github.com/lehigh-university-libraries/chsandbox/internal/runner"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "CHSANDBOX"

const (
	DefaultPort     = "8888"
	DefaultUpstream = "https://api.cooperhewitt.org/"
)

// Config is the resolved configuration for a command
type Config struct {
	Endpoint    string
	Upstream    string
	Port        string
	PresetsFile string
	Timeout     time.Duration
	RelayRate   float64
	RelayBurst  int
	Verbose     bool
}

// Load resolves configuration from flags, CHSANDBOX_* environment variables
// and defaults, in that order of precedence. Keys use the flag names, so
// --relay-rate is also CHSANDBOX_RELAY_RATE.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("endpoint", runner.DefaultEndpoint)
	v.SetDefault("upstream", DefaultUpstream)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("presets", "")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("relay-rate", 0.0)
	v.SetDefault("relay-burst", 1)
	v.SetDefault("verbose", false)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := Config{
		Endpoint:    v.GetString("endpoint"),
		Upstream:    v.GetString("upstream"),
		Port:        v.GetString("port"),
		PresetsFile: v.GetString("presets"),
		Timeout:     v.GetDuration("timeout"),
		RelayRate:   v.GetFloat64("relay-rate"),
		RelayBurst:  v.GetInt("relay-burst"),
		Verbose:     v.GetBool("verbose"),
	}

	if cfg.Timeout < 0 {
		return Config{}, fmt.Errorf("timeout must not be negative: %s", cfg.Timeout)
	}
	if cfg.RelayBurst < 0 {
		return Config{}, fmt.Errorf("relay burst must not be negative: %d", cfg.RelayBurst)
	}

	return cfg, nil
}

// Presets loads the preset library, the embedded one unless PresetsFile is set
func (c Config) Presets() (*presets.Library, error) {
	if c.PresetsFile == "" {
		return presets.Default()
	}
	return presets.LoadFile(c.PresetsFile)
}
