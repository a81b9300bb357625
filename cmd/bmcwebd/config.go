package main

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/openbmc-project/bmcweb-core/internal/gateway"
)

// AppConfig is the full daemon configuration: the acceptor's server
// block plus the daemon-level knobs the bootstrap owns.
type AppConfig struct {
	Server gateway.Config `mapstructure:"server" json:"server" yaml:"server" toml:"server"`

	// LogLevel is one of panic, fatal, error, warn, info, debug.
	LogLevel string `mapstructure:"log_level" json:"log_level" yaml:"log_level" toml:"log_level"`

	// ConsoleSocket, when set, binds the /console0 websocket endpoint
	// to the host console server's unix socket.
	ConsoleSocket string `mapstructure:"console_socket" json:"console_socket" yaml:"console_socket" toml:"console_socket"`

	// PersistInterval is how often the dirty bit is checked and
	// flushed.
	PersistInterval time.Duration `mapstructure:"persist_interval" json:"persist_interval" yaml:"persist_interval" toml:"persist_interval"`
}

func defaultConfig() AppConfig {
	return AppConfig{
		Server: gateway.Config{
			Name:           "bmcweb",
			Listen:         "0.0.0.0:443",
			Hostname:       "openbmc",
			CertPath:       "/etc/ssl/certs/https/server.pem",
			LegacyCertPath: "/home/root/server.pem",
			StatePath:      "/var/lib/bmcweb/state.json",
		},
		LogLevel:        "info",
		PersistInterval: 10 * time.Second,
	}
}

// loadConfig merges, lowest precedence first: built-in defaults, the
// config file (any format viper reads), BMCWEB_* environment
// variables, and command-line flags bound by the root command.
func loadConfig(v *viper.Viper, file string) (AppConfig, error) {
	cfg := defaultConfig()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return cfg, err
	}

	return cfg, nil
}
