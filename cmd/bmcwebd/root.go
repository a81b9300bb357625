package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/openbmc-project/bmcweb-core/internal/authconfig"
	"github.com/openbmc-project/bmcweb-core/internal/gateway"
	"github.com/openbmc-project/bmcweb-core/internal/logger"
	"github.com/openbmc-project/bmcweb-core/internal/metrics"
	"github.com/openbmc-project/bmcweb-core/internal/persist"
	"github.com/openbmc-project/bmcweb-core/internal/router"
	"github.com/openbmc-project/bmcweb-core/internal/router/redfish"
	"github.com/openbmc-project/bmcweb-core/internal/session"
	"github.com/openbmc-project/bmcweb-core/internal/timerqueue"
)

var (
	flagConfig  string
	flagVerbose bool
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "bmcwebd",
		Short: "BMC management-controller web server",
		Long:  "bmcwebd exposes the BMC's administrative Redfish API and console endpoints over HTTPS with session, token, basic and mutual-TLS authentication.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagVerbose {
				jww.SetStdoutThreshold(jww.LevelTrace)
			}
			cfg, err := loadConfig(v, flagConfig)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, &cfg)
			if err := cfg.Server.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "configuration file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose bootstrap logging")
	root.Flags().String("listen", "", "bind address, host:port")
	root.Flags().String("hostname", "", "certificate hostname")
	root.Flags().String("cert", "", "server certificate PEM path")
	root.Flags().String("state", "", "persisted state document path")

	v.SetEnvPrefix("BMCWEB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"server.listen", "server.hostname", "server.cert_path", "server.state_path", "log_level", "console_socket"} {
		_ = v.BindEnv(key)
	}

	root.AddCommand(newConfigCmd(v))
	return root
}

// applyFlagOverrides copies explicitly-set flags over the merged
// configuration; an untouched flag never clobbers a file or env value.
func applyFlagOverrides(cmd *cobra.Command, cfg *AppConfig) {
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("hostname") {
		cfg.Server.Hostname, _ = cmd.Flags().GetString("hostname")
	}
	if cmd.Flags().Changed("cert") {
		cfg.Server.CertPath, _ = cmd.Flags().GetString("cert")
	}
	if cmd.Flags().Changed("state") {
		cfg.Server.StatePath, _ = cmd.Flags().GetString("state")
	}
}

// newConfigCmd prints the effective configuration after merging file,
// environment and flag sources, in the requested format.
func newConfigCmd(v *viper.Viper) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, flagConfig)
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "yaml":
				out, err = yaml.Marshal(cfg)
			case "toml":
				out, err = toml.Marshal(cfg)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or toml")
	return cmd
}

func run(cfg AppConfig) error {
	log := logger.New(os.Stdout, parseLevel(cfg.LogLevel))
	funcLog := func() logger.Logger { return log }

	store, doc := restoreState(cfg, funcLog)
	if cfg.Server.SessionTimeout > 0 {
		store.SetTimeout(cfg.Server.SessionTimeout)
	}

	tq := timerqueue.New()
	mx := metrics.New(func() float64 {
		return float64(len(store.GetSessions()))
	})

	pam := newHostPAM()

	dispatch := redfish.New(store, pam, cfg.Server.HasWebUI, funcLog)
	dispatch.Mount("/metrics", mx.Handler())
	if cfg.ConsoleSocket != "" {
		dispatch.RegisterUpgrade("/console0", redfish.NewConsole(unixStream(cfg.ConsoleSocket), funcLog))
	}

	allow := router.NewAllowlist()

	gw := gateway.New(cfg.Server, store, dispatch, allow, pam, tq, mx, funcLog)
	acceptor := gateway.NewAcceptor(cfg.Server, store, gw, tq, mx, funcLog)

	if err := acceptor.Listen(); err != nil {
		return err
	}

	stopPersist := startPersister(cfg, store, doc, funcLog)
	defer stopPersist()

	acceptor.WaitNotify()
	return nil
}

// restoreState rebuilds the session store from the persisted document,
// or starts fresh with the default policy when none exists.
func restoreState(cfg AppConfig, log logger.FuncLog) (*session.Store, persist.Document) {
	doc, sessions, err := persist.LoadFile(cfg.Server.StatePath, log)
	if err != nil {
		log().Entry(logger.InfoLevel, "no persisted state restored, starting fresh").
			ErrorAdd(err).
			Log()
		return session.New(authconfig.Default(), log), persist.Document{Configuration: authconfig.Default()}
	}

	store := session.New(doc.Configuration, log)
	for _, s := range sessions {
		store.Load(s)
	}
	log().Entry(logger.InfoLevel, "persisted state restored").
		FieldAdd("sessions", len(sessions)).
		Log()
	return store, doc
}

// startPersister flushes the store whenever its dirty bit is set,
// preserving the opaque Subscriptions member across rewrites. The
// returned stop function performs a final flush.
func startPersister(cfg AppConfig, store *session.Store, doc persist.Document, log logger.FuncLog) func() {
	interval := cfg.PersistInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	flush := func() {
		if !store.NeedWrite() {
			return
		}
		out := persist.Serialize(store.GetSessions(), store.AuthConfig(), doc.Subscriptions)
		if err := persist.SaveFile(cfg.Server.StatePath, out); err != nil {
			log().Entry(logger.ErrorLevel, "persisting session state failed").
				ErrorAdd(gateway.ErrorPersistWrite.Error(err)).
				Log()
			return
		}
		store.ClearNeedWrite()
	}

	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-tick.C:
				flush()
			}
		}
	}()

	return func() {
		close(done)
		flush()
	}
}

func parseLevel(level string) logger.Level {
	switch strings.ToLower(level) {
	case "panic":
		return logger.PanicLevel
	case "fatal":
		return logger.FatalLevel
	case "error":
		return logger.ErrorLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "debug":
		return logger.DebugLevel
	default:
		return logger.InfoLevel
	}
}
