package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kstaniek/go-cansock/internal/config"
)

// flagKeys maps command-line flags to config keys. Only flags the user set
// explicitly override the file and environment layers.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"metrics-addr":     "metrics.addr",
	"metrics-interval": "metrics.interval",
	"mdns":             "mdns.enable",
	"mdns-name":        "mdns.name",
	"loopback":         "dump.loopback",
	"own":              "dump.own",
	"read-timeout":     "dump.timeout",
	"buffer":           "dump.buffer",
	"policy":           "dump.policy",
	"queue":            "tx.queue",
}

// app is the state shared by subcommands once PersistentPreRunE has run.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cansock",
		Short: "Inspect, send to and dump Linux SocketCAN interfaces",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath, changedFlags(cmd.Flags()))
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = setupLogger(cfg.Log.Format, cfg.Log.Level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	d := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.String("log-level", d.Log.Level, "Log level: debug|info|warn|error")
	pf.String("log-format", d.Log.Format, "Log format: text|json")

	root.AddCommand(infoCmd(a), linksCmd(a), sendCmd(a), dumpCmd(a), versionCmd())
	return root
}

func changedFlags(fs *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			out[key] = f.Value.String()
		}
	})
	return out
}
