package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/config"
	"github.com/epalmerini/rmqtools/internal/db"
	"github.com/epalmerini/rmqtools/internal/feed"
	"github.com/epalmerini/rmqtools/internal/logging"
	"github.com/epalmerini/rmqtools/internal/rabbitmq"
	"github.com/epalmerini/rmqtools/internal/tui"
	"github.com/epalmerini/rmqtools/internal/xdg"
)

var version = "dev"

// Command line flags
var (
	profileName string
	serverURL   string
	logLevel    string
	verbose     bool
	offline     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rmqtools",
		Short: "Browse and manage messages held by an rmq_tools server",
		Long: `rmqtools is a terminal client for an rmq_tools server. It lists broker
queues with live message counters, loads queue contents into the server's
store and lets you filter, group, export, move and delete messages.`,
		Version:      version,
		RunE:         runTUI,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&profileName, "profile", "p", "", "Connection profile from config.toml")
	flags.StringVarP(&serverURL, "server", "s", "", "rmq_tools server URL (overrides config)")
	flags.StringVarP(&logLevel, "log-level", "l", "", "Set log level (trace, debug, info, warn, error)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")
	rootCmd.Flags().BoolVar(&offline, "offline", false, "Browse local snapshots without a server")

	rootCmd.AddCommand(newQueuesCmd(), newExportCmd(), newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the runtime config. With pick set and no profile
// given, the profile picker is shown when the file defines several.
func loadConfig(pick bool) (config.Config, bool, error) {
	configDir, err := xdg.ConfigDir()
	if err != nil {
		return config.Config{}, false, fmt.Errorf("resolve config directory: %w", err)
	}
	fileCfg, err := config.LoadFileConfig(configDir)
	if err != nil {
		return config.Config{}, false, fmt.Errorf("load config: %w", err)
	}

	name := profileName
	if name == "" && pick && len(fileCfg.Profiles) > 1 {
		name, err = tui.PickProfile(fileCfg)
		if err != nil {
			return config.Config{}, false, err
		}
		if name == "" {
			return config.Config{}, false, nil
		}
	} else if name != "" {
		if _, ok := fileCfg.Profiles[name]; !ok {
			return config.Config{}, false, fmt.Errorf("unknown profile %q", name)
		}
	}

	cfg, err := fileCfg.Resolve(name, configDir)
	if err != nil {
		return config.Config{}, false, err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, true, nil
}

// setupLogging sends logs to the state directory when the terminal belongs
// to the TUI, and to stderr otherwise.
func setupLogging(cfg config.Config, toFile bool) (io.Closer, error) {
	opts := logging.Options{Level: cfg.LogLevel, Verbose: verbose}
	if toFile {
		dir, err := xdg.StateDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state directory: %w", err)
		}
		opts.Dir = dir
	}
	return logging.Setup(opts)
}

func closeLog(c io.Closer) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing log: %v\n", err)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, ok, err := loadConfig(true)
	if err != nil || !ok {
		return err
	}
	logCloser, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog(logCloser)

	logrus.WithFields(logrus.Fields{
		"server":  db.SanitizeURL(cfg.ServerURL),
		"profile": cfg.Profile,
		"offline": offline,
		"version": version,
	}).Info("Starting rmqtools")

	deps := tui.Deps{
		Log:     logging.Component("tui"),
		Offline: offline,
	}

	store, err := db.NewStore(cfg.DBPath)
	if err != nil {
		if offline {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		logrus.WithError(err).Warn("Snapshot store unavailable, continuing without it")
	} else {
		defer func() {
			if err := store.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close snapshot store")
			}
		}()
		writer := db.NewAsyncWriter(store, logging.Component("db"))
		defer writer.Close()
		deps.Store = store
		deps.Writer = writer
	}

	if !offline {
		client, err := api.NewClient(cfg.ServerURL, logging.Component("api"))
		if err != nil {
			return err
		}
		deps.Backend = client
		deps.Feed = feedDialer(cfg)

		if cfg.CanPeek() {
			peeker, err := rabbitmq.NewPeeker(cfg.AMQPURL, logging.Component("amqp"))
			if err != nil {
				logrus.WithError(err).Warn("Direct peek unavailable, using the server")
			} else {
				defer func() {
					if err := peeker.Close(); err != nil {
						logrus.WithError(err).Debug("Failed to close peeker")
					}
				}()
				deps.Peeker = peeker
			}
		}
	}

	return tui.Run(cfg, deps)
}

// feedDialer returns a func that opens a counter stream on the configured
// server.
func feedDialer(cfg config.Config) func(ctx context.Context) (*feed.Stream, error) {
	return func(ctx context.Context) (*feed.Stream, error) {
		t, err := feed.Dial(ctx, cfg.ServerURL, nil)
		if err != nil {
			return nil, err
		}
		return feed.NewStream(t, feed.Options{
			InitialBufferSize: cfg.FeedBufferSize,
			FailOnDecodeError: cfg.FailOnDecodeError,
			Logger:            logging.Component("feed"),
		}), nil
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
