package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/epalmerini/rmqtools/internal/api"
	"github.com/epalmerini/rmqtools/internal/config"
	"github.com/epalmerini/rmqtools/internal/feed"
	"github.com/epalmerini/rmqtools/internal/index"
	"github.com/epalmerini/rmqtools/internal/logging"
	"github.com/epalmerini/rmqtools/internal/output"
)

// prepare resolves config and logging for a non-interactive command.
func prepare() (config.Config, func(), error) {
	cfg, _, err := loadConfig(false)
	if err != nil {
		return cfg, nil, err
	}
	logCloser, err := setupLogging(cfg, false)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, func() { closeLog(logCloser) }, nil
}

func newQueuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List broker queues and their stored message counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := prepare()
			if err != nil {
				return err
			}
			defer done()

			client, err := api.NewClient(cfg.ServerURL, logging.Component("api"))
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			queues, err := client.QueueSummaries(ctx)
			if err != nil {
				return fmt.Errorf("failed to list queues: %w", err)
			}
			if info, err := client.EnvInfo(ctx); err == nil {
				output.PrintEnvInfo(cmd.OutOrStdout(), info)
			} else {
				logrus.WithError(err).Debug("Env info unavailable")
			}
			output.PrintQueues(cmd.OutOrStdout(), queues)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		stored bool
		filter string
		mode   string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export <queue>",
		Short: "Print the filtered lines of a queue's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showMode, err := index.ParseShowMode(mode)
			if err != nil {
				return err
			}
			cfg, done, err := prepare()
			if err != nil {
				return err
			}
			defer done()

			client, err := api.NewClient(cfg.ServerURL, logging.Component("api"))
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			text, err := output.Export(ctx, client, args[0], output.ExportOptions{
				Stored: stored,
				Filter: filter,
				Mode:   showMode,
			})
			if err != nil {
				return err
			}

			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write '%s': %w", out, err)
			}
			logrus.WithFields(logrus.Fields{"queue": args[0], "file": out, "bytes": len(text)}).Info("Export written")
			return nil
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "Use the server's stored copy instead of loading the queue")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Keep only lines containing this text (case-insensitive)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "both", "Lines to include: headers, payload or both")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print live queue counters until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done, err := prepare()
			if err != nil {
				return err
			}
			defer done()

			ctx, cancel := signalContext()
			defer cancel()

			stream, err := feedDialer(cfg)(ctx)
			if err != nil {
				return fmt.Errorf("failed to connect counter feed: %w", err)
			}
			defer stream.Close()

			printer := output.NewWatchPrinter(cmd.OutOrStdout())
			if err := stream.Start(func(snap feed.Snapshot) {
				printer.Print(time.Now(), snap)
			}); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
			case <-stream.Done():
			}
			_ = stream.Close()
			<-stream.Done()

			logrus.WithField("snapshots", printer.Count()).Debug("Watch finished")
			if err := stream.Err(); err != nil {
				return err
			}
			return nil
		},
	}
}
