package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmurray2011/joinwatch/internal/config"
	"github.com/jmurray2011/joinwatch/internal/filesystem"
	"github.com/jmurray2011/joinwatch/internal/monitor"
	"github.com/jmurray2011/joinwatch/internal/notify"
	"github.com/jmurray2011/joinwatch/internal/tail"
	"github.com/jmurray2011/joinwatch/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// drainTimeout bounds delivery of queued notifications at shutdown.
const drainTimeout = 5 * time.Second

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "joinwatch",
		Short: "Send Telegram messages when players join or leave a Minecraft server",
		Long: `joinwatch follows a Minecraft server log and posts a Telegram message
every time a player joins or leaves.

Every setting can be given as an environment variable; LOG_PATH,
BOT_TOKEN and CHAT_ID are required.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, v)
		},
	}

	config.RegisterFlags(cmd.Flags())
	if err := config.Bind(v, cmd.Flags()); err != nil {
		panic(fmt.Sprintf("joinwatch: %v", err))
	}

	return cmd
}

func Execute() error {
	return rootCmd.Execute()
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cursor, err := tail.NewCursor(cfg.LogPath,
		tail.WithFs(filesystem.NewFs()),
		tail.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.LogPath, err)
	}

	w, err := watcher.NewWatcher(watcher.Config{
		Path:         cfg.LogPath,
		Strategy:     cfg.Strategy,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	client, err := notify.NewClient(cfg.APIURL, cfg.BotToken)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(client, notify.DispatcherConfig{
		ChatID:      cfg.ChatID,
		QueueSize:   cfg.QueueSize,
		Rate:        cfg.SendRate,
		Burst:       cfg.SendBurst,
		SendTimeout: cfg.SendTimeout,
		Logger:      logger,
	})
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
		defer drainCancel()
		dispatcher.Close(drainCtx)
	}()

	state := cursor.State()
	logger.Info("watching log",
		"path", cfg.LogPath,
		"strategy", cfg.Strategy,
		"offset", state.Offset,
		"exists", !state.Missing,
		"version", version,
	)

	m := monitor.New(cursor, w, dispatcher,
		monitor.WithOutput(cmd.OutOrStdout()),
		monitor.WithLogger(logger),
	)
	if err := m.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}
