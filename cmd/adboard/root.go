// ABOUTME: Root Cobra command and global flags for adboard CLI.
// ABOUTME: Sets up lifecycle hooks for config, logging, the session, and the remote client.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/config"
	"github.com/2389-research/adboard/internal/geo"
	"github.com/2389-research/adboard/internal/logging"
	"github.com/2389-research/adboard/internal/session"
	"github.com/2389-research/adboard/internal/storage"
)

var globalConfig *config.Config
var globalLogger *slog.Logger
var globalSession *session.Holder
var globalRemoteClient *storage.RemoteClient
var globalLogCloser io.Closer

// Flags
var (
	flagLogLevel string
	flagAPIURL   string
)

var rootCmd = &cobra.Command{
	Use:   "adboard",
	Short: "Browse and manage a classified listings board",
	Long: `
 █████╗ ██████╗ ██████╗  ██████╗  █████╗ ██████╗ ██████╗
██╔══██╗██╔══██╗██╔══██╗██╔═══██╗██╔══██╗██╔══██╗██╔══██╗
███████║██║  ██║██████╔╝██║   ██║███████║██████╔╝██║  ██║
██╔══██║██║  ██║██╔══██╗██║   ██║██╔══██║██╔══██╗██║  ██║
██║  ██║██████╔╝██████╔╝╚██████╔╝██║  ██║██║  ██║██████╔╝
╚═╝  ╚═╝╚═════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝

Search, page through, and edit listings on a board API.
Edits show up at once and roll back if the server refuses them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if flagLogLevel != "" {
			cfg.Log.Level = flagLogLevel
		}
		if flagAPIURL != "" {
			cfg.API.URL = flagAPIURL
		}
		globalConfig = cfg

		logger, closer, err := newLogger(cfg)
		if err != nil {
			return err
		}
		globalLogger = logger
		globalLogCloser = closer
		slog.SetDefault(logger)

		dataDir, err := config.DataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		globalSession = session.New(storage.NewSessionFile(dataDir))
		if err := globalSession.Init(); err != nil {
			logger.Warn("ignoring unreadable session", "error", err)
		}

		globalRemoteClient = newRemoteClient(cfg, globalSession, logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalLogCloser != nil {
			_ = globalLogCloser.Close()
			globalLogCloser = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "Board API URL (overrides config)")
}

// newLogger writes to the configured log file, or stderr when none is set.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}

	path, err := cfg.GetLogFile()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve log file: %w", err)
	}
	var closer io.Closer
	if path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		opts.Writer = f
		closer = f
	}

	logger, err := logging.New(opts)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return logger, closer, nil
}

func newRemoteClient(cfg *config.Config, sess *session.Holder, logger *slog.Logger) *storage.RemoteClient {
	retry := storage.NewRetrier()
	retry.Logger = logger
	return storage.NewRemoteClient(cfg.GetAPIURL(),
		storage.WithTokenSource(sess.Token),
		storage.WithHTTPClient(&http.Client{Timeout: cfg.GetTimeout()}),
		storage.WithRetrier(retry),
		storage.WithLogger(logger),
	)
}

func newEngine(opts ...board.Option) *board.Engine {
	base := []board.Option{
		board.WithPageSize(globalConfig.GetPageSize()),
		board.WithLogger(globalLogger),
	}
	return board.New(globalRemoteClient, append(base, opts...)...)
}

// homeLocator returns the configured home position, or nil when none is set.
func homeLocator() (*geo.StaticLocator, error) {
	if globalConfig.Geo.Home == "" {
		return nil, nil
	}
	loc, err := geo.NewStaticLocator(globalConfig.Geo.Home)
	if err != nil {
		return nil, fmt.Errorf("invalid geo.home: %w", err)
	}
	return loc, nil
}
