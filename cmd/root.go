// Package cmd wires NowSound's subcommands onto a cobra root command.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/nowsound-go/nowsound/internal/config"
	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/spf13/cobra"
)

// RootCommand builds the "nowsound" CLI: a musical live-looping engine
// you drive from the command line or its HTTP control surface.
func RootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nowsound",
		Short: "A low-latency live-looping audio engine",
	}

	rootCmd.AddCommand(
		serveCommand(),
		devicesCommand(),
		playCommand(),
		versionCommand(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := config.Init(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logging.Init()

		settings, err := config.Get()
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		logging.SetLevel(parseLogLevel(settings.LogLevel))

		if settings.SentryDSN != "" {
			if err := sentry.Init(sentry.ClientOptions{
				Dsn:              settings.SentryDSN,
				AttachStacktrace: true,
				Environment:      "production",
			}); err != nil {
				logging.Warn("sentry init failed", "error", err)
			}
		}

		return nil
	}

	return rootCmd
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "trace":
		return logging.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
