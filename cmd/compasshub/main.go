package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "compasshub"

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var globalFlags = struct {
	debug bool
}{}

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "component", programName)
}

// commonRun installs the default logger and sets GOMAXPROCS.
// Production logs are JSON; development logs are text.
func commonRun(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	if globalFlags.debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: globalFlags.debug}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	return logger
}

func main() {
	var cfg Config
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Community console for sessions, attendance and outreach events",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			loaded, err := LoadConfig()
			if err != nil {
				return err
			}
			cfg = loaded
			commonRun(cfg)
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(
		serveCommand(&cfg),
		migrateCommand(&cfg),
		seedCommand(&cfg),
		statsCommand(&cfg),
		versionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
