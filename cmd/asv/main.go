package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Zuo-Peng/adk-session-viewer/internal/config"
	"github.com/Zuo-Peng/adk-session-viewer/internal/logging"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "asv",
		Short:   "ADK Session Viewer - browse recorded agent session logs in the terminal",
		Version: version,
	}

	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(recentCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger installs the default logger. The viewer logs to a file so
// records never land on the terminal it draws on.
func initLogger(cfg *config.Config, toFile bool) (func(), error) {
	if !toFile {
		slog.SetDefault(logging.New(cfg.LogLevel, os.Stderr))
		return func() {}, nil
	}
	f, err := logging.OpenFile(cfg.LogPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(cfg.LogLevel, f))
	return func() { f.Close() }, nil
}
