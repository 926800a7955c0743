package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.PersistentFlags().StringVar(&confFlag, "config", "", "Path to the configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: one of debug, info, warn, error.")
	rootCmd.PersistentFlags().BoolVar(&logTimeFlag, "log-time", false, "Include timestamps in log lines.")
}

var (
	rootCmd = &cobra.Command{
		Use:   "nlwire",
		Short: "Inspect the kernel's networking state over netlink.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, ok := logLevelMap[logLevelFlag]
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevelFlag)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:       level,
				AddSource:   level == slog.LevelDebug,
				ReplaceAttr: logReplacements,
			})))

			if confFlag != "" {
				c, err := ReadConf(confFlag)
				if err != nil {
					return err
				}
				conf = c
			}
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	confFlag     string
	logLevelFlag string
	logTimeFlag  bool

	conf        = &DefaultConfig
	builtCommit = "dev"
)

func init() {
	// Disable completion please!
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
