package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/app"
	"github.com/kerbaras/mangaread/pkg/config"
	"github.com/kerbaras/mangaread/pkg/services"
)

var (
	configPath string
	debug      bool

	cfg        *config.Config
	log        *zap.Logger
	controller *services.ReadingController
)

var rootCmd = &cobra.Command{
	Use:           "mangaread",
	Short:         "Read manga from MangaDex in your terminal",
	Long:          "Search MangaDex, read chapters with pages fetched ahead of you and pick up where you left off",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if debug {
			cfg.Logging.ConsoleLogger.Level = "debug"
		}
		if cmd == cmd.Root() {
			// The TUI owns the terminal.
			cfg.Logging.ConsoleLogger.Level = "none"
		}
		if log, err = cfg.Logging.Prepare(); err != nil {
			return err
		}
		if cmd.Annotations["store"] == "none" {
			return nil
		}
		controller, err = services.NewReadingControllerWithConfig(cfg, log)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Launch TUI by default
		return app.NewApp(controller, log).Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to stderr")
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if controller != nil {
		err = shutdown(os.Stderr, controller, err)
	}
	if log != nil {
		// Syncing a terminal fails on some platforms.
		_ = log.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

// shutdown closes c and reports its error on w. err, the command's own error,
// has already been printed by cobra.
func shutdown(w io.Writer, c io.Closer, err error) error {
	if cerr := c.Close(); cerr != nil {
		fmt.Fprintln(w, "Error: unable to close store:", cerr)
		err = multierr.Append(err, cerr)
	}
	return err
}

func truncateString(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
