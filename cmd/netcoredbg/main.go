// Package main provides the netcoredbg binary: a machine-interface
// debugger for managed-code runtimes, driven over standard input/output.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rafttio/netcoredbg/internal/config"
	"github.com/rafttio/netcoredbg/internal/cordebug"
	"github.com/rafttio/netcoredbg/internal/debugger"
	"github.com/rafttio/netcoredbg/internal/errors"
	"github.com/rafttio/netcoredbg/internal/logging"
	"github.com/rafttio/netcoredbg/internal/mi"
	"github.com/rafttio/netcoredbg/pkg/version"
)

func main() {
	var (
		cfgPath     string
		logLevel    string
		logFile     string
		interpreter string
		attachPID   int
	)

	rootCmd := &cobra.Command{
		Use:           "netcoredbg",
		Short:         "Machine-interface debugger for managed-code runtimes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interpreter != "mi" {
				return fmt.Errorf("unsupported interpreter: %s", interpreter)
			}

			if cfgPath == "" {
				cfgPath = config.DefaultPath()
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFile != "" {
				cfg.Log.File = logFile
			}

			logCfg := logging.Config{
				Level:  cfg.Log.Level,
				Pretty: cfg.Log.Pretty && term.IsTerminal(int(os.Stderr.Fd())),
			}
			if cfg.Log.File != "" {
				f, ferr := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if ferr != nil {
					return fmt.Errorf("open log file: %w", ferr)
				}
				logCfg.Output = f
				logCfg.Pretty = false
			}
			logger := logging.New(logCfg)
			if c, ok := logCfg.Output.(io.Closer); ok {
				defer errors.DeferClose(logger, c, "Failed to close log file")
			}

			out := mi.NewWriter(os.Stdout)
			dbg := debugger.New(
				logger,
				cordebug.NewUnsupportedConnector(),
				mi.NewEventEmitter(out),
				debugger.WithJustMyCode(*cfg.Debugger.JustMyCode),
			)
			if attachPID != 0 {
				if err := dbg.Attach(context.Background(), attachPID); err != nil {
					return fmt.Errorf("attach to pid %d: %w", attachPID, err)
				}
			}

			mi.NewProtocol(logger, dbg, os.Stdin, out).Run()
			return nil
		},
	}

	rootCmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override stderr log level")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write diagnostics to a file instead of stderr")
	rootCmd.Flags().StringVar(&interpreter, "interpreter", "mi", "protocol interpreter")
	rootCmd.Flags().IntVar(&attachPID, "attach", 0, "attach to a running process by pid")

	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}
