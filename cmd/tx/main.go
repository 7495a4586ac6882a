package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/tx/internal/config"
	"github.com/vango-dev/tx/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cli holds what the persistent flags resolve to before a command runs.
type cli struct {
	configPath  string
	logLevel    string
	errorFormat string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and reports a failure on errOut in the
// format chosen with --error-format. It returns the process exit code.
func execute(args []string, out, errOut io.Writer) int {
	c := &cli{}
	cmd := newRootCmd(c, errOut)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if err := cmd.Execute(); err != nil {
		format, _ := errors.ParseOutput(c.errorFormat)
		errors.Print(errOut, err, format)
		return 1
	}
	return 0
}

func newRootCmd(c *cli, logOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tx",
		Short: "Headless hypermedia exchange engine",
		Long: `tx loads a server-rendered page, binds its tx-on* triggers and
tx-value inputs, and replays user steps against it. Each trigger posts
the targeted region's state to its handler and patches the returned
fragment back into the page.

Examples:
  tx serve
  tx run http://localhost:8080/ --step input:#item=milk --step click:#add --print`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(logOut)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default tx.json or tx.toml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&c.errorFormat, "error-format", string(errors.OutputText), "How failures are reported: text, compact or json")

	rootCmd.AddCommand(
		runCmd(c),
		serveCmd(c),
		versionCmd(),
	)
	return rootCmd
}

func (c *cli) setup(logOut io.Writer) error {
	if _, err := errors.ParseOutput(c.errorFormat); err != nil {
		return err
	}
	var err error
	if c.configPath != "" {
		c.cfg, err = config.Load(c.configPath)
	} else {
		c.cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		c.cfg.LogLevel = c.logLevel
		if err := c.cfg.Validate(); err != nil {
			return err
		}
	}
	c.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: c.cfg.Level()}))
	slog.SetDefault(c.logger)
	return nil
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
