package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pfrederiksen/silat-watch/internal/config"
	"github.com/pfrederiksen/silat-watch/internal/logger"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitNewEntries = 2
)

// Version is reported by --version; set at build time via -ldflags
var Version = "dev"

// exitError carries a non-error exit status out of a command
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// rootOptions holds the persistent flags and the configuration they produce
type rootOptions struct {
	configPath string
	dataDir    string
	targetURL  string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "silat-watch",
		Short: "Watch the SILAT UNS exam schedule and email subscribers about new entries",
		Long: `A service that polls the SILAT UNS exam-schedule page, detects newly
published sessions and emails them to subscribers.

Configuration comes from the environment (SMTP_SERVER, APP_BASE_URL, SECRET_KEY, ...),
optionally preloaded from a json5 file given with --config. Flags win over both.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a json5 config file")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Data directory for the snapshot and subscriber database (env DATA_DIR)")
	flags.StringVar(&opts.targetURL, "target-url", "", "Schedule page to scrape (env TARGET_URL)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (env LOG_FORMAT)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging (same as --log-level debug)")

	cmd.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newSubscribersCmd(opts),
		newTokenCmd(opts),
	)

	return cmd
}

// load reads the configuration, applies flag overrides and sets up logging
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.targetURL != "" {
		cfg.TargetURL = o.targetURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.verbose {
		cfg.Log.Level = string(logger.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format := logger.Format(strings.ToLower(cfg.Log.Format))
	if format != logger.FormatText && format != logger.FormatJSON {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", cfg.Log.Format)
	}
	logger.SetDefault(logger.New(level, format, cmd.ErrOrStderr()))

	o.cfg = cfg
	return nil
}

// run executes the command line and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitError
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
