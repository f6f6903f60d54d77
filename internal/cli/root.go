package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aryankumar/atlas-report/internal/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every command of one invocation
type app struct {
	cfgFile string
	viper   *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
	runID   string

	stdout io.Writer
	stderr io.Writer

	// workDir and homeDir override where implicit config files are found
	workDir string
	homeDir string
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	a := &app{
		viper:  viper.New(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "atlas-report",
		Short: "Atlas Report - MongoDB Atlas cluster inventory across projects",
		Long: `Atlas Report lists every MongoDB Atlas cluster visible to an API key.

It pages through all projects, fetches their clusters concurrently under a
client-side rate limit, retries throttled and transient failures with
exponential backoff, and prints one sorted report. Projects that still fail
are listed separately and make the command exit with status 2.

Credentials are read from ATLAS_PUBLIC_KEY and ATLAS_PRIVATE_KEY, from a
.env file in the working directory or from ~/.atlas-report.yaml.`,
		Example: `  atlas-report                              # Report all clusters
  atlas-report --project "prod-*"           # Only production projects
  atlas-report --exclude-project "*-tools"  # Exclude tools projects
  atlas-report --sort-by disk               # Sort by disk size (largest first)
  atlas-report --output report.csv          # Export to CSV
  atlas-report -q --output-format json | jq # JSON to stdout, pipe to jq`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd.Context())
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	d := config.Defaults

	flags.StringVar(&a.cfgFile, "config", "", "config file, YAML or dotenv (default is ./.env and $HOME/.atlas-report.yaml)")
	flags.String("base-url", d["base-url"].(string), "Atlas Administration API base URL")

	// Fetching
	flags.Int("items-per-page", d["items-per-page"].(int), "items per API page, 1-500")
	flags.Int("max-attempts", d["max-attempts"].(int), "max attempts per page request")
	flags.Int("max-workers", d["max-workers"].(int), "projects fetched concurrently")
	flags.Int("timeout", d["timeout"].(int), "HTTP timeout per request in seconds")
	flags.Int("timeout-total", d["timeout-total"].(int), "deadline for the whole run in seconds, 0 for none")
	flags.Float64("rate-limit", d["rate-limit"].(float64), "client-side request rate in requests per second")
	flags.Int("burst", d["burst"].(int), "request burst above the rate limit")

	// Filtering
	flags.StringArray("project", nil, "include projects matching glob `PATTERN` (repeatable)")
	flags.StringArray("exclude-project", nil, "exclude projects matching glob `PATTERN` (repeatable)")

	// Rendering
	flags.String("sort-by", d["sort-by"].(string), "sort output by project, cluster, tier, disk, provider or region")
	flags.Int("highlight-threshold", d["highlight-threshold"].(int), "highlight tiers larger than M{N} in red")
	flags.String("output", "", "export report to `FILE` (format inferred from extension)")
	flags.String("output-format", "", "output format (table, json, yaml, csv); without --output prints to stdout")
	flags.String("metrics-file", "", "write request and retry counters in Prometheus text format")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("force-color", false, "force colored output (ignore TTY)")

	// Logging
	flags.BoolP("quiet", "q", false, "suppress progress messages and info logs")
	flags.BoolP("verbose", "v", false, "verbose output with debug logging")
	flags.String("log-format", d["log-format"].(string), "log format (text, json)")

	// Bind flags to viper
	if err := a.viper.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("bind flags: %v", err))
	}

	// Add subcommands
	rootCmd.AddCommand(a.projectsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// initConfig resolves configuration and sets up logging
func (a *app) initConfig(cmd *cobra.Command) error {
	manager := config.NewManager(a.cfgFile, a.viper)
	if a.workDir != "" || a.homeDir != "" {
		manager.WithSearchDirs(a.workDir, a.homeDir)
	}

	cfg, err := manager.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.runID = uuid.NewString()

	a.setupLogging()
	for _, file := range manager.FilesUsed() {
		a.logger.Debug("loaded configuration", "file", file)
	}
	return nil
}

// setupLogging configures structured logging with slog
func (a *app) setupLogging() {
	// Set log level based on verbose and quiet flags
	logLevel := slog.LevelInfo
	switch {
	case a.cfg.Verbose:
		logLevel = slog.LevelDebug
	case a.cfg.Quiet:
		logLevel = slog.LevelWarn
	}

	// Create handler options
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if a.cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(a.stderr, opts)
	} else {
		handler = slog.NewTextHandler(a.stderr, opts)
	}

	// Set default logger
	a.logger = slog.New(handler).With("run_id", a.runID)
	slog.SetDefault(a.logger)

	a.logger.Debug("verbose logging enabled")
}
