// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopermit/internal/browser"
	"github.com/xkilldash9x/autopermit/internal/config"
	"github.com/xkilldash9x/autopermit/internal/notify"
	"github.com/xkilldash9x/autopermit/internal/observability"
	"github.com/xkilldash9x/autopermit/internal/orchestrator"
	"github.com/xkilldash9x/autopermit/internal/permit"
	"github.com/xkilldash9x/autopermit/internal/schedule"
)

// warningMessage is printed when the config safety acknowledgement is missing.
const warningMessage = "Did not set up config correctly, read debug.log for details"

const dotEnvFile = ".env"

// Swappable in tests.
var (
	osExecutable = os.Executable
	appFs        = afero.NewOsFs()
	newScheduler = schedule.New
	dialBot      notify.Dialer = notify.DialDiscord
	newSessions  = browserSessions
)

// browserSessions opens Chrome sessions through a browser.Manager.
func browserSessions(cfg config.BrowserConfig, logger *zap.Logger) orchestrator.SessionFactory {
	m := browser.NewManager(cfg, logger)
	return func(ctx context.Context) (orchestrator.Session, error) {
		s, err := m.NewSession(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type rootOptions struct {
	configFile string
	verbose    bool
}

func (o *rootOptions) invocation() config.Invocation {
	return config.Invocation{ConfigFile: o.configFile, Verbose: o.verbose}
}

// NewRootCommand builds a fresh command tree. Running the root command
// requests one parking permit.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "autopermit",
		Short: "Requests a visitor parking permit and schedules its renewal.",
		Long: `autopermit fills out the visitor parking permit form on the portal,
optionally saves and sends a screenshot of the permit, and optionally
schedules itself to run again when the permit expires.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRenewal(cmd, opts)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", config.DefaultConfigFile, "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newUnscheduleCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command tree with os.Args and flushes the logger.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// loadDotEnv exports the variables of a .env file in the working directory.
// A missing file is fine.
func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", dotEnvFile, err)
	}
	return nil
}

// setup loads the environment and config and initializes logging. The
// logger is initialized even when the config is invalid so the failure
// reaches the log file.
func setup(cmd *cobra.Command, opts *rootOptions) (*config.Config, *zap.Logger, error) {
	envErr := loadDotEnv()

	cfg, cfgErr := config.Load(opts.configFile)
	logCfg := config.DefaultLoggerConfig()
	if cfgErr == nil {
		logCfg = cfg.Logger
	}
	observability.InitializeLogger(logCfg, opts.verbose)
	logger := observability.GetLogger().With(zap.String("run_id", uuid.NewString()))

	logger.Info("Using config file.", zap.String("path", opts.configFile), zap.String("version", Version))
	if envErr != nil {
		return nil, logger, envErr
	}
	if cfgErr != nil {
		if errors.Is(cfgErr, config.ErrWarningNotAcknowledged) {
			fmt.Fprintln(cmd.OutOrStdout(), warningMessage)
		}
		logger.Error("Invalid configuration.", zap.Error(cfgErr))
		return nil, logger, cfgErr
	}
	return cfg, logger, nil
}

func runRenewal(cmd *cobra.Command, opts *rootOptions) error {
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	deps := orchestrator.Deps{
		Sessions:  newSessions(cfg.Browser, logger),
		Artifacts: permit.NewArtifactManager(appFs, cfg.ScreenshotFolder, cfg.ElementTimeout(), logger),
	}
	if cfg.SendScreenshotInDiscord {
		deps.Dispatcher = notify.NewDispatcher(cfg.DiscordBotToken, cfg.DiscordChannelID, cfg.NotificationTimeout(), dialBot, appFs, logger)
	}
	if cfg.AutomaticallyRenewPermit {
		program, err := osExecutable()
		if err != nil {
			return fmt.Errorf("failed to find executable path: %w", err)
		}
		scheduler, err := newScheduler(logger)
		if err != nil {
			return err
		}
		deps.Renewer = permit.NewRenewer(scheduler, program, opts.invocation().Args(), logger)
	}

	o, err := orchestrator.New(cfg, deps, logger)
	if err != nil {
		return err
	}
	// Run can return a result together with an error when the permit was
	// issued but a later step failed.
	res, err := o.Run(ctx)
	if res == nil {
		return err
	}

	fields := []zap.Field{zap.Time("expiration", res.Expiration), zap.Bool("notified", res.Notified)}
	if res.Artifact != nil {
		fields = append(fields, zap.String("screenshot", res.Artifact.Path))
	}
	if res.Task != nil {
		fields = append(fields, zap.Time("next_run", res.Task.At))
	}
	if err != nil {
		logger.Error("Permit run completed with errors.", append(fields, zap.Error(err))...)
		return err
	}
	logger.Info("Permit run complete.", fields...)
	return nil
}
