// Command serverbot runs the server bot on Discord.
//
// Usage:
//
//	serverbot [--generate] [--token=<token>] [--motm=<text>] [--prefix=<prefix>] [--config=<path>]
//
// Settings live in config.json unless --config or SERVERBOT_CONFIG says
// otherwise. The file is created with defaults when it does not exist.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/spf13/cobra"

	"github.com/serverbot-dev/serverbot/discord"
	"github.com/serverbot-dev/serverbot/dispatch"
	"github.com/serverbot-dev/serverbot/metrics"
	"github.com/serverbot-dev/serverbot/settings"
)

// environment holds the process settings read from the environment.
type environment struct {
	ConfigPath  string `env:"SERVERBOT_CONFIG" envDefault:"config.json"`
	ManagerRole string `env:"SERVERBOT_MANAGER_ROLE" envDefault:"Bot Manager"`
	MetricsAddr string `env:"SERVERBOT_METRICS_ADDR"`

	// Token is only used when the settings file holds none.
	Token string `env:"DISCORD_TOKEN"`
}

// options holds the command line flags.
type options struct {
	generate    bool
	token       string
	motm        string
	prefix      string
	configPath  string
	metricsAddr string
}

// flagError marks command line parse failures so main can exit with status 2.
type flagError struct {
	err error
}

func (e *flagError) Error() string { return e.err.Error() }
func (e *flagError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCommand(run).ExecuteContext(ctx)
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, err)
	stop()
	var fe *flagError
	if errors.As(err, &fe) {
		os.Exit(2)
	}
	os.Exit(1)
}

type runFunc func(ctx context.Context, store *settings.Store, token string, envCfg environment) error

func newRootCommand(runFn runFunc) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "serverbot",
		Short:         "Discord bot for server announcements, filters and custom responses",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return start(cmd, opts, runFn)
		},
	}

	cmd.Flags().BoolVarP(&opts.generate, "generate", "g", false, "Regenerate the settings file with defaults")
	cmd.Flags().StringVarP(&opts.token, "token", "t", "", "Store the Discord bot token")
	cmd.Flags().StringVarP(&opts.motm, "motm", "m", "", "Store the message of the month")
	cmd.Flags().StringVarP(&opts.prefix, "prefix", "p", "", "Store the command prefix")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Settings file (default $SERVERBOT_CONFIG or config.json)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &flagError{err: err}
	})

	return cmd
}

// start resolves settings from the environment, the settings file and the
// flags, in increasing priority, then hands over to runFn.
func start(cmd *cobra.Command, opts options, runFn runFunc) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var envCfg environment
	if err := env.Parse(&envCfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if cmd.Flags().Changed("config") {
		envCfg.ConfigPath = opts.configPath
	}
	if cmd.Flags().Changed("metrics-addr") {
		envCfg.MetricsAddr = opts.metricsAddr
	}

	store, err := settings.Open(envCfg.ConfigPath, opts.generate)
	if err != nil {
		return err
	}

	if err := applyFlags(cmd, store, opts); err != nil {
		return err
	}

	token := store.Token()
	if token == "" {
		token = envCfg.Token
	}
	if token == "" {
		// Nothing to log in with; this is not treated as a failure.
		fmt.Fprintln(cmd.OutOrStdout(), "No token found")
		return nil
	}

	return runFn(cmd.Context(), store, token, envCfg)
}

// applyFlags persists every settings flag given on the command line.
func applyFlags(cmd *cobra.Command, store *settings.Store, opts options) error {
	flags := cmd.Flags()
	if flags.Changed("token") {
		if err := store.SetToken(opts.token); err != nil {
			return err
		}
	}
	if flags.Changed("motm") {
		if err := store.SetMOTM(opts.motm); err != nil {
			return err
		}
	}
	if flags.Changed("prefix") {
		if err := store.SetPrefix(opts.prefix); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, store *settings.Store, token string, envCfg environment) error {
	// The exit command cancels this context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()

	var dispatcher *dispatch.Dispatcher
	config := discord.NewConfig()
	config.Token = token
	adapter, err := discord.NewAdapter(config, discord.WithReadyFunc(func(ctx context.Context) {
		dispatcher.Ready(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithShutdown(cancel),
		dispatch.WithMetrics(m),
	}
	if envCfg.ManagerRole != "" {
		dispatchOpts = append(dispatchOpts, dispatch.WithManagerRole(envCfg.ManagerRole))
	}
	dispatcher = dispatch.New(store, adapter, dispatchOpts...)

	props, err := dispatcher.CommandProps()
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	sarah.RegisterBot(sarah.NewBot(adapter))
	sarah.RegisterCommandProps(props)

	if envCfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, envCfg.MetricsAddr, m); err != nil {
				logger.Errorf("Metrics server failed: %+v", err)
			}
		}()
	}

	// Start go-sarah's lifecycle management.
	err = sarah.Run(ctx, sarah.NewConfig())
	if err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}

	logger.Infof("Bot is running with settings from %s. Press Ctrl+C to stop.", store.Path())

	// Block until a shutdown signal or the exit command.
	<-ctx.Done()

	logger.Infof("Shutting down...")
	return nil
}
