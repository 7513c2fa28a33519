package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/pipeline"
	"github.com/jonathan/resume-builder/internal/server"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath     string
	apiKey         string
	model          string
	verbose        bool
	logLevel       string
	logFormat      string
	maxAttempts    int
	initialDelay   time.Duration
	attemptTimeout time.Duration
	repairAttempts int
}

// app wires commands to their collaborators. Tests replace the model client and extractor.
type app struct {
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer

	newClient   func(ctx context.Context, cfg *llm.Config, apiKey string) (llm.Client, error)
	extractor   pipeline.TextExtractor
	sleep       llm.SleepFunc
	startServer func(*server.Server) error
}

func newApp() *app {
	return &app{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		newClient:   llm.NewClient,
		startServer: (*server.Server).Start,
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "resume_builder",
		Short:         "Parse and tailor resumes with a generative model",
		Long:          "resume_builder extracts structured resume records from PDF resumes and rewrites them toward a job description, from the command line or over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", "Path to JSON or YAML config file")
	flags.StringVar(&a.opts.apiKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	flags.StringVar(&a.opts.model, "model", "", "Gemini model name (overrides RESUME_MODEL env var)")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Print detailed debug information")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.opts.logFormat, "log-format", "", "Log format: text or json")
	flags.IntVar(&a.opts.maxAttempts, "max-attempts", 0, "Model call attempts before giving up (default 5)")
	flags.DurationVar(&a.opts.initialDelay, "initial-delay", 0, "Backoff after the first failed attempt, doubled each retry (default 2s)")
	flags.DurationVar(&a.opts.attemptTimeout, "attempt-timeout", 0, "Timeout for a single model call attempt (default 30s)")
	flags.IntVar(&a.opts.repairAttempts, "repair-attempts", 0, "Extra model calls to repair undecodable output (default 0)")

	rootCmd.AddCommand(newParseCmd(a), newTailorCmd(a), newServeCmd(a))
	return rootCmd
}

// resolveConfig layers flags over the config file over the environment over built-in defaults.
func (a *app) resolveConfig() (config.Config, error) {
	base := config.FromEnv()
	base = base.MergeWithDefaults(config.Defaults())

	if a.opts.configPath != "" {
		fileCfg, err := config.LoadConfig(a.opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		base = fileCfg.MergeWithDefaults(base)
	}

	flagCfg := config.Config{
		APIKey:         a.opts.apiKey,
		Model:          a.opts.model,
		Verbose:        a.opts.verbose,
		LogLevel:       a.opts.logLevel,
		LogFormat:      a.opts.logFormat,
		MaxAttempts:    a.opts.maxAttempts,
		InitialDelay:   config.Duration(a.opts.initialDelay),
		AttemptTimeout: config.Duration(a.opts.attemptTimeout),
		RepairAttempts: a.opts.repairAttempts,
	}
	cfg := flagCfg.MergeWithDefaults(base)

	if cfg.Verbose && a.opts.logLevel == "" {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// runtime holds the collaborators built for one command invocation.
type runtime struct {
	cfg       config.Config
	logger    *logrus.Logger
	client    llm.Client
	caller    *llm.Caller
	extractor pipeline.TextExtractor
	printer   *observability.Printer
}

func (a *app) setup(ctx context.Context) (*runtime, error) {
	cfg, err := a.resolveConfig()
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (set %s environment variable or use --api-key flag)", config.EnvAPIKey)
	}

	logger, err := observability.NewLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	client, err := a.newClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	callerOpts := []llm.CallerOption{llm.WithLogger(logger.WithField("component", "llm"))}
	if a.sleep != nil {
		callerOpts = append(callerOpts, llm.WithSleep(a.sleep))
	}

	extractor := a.extractor
	if extractor == nil {
		extractor = ingestion.NewExtractor(ingestion.WithExtractorLogger(logger.WithField("component", "ingestion")))
	}

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		client:    client,
		caller:    llm.NewCaller(client, cfg.RetryPolicy(), callerOpts...),
		extractor: extractor,
		printer:   observability.NewPrinter(a.stderr),
	}, nil
}

// serviceOptions are the pipeline options implied by the configuration.
func (rt *runtime) serviceOptions() []pipeline.Option {
	return []pipeline.Option{pipeline.WithDecodeRepair(rt.cfg.RepairAttempts)}
}

func (rt *runtime) service() *pipeline.Service {
	opts := append(rt.serviceOptions(), pipeline.WithLogger(rt.logger.WithField("component", "pipeline")))
	return pipeline.New(rt.extractor, rt.caller, opts...)
}

func (rt *runtime) close() {
	if err := rt.client.Close(); err != nil {
		rt.logger.WithError(err).Warn("failed to close LLM client")
	}
}

// printFailure shows the reason and diagnostic of a pipeline failure in verbose mode.
func (rt *runtime) printFailure(name string, err error) {
	if !rt.cfg.Verbose {
		return
	}
	var pipelineErr *pipeline.Error
	if errors.As(err, &pipelineErr) {
		rt.printer.PrintFailure(name, pipelineErr.Reason, pipelineErr.Diagnostic())
		return
	}
	rt.printer.PrintFailure(name, err.Error(), "")
}

// writeOutput writes data to path, or to stdout when path is empty.
func (a *app) writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := a.stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
