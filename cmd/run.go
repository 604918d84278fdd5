package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinc-sig/asksnap/cmd/config"
	"github.com/zinc-sig/asksnap/cmd/helpers"
	"github.com/zinc-sig/asksnap/internal/browser"
	appconfig "github.com/zinc-sig/asksnap/internal/config"
	"github.com/zinc-sig/asksnap/internal/logging"
	"github.com/zinc-sig/asksnap/internal/output"
	"github.com/zinc-sig/asksnap/internal/question"
	"github.com/zinc-sig/asksnap/internal/runner"
	"github.com/zinc-sig/asksnap/internal/upload"
)

var (
	runFlags   config.RunFlags
	runUpload  config.UploadConfig
	runWebhook config.WebhookConfig

	// waitForRelease blocks while browsers are kept open.
	waitForRelease = func(ctx context.Context) { <-ctx.Done() }
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Submit every question and screenshot the replies",
	Long: `Read one question per non-blank line, submit each to the configured page in
a fresh browser and save question_<N>_<timestamp>.png into the output
directory. A missing config file is replaced by an example to edit.

Failed questions are reported but do not fail the command.`,
	Example: `  asksnap run -q questions.txt
  asksnap run -q questions.txt -c site.yaml -p -w 4
  asksnap run -q questions.txt --set headless=true --set wait_time=20 --json
  asksnap run -q questions.txt --dry-run`,
	RunE: runQuestions,
}

func runQuestions(cmd *cobra.Command, args []string) error {
	if err := helpers.ValidateRunFlags(&runFlags); err != nil {
		return err
	}
	log := logging.Component(logger, "run")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadRunConfig(cmd, log)
	if err != nil {
		return err
	}

	hook, err := helpers.ParseWebhook(&runWebhook)
	if err != nil {
		return err
	}

	if runFlags.DryRun {
		return printRunPlan(cmd.OutOrStdout(), cfg, hook)
	}

	provider, _, err := helpers.SetupUploadProvider(ctx, &runUpload)
	if err != nil {
		return err
	}

	engine, err := browser.NewEngine(cfg.Engine, cfg.Browser)
	if err != nil {
		return err
	}

	r := runner.New(runner.Config{
		WebsiteURL:     cfg.WebsiteURL,
		InputSelector:  cfg.TextareaSelector,
		SubmitSelector: cfg.SubmitSelector,
		Wait:           cfg.Wait(),
		OutputDir:      cfg.OutputDir,
		KeepOpen:       cfg.KeepBrowserOpen,
		Launch: browser.LaunchOptions{
			Headless:       cfg.Headless,
			ElementTimeout: cfg.ElementWait(),
		},
		TaskDelay:   runner.DefaultTaskDelay,
		SettleDelay: runner.DefaultSettleDelay,
	}, engine, logging.Component(logger, "runner"))

	log.Info("starting run",
		zap.String("engine", engine.Name()),
		zap.String("browser", string(engine.Kind())),
		zap.Bool("parallel", runFlags.Parallel),
		zap.Int("workers", runFlags.Workers))

	started := time.Now()
	results, err := r.Run(ctx, runFlags.QuestionsFile, runFlags.Parallel, runFlags.Workers)
	if err != nil {
		if cerr := r.Close(); cerr != nil {
			log.Warn("failed to shut down browsers", zap.Error(cerr))
		}
		return err
	}
	finished := time.Now()

	mode := output.ModeSequential
	if runFlags.Parallel {
		mode = output.ModeParallel
	}
	runID := output.NewRunID()

	// Delivery should still happen after an interrupt.
	deliverCtx := context.WithoutCancel(ctx)
	uploadErr := uploadScreenshots(deliverCtx, provider, runID, results, log)

	summary := output.NewSummary(runID, mode, runFlags.Workers, started, finished, results)
	summary.UploadError = uploadErr
	helpers.DeliverSummary(deliverCtx, hook, summary, log)

	if runFlags.JSON {
		runner.PrintSummary(cmd.ErrOrStderr(), results)
		if err := helpers.OutputJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		runner.PrintSummary(cmd.OutOrStdout(), results)
	}

	if cfg.KeepBrowserOpen && r.Tracker().Len() > 0 {
		log.Info("browsers kept open; press Ctrl+C to close them and exit",
			zap.Int("browsers", r.Tracker().Len()))
		waitForRelease(ctx)
	}

	if err := r.Close(); err != nil {
		log.Warn("failed to shut down browsers", zap.Error(err))
	}
	log.Info("run finished", zap.String("run_id", runID))
	return nil
}

// loadRunConfig loads and validates the run configuration, logging setup
// instructions when the file is missing or still holds placeholders.
func loadRunConfig(cmd *cobra.Command, log *zap.Logger) (*appconfig.Config, error) {
	opts := appconfig.LoadOptions{Overrides: runFlags.Set}
	if cmd.Flags().Changed("output") {
		opts.OutputDir = runFlags.OutputDir
	} else {
		opts.DefaultOutputDir = runFlags.OutputDir
	}

	cfg, err := appconfig.Load(runFlags.ConfigFile, opts)
	if err != nil {
		var missing *appconfig.MissingError
		if errors.As(err, &missing) {
			log.Error("config file not found",
				zap.String("path", missing.ConfigPath),
				zap.String("example", missing.ExamplePath))
			for _, line := range appconfig.Instructions(missing.ExamplePath) {
				log.Info(line)
			}
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, appconfig.ErrNotConfigured) {
			log.Error("config still holds placeholder values", zap.String("path", runFlags.ConfigFile))
			for _, line := range appconfig.Instructions(runFlags.ConfigFile) {
				log.Info(line)
			}
		}
		return nil, fmt.Errorf("invalid config %s: %w", runFlags.ConfigFile, err)
	}
	return cfg, nil
}

func printRunPlan(w io.Writer, cfg *appconfig.Config, hook *helpers.Webhook) error {
	questions, err := question.Load(runFlags.QuestionsFile)
	if err != nil {
		return err
	}

	helpers.PrintConfigInfo(w, runFlags.ConfigFile, cfg)
	runner.PrintPlan(w, runner.Plan{
		WebsiteURL:     cfg.WebsiteURL,
		InputSelector:  cfg.TextareaSelector,
		SubmitSelector: cfg.SubmitSelector,
		Browser:        cfg.Browser,
		Engine:         cfg.Engine,
		Headless:       cfg.Headless,
		Parallel:       runFlags.Parallel,
		Workers:        runFlags.Workers,
		OutputDir:      cfg.OutputDir,
		Questions:      questions,
	})

	if runUpload.Provider != "" {
		uploadConf, err := helpers.BuildUploadConfig(&runUpload)
		if err != nil {
			return err
		}
		helpers.PrintUploadInfo(w, runUpload.Provider, uploadConf)
	}
	if hook != nil {
		fmt.Fprintf(w, "Webhook:   %s\n", hook.URL())
	}
	return nil
}

// uploadScreenshots uploads every successful screenshot under <runID>/ and
// records the remote key on its result. It returns a description of any
// failures for the summary.
func uploadScreenshots(ctx context.Context, provider upload.Provider, runID string, results []runner.Result, log *zap.Logger) string {
	if provider == nil {
		return ""
	}

	files := make(map[string]string)
	for _, r := range results {
		if r.Succeeded() {
			files[r.ScreenshotPath] = helpers.ScreenshotKey(runID, r.ScreenshotPath)
		}
	}

	failures := upload.UploadFiles(ctx, provider, files, logging.Component(log, "upload"))
	for i := range results {
		key, ok := files[results[i].ScreenshotPath]
		if !ok {
			continue
		}
		if _, failed := failures[results[i].ScreenshotPath]; !failed {
			results[i].RemotePath = key
		}
	}

	if len(failures) == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d uploads failed", len(failures), len(files))
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.QuestionsFile, "questions", "q", "", "Question file, one question per line (required)")
	runCmd.Flags().StringVarP(&runFlags.ConfigFile, "config", "c", "config.json", "Config file (JSON, or YAML by extension)")
	runCmd.Flags().BoolVarP(&runFlags.Parallel, "parallel", "p", false, "Process questions concurrently")
	runCmd.Flags().IntVarP(&runFlags.Workers, "workers", "w", runner.DefaultWorkers, "Maximum concurrent browsers with --parallel")
	runCmd.Flags().StringVarP(&runFlags.OutputDir, "output", "o", appconfig.DefaultOutputDir, "Screenshot directory (overrides output_dir when given)")
	runCmd.Flags().StringArrayVar(&runFlags.Set, "set", nil, "Override a config key, key=value (can be used multiple times)")
	runCmd.Flags().BoolVar(&runFlags.JSON, "json", false, "Print the run summary as JSON on stdout")
	runCmd.Flags().BoolVar(&runFlags.DryRun, "dry-run", false, "Show the configuration and questions without launching browsers")

	helpers.SetupUploadFlags(runCmd, &runUpload)
	helpers.SetupWebhookFlags(runCmd, &runWebhook)

	_ = runCmd.MarkFlagRequired("questions")
}
