package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zinc-sig/asksnap/cmd/config"
	"github.com/zinc-sig/asksnap/cmd/helpers"
	"github.com/zinc-sig/asksnap/internal/logging"
	"github.com/zinc-sig/asksnap/internal/report"
	"github.com/zinc-sig/asksnap/internal/upload"
)

var (
	reportFlags   config.ReportFlags
	reportUpload  config.UploadConfig
	reportWebhook config.WebhookConfig
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build an Excel workbook of questions and their screenshots",
	Long: `Write one row per question with its ordinal, its text and the matching
question_<N>_*.png screenshot scaled into the third column. Questions
without a screenshot are marked instead of failing the report.

The output may be given as local[:remote]; with an upload provider the
workbook is uploaded under the remote key (default: its file name).`,
	Example: `  asksnap report
  asksnap report -q questions.txt -s shots -o summary.xlsx --lang en
  asksnap report -o out.xlsx:reports/2024/out.xlsx --upload-provider minio --upload-config-file minio.yaml`,
	RunE: buildReport,
}

func buildReport(cmd *cobra.Command, args []string) error {
	if err := helpers.ValidateReportFlags(&reportFlags); err != nil {
		return err
	}
	log := logging.Component(logger, "report")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	labels, err := report.LabelsFor(reportFlags.Lang)
	if err != nil {
		return err
	}
	localPath, remoteKey := helpers.ParseOutputPath(reportFlags.Output)

	hook, err := helpers.ParseWebhook(&reportWebhook)
	if err != nil {
		return err
	}
	provider, _, err := helpers.SetupUploadProvider(ctx, &reportUpload)
	if err != nil {
		return err
	}

	summary, err := report.Build(ctx, report.Options{
		QuestionsFile:  reportFlags.QuestionsFile,
		ScreenshotsDir: reportFlags.ScreenshotsDir,
		OutputFile:     localPath,
		Labels:         labels,
		Logger:         log,
	})
	if err != nil {
		return err
	}

	if provider != nil {
		if err := upload.UploadFile(ctx, provider, localPath, remoteKey); err != nil {
			log.Error("failed to upload workbook", zap.String("path", localPath), zap.Error(err))
		} else {
			log.Info("workbook uploaded", zap.String("key", remoteKey))
		}
	}

	if err := hook.Send(context.WithoutCancel(ctx), helpers.EventReportCompleted, summary, log); err != nil {
		log.Warn("report webhook not delivered", zap.Error(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Workbook saved: %s (%d questions, %d screenshots, %d missing, %d failed)\n",
		summary.OutputFile, summary.Questions, summary.Embedded, summary.Missing, summary.Failed)
	return nil
}

func init() {
	reportCmd.Flags().StringVarP(&reportFlags.QuestionsFile, "questions", "q", report.DefaultQuestionsFile, "Question file used for the run")
	reportCmd.Flags().StringVarP(&reportFlags.ScreenshotsDir, "screenshots", "s", report.DefaultScreenshotsDir, "Directory holding question_<N>_*.png screenshots")
	reportCmd.Flags().StringVarP(&reportFlags.Output, "output", "o", report.DefaultOutputFile, "Workbook path, optionally local:remote")
	reportCmd.Flags().StringVar(&reportFlags.Lang, "lang", "zh", "Workbook labels: zh or en")

	helpers.SetupUploadFlags(reportCmd, &reportUpload)
	helpers.SetupWebhookFlags(reportCmd, &reportWebhook)
}
