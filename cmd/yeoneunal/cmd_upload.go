package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"yeoneunal/internal/api"
	"yeoneunal/internal/datetime"
	"yeoneunal/internal/report"
	"yeoneunal/internal/workflow"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	uploadRecordedAt string
	uploadTUI        bool
)

// uploadCmd uploads a recording and follows it to a report
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a call recording for the active ward and wait for the report",
	Long: `Uploads the recording, then checks the analysis status every
polling.interval until the report is ready, the analysis fails, or
polling.max_attempts checks have been made.

If the wait runs out the recording keeps processing on the server; run
'yeoneunal resume' later to pick it up again.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

// resumeCmd continues following the last uploaded recording
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue waiting for the last uploaded recording",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadRecordedAt, "recorded-at", "", "When the call was recorded (e.g. 2024-03-01T10:00:00)")
	uploadCmd.Flags().BoolVar(&uploadTUI, "tui", false, "Show an interactive progress view")
	resumeCmd.Flags().BoolVar(&uploadTUI, "tui", false, "Show an interactive progress view")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	up := api.AudioUpload{FileName: args[0]}
	if uploadRecordedAt != "" {
		t, ok := datetime.ParseString(uploadRecordedAt)
		if !ok {
			return fmt.Errorf("invalid --recorded-at %q", uploadRecordedAt)
		}
		up.RecordedAt = t
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()
	up.Content = f

	if sess.StartAIAfterDiagnosis() {
		if err := sess.SetStartAIAfterDiagnosis(false); err != nil {
			logger.Warn("failed to clear start-ai flag", zap.Error(err))
		}
	}

	eng := newEngine(newClient())
	logger.Info("Uploading recording", zap.String("file", args[0]))
	res, err := followRun(cmd, eng, func(ctx context.Context) (*workflow.Result, error) {
		return eng.Run(ctx, up)
	})
	return finishRun(cmd, res, err)
}

func runResume(cmd *cobra.Command, args []string) error {
	eng := newEngine(newClient())
	res, err := followRun(cmd, eng, eng.Resume)
	return finishRun(cmd, res, err)
}

func followRun(cmd *cobra.Command, eng *workflow.Engine, run func(context.Context) (*workflow.Result, error)) (*workflow.Result, error) {
	ctx, cancel := commandContext()
	defer cancel()

	if uploadTUI {
		return runWithSpinner(ctx, cmd.ErrOrStderr(), eng, run)
	}
	eng.Observe(textProgress(cmd.ErrOrStderr(), eng.PollConfig().MaxAttempts))
	return run(ctx)
}

// finishRun reports the outcome. A timed out run is not an error.
func finishRun(cmd *cobra.Command, res *workflow.Result, err error) error {
	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, workflow.ErrMissingWard), errors.Is(err, workflow.ErrNoRecord):
		return err
	case res == nil:
		return fail("analysis", err)
	}

	logger.Info("Run finished",
		zap.String("state", string(res.State)),
		zap.Int64("record_id", res.RecordID),
		zap.Int("polls", res.Attempts))
	if res.SessionErr != nil {
		logger.Warn("Record not saved to session", zap.Int64("record_id", res.RecordID), zap.Error(res.SessionErr))
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Record %d could not be saved to the session (%v); 'yeoneunal resume' will not find it.", res.RecordID, res.SessionErr)))
	}

	switch res.State {
	case workflow.StateReady:
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Report ready for record %d", res.RecordID)))
		name, _ := sess.UserName()
		return renderView(cmd, report.NewView(res.Report, name))
	case workflow.StateTimedOut:
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("Record %d is still being analyzed after %d checks.", res.RecordID, res.Attempts)))
		fmt.Fprintln(out, "Run 'yeoneunal resume' later to check again.")
		return nil
	case workflow.StateCanceled:
		if res.RecordID == 0 {
			return fmt.Errorf("canceled before the upload finished")
		}
		return fmt.Errorf("canceled; run 'yeoneunal resume' to continue record %d", res.RecordID)
	default:
		return fail("analysis", err)
	}
}
