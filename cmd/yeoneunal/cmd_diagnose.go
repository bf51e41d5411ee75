package main

import (
	"fmt"

	"yeoneunal/internal/api"
	"yeoneunal/internal/ward"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	diagnoseAnswers string
	diagnoseList    bool
	diagnoseStartAI bool
)

// diagnoseCmd submits the self-diagnosis survey for the active ward
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Submit the self-diagnosis survey for the active ward",
	Long: `Answers are given on a 0-4 scale:
  0 매우 아니다, 1 아니다, 2 보통, 3 그렇다, 4 매우 그렇다

The number of questions is diagnosis.question_count (5-20). Use --list to
print them. With --start-ai the next 'upload' is expected right away.`,
	Args: cobra.NoArgs,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseAnswers, "answers", "", "Comma separated answers 0-4, one per question")
	diagnoseCmd.Flags().BoolVar(&diagnoseList, "list", false, "Print the questions and exit")
	diagnoseCmd.Flags().BoolVar(&diagnoseStartAI, "start-ai", false, "Mark the session to start analysis after the survey")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	questions, err := ward.Questionnaire(cfg.Diagnosis.QuestionCount)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if diagnoseList {
		for i, q := range questions {
			fmt.Fprintf(out, "%2d. %s\n", i+1, q)
		}
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("scale: 0 %s … 4 %s", ward.ScaleLabel(0), ward.ScaleLabel(ward.MaxAnswer))))
		return nil
	}

	wardID, ok := sess.WardID()
	if !ok {
		return fmt.Errorf("no active ward; run 'ward register' or 'ward select' first")
	}
	if diagnoseAnswers == "" {
		return fmt.Errorf("--answers is required (%d values)", len(questions))
	}
	answers, err := parseAnswers(diagnoseAnswers)
	if err != nil {
		return err
	}
	payload, err := ward.BuildDiagnosis(api.DiagnosisSchema(cfg.Diagnosis.Schema), questions, answers)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	if err := newClient().UpdateDiagnosis(ctx, wardID, payload); err != nil {
		return fail("self-diagnosis", err)
	}
	if err := sess.SetSurveyAnswers(answers); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := sess.SetStartAIAfterDiagnosis(diagnoseStartAI); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	logger.Info("Diagnosis submitted",
		zap.Int64("ward_id", wardID),
		zap.Int("answers", len(answers)),
		zap.String("schema", string(payload.Schema)))

	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Saved %d answers for ward %d", len(answers), wardID)))
	if diagnoseStartAI {
		fmt.Fprintln(out, mutedStyle.Render("Next: yeoneunal upload <recording>"))
	}
	return nil
}
