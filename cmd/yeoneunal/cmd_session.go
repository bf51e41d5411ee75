package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"yeoneunal/internal/store"

	"github.com/spf13/cobra"
)

// sessionCmd groups session commands
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect the persisted session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every session field",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

var sessionWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print session changes made by other processes (file backend)",
	Args:  cobra.NoArgs,
	RunE:  runSessionWatch,
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionWatchCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	snap := sess.Snapshot()
	out := cmd.OutOrStdout()
	unset := mutedStyle.Render("-")

	idOr := func(id int64, ok bool) string {
		if !ok {
			return unset
		}
		return strconv.FormatInt(id, 10)
	}

	fmt.Fprintln(out, titleStyle.Render("Session"))
	fmt.Fprintln(out, field("guardianId", idOr(snap.GuardianID, snap.HasGuardian)))
	fmt.Fprintln(out, field("wardId", idOr(snap.WardID, snap.HasWard)))
	name := snap.UserName
	if name == "" {
		name = unset
	}
	fmt.Fprintln(out, field("userName", name))
	if snap.HasProfile {
		p := snap.Profile
		fmt.Fprintln(out, field("wardProfile", fmt.Sprintf("%s, %s, %s, age %d", p.Gender, p.BirthDate, p.Relationship, p.Age)))
	} else {
		fmt.Fprintln(out, field("wardProfile", unset))
	}
	if snap.HasSurvey {
		parts := make([]string, len(snap.SurveyAnswers))
		for i, a := range snap.SurveyAnswers {
			parts[i] = strconv.Itoa(a)
		}
		fmt.Fprintln(out, field("surveyAnswers", strings.Join(parts, ",")))
	} else {
		fmt.Fprintln(out, field("surveyAnswers", unset))
	}
	fmt.Fprintln(out, field("startAIAfterDiagnosis", strconv.FormatBool(snap.StartAIAfterDiagnosis)))
	fmt.Fprintln(out, field("recordId", idOr(snap.RecordID, snap.HasRecord)))
	fmt.Fprintln(out, field("currentReportRecordId", idOr(snap.CurrentReportRecordID, snap.HasCurrentReport)))
	fmt.Fprintln(out, field("hasCheckedReport", strconv.FormatBool(snap.HasCheckedReport)))

	if sess.ReportBannerPending() {
		fmt.Fprintln(out, warnStyle.Render("A report is waiting to be checked."))
	}
	return nil
}

func runSessionWatch(cmd *cobra.Command, args []string) error {
	fs, ok := sessionStore.(*store.FileStore)
	if !ok {
		return fmt.Errorf("session watch needs session.backend: file (current: %s)", cfg.Session.Backend)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	changes, err := fs.Watch(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, mutedStyle.Render("Watching "+fs.Path()+" (Ctrl+C to stop)"))
	for ch := range changes {
		if ch.Removed {
			fmt.Fprintf(out, "%s removed\n", ch.Key)
			continue
		}
		fmt.Fprintf(out, "%s = %s\n", ch.Key, ch.NewValue)
	}
	return nil
}
