package main

import (
	"fmt"
	"strings"

	"yeoneunal/internal/api"
	"yeoneunal/internal/report"
	"yeoneunal/internal/workflow"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	plainOutput bool
	historyWard int64
)

// reportCmd shows the report for a recording
var reportCmd = &cobra.Command{
	Use:   "report [recordId]",
	Short: "Show the analysis report for a recording",
	Long: `Shows the report for recordId, or for the most recently surfaced or
uploaded recording when no id is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

// historyCmd lists a ward's recordings grouped by month
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the active ward's recordings by month",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Print markdown without terminal styling")
	historyCmd.Flags().Int64Var(&historyWard, "ward", 0, "Ward id (default: the active ward)")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	recordID, err := reportArg(args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	rep, err := newClient().GetReportByRecord(ctx, recordID)
	if api.IsNotFound(err) {
		return fmt.Errorf("no report for record %d yet; run 'yeoneunal resume' to wait for it", recordID)
	}
	if err != nil {
		return fail("report", err)
	}
	if err := sess.MarkReportSurfaced(recordID); err != nil {
		logger.Warn("failed to save report flags", zap.Error(err))
	}

	name, _ := sess.UserName()
	return renderView(cmd, report.NewView(rep, name))
}

// reportArg picks the record to show: the argument, the last surfaced
// report, then the last upload.
func reportArg(args []string) (int64, error) {
	if len(args) > 0 {
		return parseID("record id", args[0])
	}
	if id, ok := sess.CurrentReportRecordID(); ok {
		return id, nil
	}
	if id, ok := sess.RecordID(); ok {
		return id, nil
	}
	return 0, fmt.Errorf("no recording in this session; pass a record id")
}

// renderView prints the probability badges and the markdown report.
func renderView(cmd *cobra.Command, v report.View) error {
	out := cmd.OutOrStdout()
	lang := language()
	md := report.Markdown(v, lang)

	if plainOutput {
		fmt.Fprint(out, md)
		return nil
	}

	if v.Available {
		var badges []string
		for _, p := range v.Probabilities {
			badges = append(badges, fmt.Sprintf("%s %s %s", p.Name, tierBadge(p.Tier, lang), report.FormatPercent(p.Percent)))
		}
		fmt.Fprintln(out, strings.Join(badges, "   "))
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		fmt.Fprint(out, md)
		return nil
	}
	rendered, err := r.Render(md)
	if err != nil {
		fmt.Fprint(out, md)
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	wardID := historyWard
	if wardID <= 0 {
		id, ok := sess.WardID()
		if !ok {
			return fmt.Errorf("no active ward; pass --ward or run 'ward select'")
		}
		wardID = id
	}

	ctx, cancel := commandContext()
	defer cancel()

	entries, err := workflow.LoadHistory(ctx, newClient(), wardID)
	if err != nil {
		return fail("history", err)
	}

	out := cmd.OutOrStdout()
	lang := language()
	if sess.ReportBannerPending() {
		fmt.Fprintln(out, warnStyle.Render("A new recording is waiting for its report; run 'yeoneunal resume'."))
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No recordings yet."))
		return nil
	}

	list := make([]report.Entry, 0, len(entries))
	for _, h := range entries {
		e := report.Entry{RecordID: h.RecordID(), Analysis: h.Analysis()}
		e.Time, e.HasTime = h.Timestamp()
		if h.Record != nil {
			e.Status = h.Record.Status
		}
		list = append(list, e)
	}

	for _, g := range report.GroupByMonth(list) {
		fmt.Fprintln(out, headingStyle.Render(g.Label(lang)))
		for _, e := range g.Entries {
			date := "----------"
			if e.HasTime {
				date = e.Time.Format("2006-01-02")
			}
			line := fmt.Sprintf("  #%-6d %s  %s", e.RecordID, date, e.SummaryLine())
			if e.Status != "" && !e.Status.Completed() {
				line += mutedStyle.Render(" [" + string(e.Status) + "]")
			}
			if alert := e.Alert(); alert != "" {
				line += "  " + alertStyle.Render(alert)
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
